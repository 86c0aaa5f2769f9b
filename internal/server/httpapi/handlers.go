package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/sharegate/internal/common"
	"github.com/dmitrijs2005/sharegate/internal/logging"
	"github.com/dmitrijs2005/sharegate/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// Handler maps HTTP requests onto the core services and their typed results
// onto status codes. The core never sees HTTP.
type Handler struct {
	db     *sql.DB
	files  *services.FileService
	shares *services.ShareService
	gate   *services.AccessGate
	logger logging.Logger
}

func NewHandler(db *sql.DB, f *services.FileService, s *services.ShareService, g *services.AccessGate, l logging.Logger) *Handler {
	return &Handler{db: db, files: f, shares: s, gate: g, logger: l.With("module", "httpapi")}
}

// Health reports liveness, including a store round-trip.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Error(r.Context(), "health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- user section ---

func (h *Handler) GetPublicShare(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	view, err := h.shares.GetPublicView(r.Context(), slug)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Download redeems a share and streams the underlying file. Outcome mapping:
// Admitted→200, NotFound→404, Unauthorized→401, Expired/QuotaExceeded→403.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	password := r.URL.Query().Get("password")

	outcome, err := h.gate.Redeem(r.Context(), slug, password)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	switch outcome.Decision {
	case services.DecisionAdmitted:
		h.streamFile(w, r, outcome.AbsPath, outcome.FileName)
	case services.DecisionNotFound:
		writeError(w, http.StatusNotFound, "share not found")
	case services.DecisionUnauthorized:
		writeError(w, http.StatusUnauthorized, "invalid password")
	case services.DecisionExpired:
		writeError(w, http.StatusForbidden, "share expired")
	case services.DecisionQuotaExceeded:
		writeError(w, http.StatusForbidden, "download quota exceeded")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) streamFile(w http.ResponseWriter, r *http.Request, absPath, fileName string) {
	f, err := os.Open(absPath)
	if err != nil {
		h.logger.Error(r.Context(), "cannot open registered file", "path", absPath, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.logger.Error(r.Context(), "cannot stat registered file", "path", absPath, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ct := mime.TypeByExtension(filepath.Ext(fileName))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	// FormatMediaType emits RFC 5987 filename* for non-ASCII names
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))

	http.ServeContent(w, r, fileName, info.ModTime(), f)
}

// --- admin section ---

type registerFileRequest struct {
	AbsPath string `json:"abs_path"`
}

func (h *Handler) RegisterFile(w http.ResponseWriter, r *http.Request) {
	var req registerFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.files.RegisterOrGet(r.Context(), req.AbsPath)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.files.List(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.files.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createShareRequest struct {
	FileID       string     `json:"file_id"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	MaxDownloads *int64     `json:"max_downloads,omitempty"`
	Password     *string    `json:"password,omitempty"`
}

func (h *Handler) CreateShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	share, err := h.shares.Create(r.Context(), services.CreateParams{
		FileID:       req.FileID,
		ExpiresAt:    req.ExpiresAt,
		MaxDownloads: req.MaxDownloads,
		Password:     req.Password,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, share)
}

func (h *Handler) ListShares(w http.ResponseWriter, r *http.Request) {
	list, err := h.shares.List(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) GetShare(w http.ResponseWriter, r *http.Request) {
	share, err := h.shares.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, share)
}

func (h *Handler) DeleteShare(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.shares.Delete(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "share not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, common.ErrorPermissionDenied):
		writeError(w, http.StatusForbidden, "permission denied")
	case errors.Is(err, common.ErrorSlugExhausted):
		// transient: the whole create call is safe to retry
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry")
	default:
		h.logger.Error(r.Context(), "internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
