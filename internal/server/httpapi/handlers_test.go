package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/sharegate/internal/logging"
	"github.com/dmitrijs2005/sharegate/internal/server/models"
	"github.com/dmitrijs2005/sharegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sharegate/internal/server/services"
	"github.com/stretchr/testify/require"
)

var dbSeq atomic.Int64

// setupServer runs the real router over an in-memory store, so the tests
// cover the full path from URL to SQL.
func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	rm := &repomanager.SQLiteRepositoryManager{}
	dsn := fmt.Sprintf("file:httpapi_tests_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := rm.Open(dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := NewHandler(db,
		services.NewFileService(db, rm),
		services.NewShareService(db, rm),
		services.NewAccessGate(db, rm),
		logger)

	ts := httptest.NewServer(NewRouter(logger, h))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func doDelete(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func registerFile(t *testing.T, ts *httptest.Server, path string) models.FileEntry {
	t.Helper()
	resp := postJSON(t, ts.URL+"/admin/files", map[string]string{"abs_path": path})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[models.FileEntry](t, resp)
}

func createShare(t *testing.T, ts *httptest.Server, req map[string]any) models.Share {
	t.Helper()
	resp := postJSON(t, ts.URL+"/admin/shares", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[models.Share](t, resp)
}

func tempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDownloadFlow(t *testing.T) {
	ts := setupServer(t)

	const content = "attachment body"
	path := tempFile(t, "report.pdf", content)

	entry := registerFile(t, ts, path)
	require.Equal(t, "report.pdf", entry.Name)

	share := createShare(t, ts, map[string]any{"file_id": entry.ID, "password": "hunter2"})
	require.Len(t, share.Slug, 8)

	// public view: metadata only, password flagged but never exposed
	resp, err := http.Get(ts.URL + "/api/share/" + share.Slug)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotContains(t, string(raw), "argon2")

	var view models.PublicShare
	require.NoError(t, json.Unmarshal(raw, &view))
	require.Equal(t, "report.pdf", view.FileName)
	require.Equal(t, int64(len(content)), view.FileSize)
	require.True(t, view.PasswordRequired)

	// no password
	resp, err = http.Get(ts.URL + "/api/download/" + share.Slug)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// wrong password
	resp, err = http.Get(ts.URL + "/api/download/" + share.Slug + "?password=wrong")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// correct password streams the file
	resp, err = http.Get(ts.URL + "/api/download/" + share.Slug + "?password=hunter2")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, content, string(body))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	require.Contains(t, resp.Header.Get("Content-Disposition"), "report.pdf")
	require.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
}

func TestDownload_UnknownSlug(t *testing.T) {
	ts := setupServer(t)

	resp, err := http.Get(ts.URL + "/api/download/noSuchSl")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDownload_QuotaExceededIsForbidden(t *testing.T) {
	ts := setupServer(t)

	entry := registerFile(t, ts, tempFile(t, "payload.bin", "data"))
	share := createShare(t, ts, map[string]any{"file_id": entry.ID, "max_downloads": 1})

	resp, err := http.Get(ts.URL + "/api/download/" + share.Slug)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/download/" + share.Slug)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminFiles(t *testing.T) {
	ts := setupServer(t)

	entry := registerFile(t, ts, tempFile(t, "payload.bin", "data"))

	resp, err := http.Get(ts.URL + "/admin/files")
	require.NoError(t, err)
	list := decodeBody[[]models.FileEntry](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	require.Equal(t, entry.ID, list[0].ID)

	require.Equal(t, http.StatusNoContent, doDelete(t, ts.URL+"/admin/files/"+entry.ID).StatusCode)
	require.Equal(t, http.StatusNotFound, doDelete(t, ts.URL+"/admin/files/"+entry.ID).StatusCode)
}

func TestAdminFiles_BadRequests(t *testing.T) {
	ts := setupServer(t)

	resp, err := http.Post(ts.URL+"/admin/files", "application/json", bytes.NewReader([]byte("{broken")))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/admin/files", map[string]string{"abs_path": "/no/such/file"})
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminShares(t *testing.T) {
	ts := setupServer(t)

	entry := registerFile(t, ts, tempFile(t, "payload.bin", "data"))
	share := createShare(t, ts, map[string]any{"file_id": entry.ID})

	resp, err := http.Get(ts.URL + "/admin/shares")
	require.NoError(t, err)
	list := decodeBody[[]models.Share](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)

	resp, err = http.Get(ts.URL + "/admin/shares/" + share.Slug)
	require.NoError(t, err)
	got := decodeBody[models.Share](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, entry.ID, got.FileID)

	require.Equal(t, http.StatusNoContent, doDelete(t, ts.URL+"/admin/shares/"+share.Slug).StatusCode)
	require.Equal(t, http.StatusNotFound, doDelete(t, ts.URL+"/admin/shares/"+share.Slug).StatusCode)
}

func TestAdminShares_BadRequests(t *testing.T) {
	ts := setupServer(t)

	// unknown file
	resp := postJSON(t, ts.URL+"/admin/shares", map[string]any{"file_id": "no-such-id"})
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// invalid quota
	entry := registerFile(t, ts, tempFile(t, "payload.bin", "data"))
	resp = postJSON(t, ts.URL+"/admin/shares", map[string]any{"file_id": entry.ID, "max_downloads": 0})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
