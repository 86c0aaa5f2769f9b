// Package httpapi exposes the core services over HTTP: public share info
// and download endpoints for anonymous users, CRUD endpoints for the admin.
// Admin authentication is expected to be handled upstream (reverse proxy).
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sharegate/internal/logging"
	"github.com/go-chi/chi/v5"
)

// Server is the process's single HTTP listener.
type Server struct {
	httpServer      *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
}

// NewRouter mounts all routes and middleware around the given handler.
func NewRouter(logger logging.Logger, h *Handler) chi.Router {
	router := chi.NewRouter()
	router.Use(RequestLogger(logger))

	router.Get("/healthz", h.Health)

	router.Route("/api", func(r chi.Router) {
		r.Get("/share/{slug}", h.GetPublicShare)
		r.Get("/download/{slug}", h.Download)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Post("/files", h.RegisterFile)
		r.Get("/files", h.ListFiles)
		r.Delete("/files/{id}", h.DeleteFile)
		r.Post("/shares", h.CreateShare)
		r.Get("/shares", h.ListShares)
		r.Get("/shares/{slug}", h.GetShare)
		r.Delete("/shares/{slug}", h.DeleteShare)
	})

	return router
}

// NewServer wires the routes and middleware around the given handler.
func NewServer(addr string, shutdownTimeout time.Duration, logger logging.Logger, h *Handler) *Server {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewRouter(logger, h),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:      srv,
		logger:          logger.With("module", "http_server"),
		shutdownTimeout: shutdownTimeout,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
