// Package server exposes a small read-only status API over the running
// sweep: the live scheduler snapshot plus the persisted ledger.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/bsweep/internal/sched"
	"github.com/me/bsweep/internal/store"
)

// SnapshotFunc returns the latest scheduler snapshot, or nil before the
// first publication.
type SnapshotFunc func() *sched.Snapshot

// Server is the sweep status API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	snapshot  SnapshotFunc
	store     store.Store
	startTime time.Time
}

// New creates a Server with all routes registered. st may be nil when the
// ledger is disabled; the sweep listing endpoints then return 404.
func New(snapshot SnapshotFunc, st store.Store, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		snapshot:  snapshot,
		store:     st,
		startTime: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves the status API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("status api listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Route("/sweeps", func(r chi.Router) {
			r.Get("/", s.handleListSweeps)
			r.Get("/{id}", s.handleGetSweep)
		})
	})
}
