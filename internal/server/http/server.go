// Package httpserver provides the HTTP REST API server for the paper scroll service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
	"github.com/paperscroll/paper-scroll-service/internal/feed"
	"github.com/paperscroll/paper-scroll-service/internal/observability"
	"github.com/paperscroll/paper-scroll-service/internal/storage"
	"github.com/paperscroll/paper-scroll-service/internal/syncer"
)

// Exporter exports a paper to the user's reference manager library.
type Exporter interface {
	Export(ctx context.Context, paper *domain.Paper, libraryID, apiKey string) (string, error)
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	settings   *storage.SettingsStore
	snapshots  *storage.SnapshotStore
	stars      *storage.StarStore
	syncer     *syncer.Syncer
	buffer     *feed.Buffer
	exporter   Exporter
	validate   *validator.Validate
	logger     zerolog.Logger
	metrics    *observability.Metrics

	// baseCtx outlives individual requests; background syncs run on it so a
	// client disconnect does not abort a half-finished sync.
	baseCtx context.Context
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	baseCtx context.Context,
	settings *storage.SettingsStore,
	snapshots *storage.SnapshotStore,
	stars *storage.StarStore,
	sync *syncer.Syncer,
	buffer *feed.Buffer,
	exporter Exporter,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		settings:  settings,
		snapshots: snapshots,
		stars:     stars,
		syncer:    sync,
		buffer:    buffer,
		exporter:  exporter,
		validate:  domain.NewValidator(),
		logger:    logger.With().Str("component", "http-server").Logger(),
		metrics:   metrics,
		baseCtx:   baseCtx,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)

	// Health endpoint
	r.Get("/healthz", s.healthHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/config", s.getSettings)
		r.Patch("/config", s.patchSettings)

		r.Post("/journals", s.addJournal)
		r.Delete("/journals/{issn}", s.removeJournal)
		r.Post("/journals/sync", s.startSync)
		r.Get("/journals/sync/progress", s.streamSyncProgress)

		r.Get("/status", s.getStatus)

		r.Get("/papers/random", s.getRandomPaper)
		r.Get("/papers/starred", s.listStarredPapers)
		r.Post("/papers/star", s.starPaper)
		r.Get("/papers/star/*", s.getStarState)
		r.Delete("/papers/star/*", s.unstarPaper)
		r.Post("/papers/export", s.exportPaper)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
