package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/wikisync/internal/config"
	"github.com/dgallion1/wikisync/internal/confluence"
	"github.com/dgallion1/wikisync/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunQueue accepts sync runs and reports on them. *pipeline.Orchestrator
// implements it.
type RunQueue interface {
	Submit(run *pipeline.Run) error
	GetRun(id string) *pipeline.Run
	QueueDepth() int
}

// Server is the HTTP API server for wikisync.
type Server struct {
	router chi.Router
	runs   RunQueue
	stats  *confluence.CallStats
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(runs RunQueue, stats *confluence.CallStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		runs:  runs,
		stats: stats,
		log:   log,
		cfg:   cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/sync", s.handleSync)
		r.Get("/api/sync/{runID}/status", s.handleSyncStatus)
		r.Get("/api/nav", s.handleNav)
		r.Get("/api/stats/gateway", s.handleGatewayStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
