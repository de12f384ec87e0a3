// Package api exposes the job orchestration service over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"scribe/internal/config"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/stats"
)

// Submitter hands an accepted job to the bounded worker pool.
type Submitter interface {
	Submit(ctx context.Context, job jobs.Job)
}

// Server routes HTTP requests to the job store, estimator and scheduler.
type Server struct {
	cfg       *config.Config
	store     *jobs.Store
	estimator *stats.Estimator
	submitter Submitter
	logger    *slog.Logger
	router    chi.Router
}

// NewServer wires the HTTP surface.
func NewServer(cfg *config.Config, store *jobs.Store, estimator *stats.Estimator, submitter Submitter, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		estimator: estimator,
		submitter: submitter,
		logger:    logging.WithComponent(logger, "api"),
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiKeyMiddleware(s.cfg.Paths.APIToken))

		r.Post("/jobs", s.handleSubmit)
		r.Get("/jobs", s.handleList)
		r.Get("/jobs/{id}", s.handleGet)
		r.Delete("/jobs/{id}", s.handleDelete)
		r.Get("/jobs/{id}/result", s.handleResult)
		r.Get("/jobs/{id}/download", s.handleDownload)
		r.Post("/results", s.handleBatchResult)
		r.Post("/estimate", s.handleEstimate)
		r.Get("/stats", s.handleStats)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
