package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"socsync/internal/middleware"
)

// NewRouter builds the router for the scheduled service
func NewRouter(runs RunSource, metrics http.Handler, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	health := NewHealthHandler(runs, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))

	r.NotFound(middleware.NotFound)
	r.MethodNotAllowed(middleware.MethodNotAllowed)

	r.Get("/healthz", health.HealthCheck)
	r.Get("/status", health.Status)
	r.Get("/version", health.Version)
	r.Method(http.MethodGet, "/metrics", NewMetricsHandler(metrics))

	return r
}
