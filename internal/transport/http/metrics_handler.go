package http

import (
	"net/http"

	"socsync/internal/middleware"
)

// MetricsHandler serves the Prometheus exposition
type MetricsHandler struct {
	exposition http.Handler
}

// NewMetricsHandler wraps the Prometheus handler. A nil handler means
// metrics are disabled and the endpoint answers 404.
func NewMetricsHandler(exposition http.Handler) *MetricsHandler {
	return &MetricsHandler{exposition: exposition}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		middleware.WriteProblem(w, r, middleware.ProblemFromStatus(http.StatusNotFound,
			"metrics exporter is disabled", middleware.GetReqID(r.Context())))
		return
	}
	h.exposition.ServeHTTP(w, r)
}
