package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"socsync/internal/middleware"
	"socsync/internal/operations"
	"socsync/pkg/contracts"
)

// RunSource exposes the most recent pipeline run
type RunSource interface {
	LastRun() *operations.RunResponse
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
	Running   bool      `json:"running"`
}

// HealthHandler handles health and run status requests
type HealthHandler struct {
	runs    RunSource
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(runs RunSource, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		runs:    runs,
		started: time.Now(),
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Version:   contracts.Version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
	if last := h.runs.LastRun(); last != nil {
		resp.Running = !last.Status.IsTerminal()
	}
	render.JSON(w, r, resp)
}

// Status handles GET /status
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	last := h.runs.LastRun()
	if last == nil {
		h.logger.DebugContext(r.Context(), "Status requested before any run")
		middleware.WriteProblem(w, r, middleware.ProblemFromStatus(http.StatusNotFound,
			"no run has started yet", middleware.GetReqID(r.Context())))
		return
	}
	render.JSON(w, r, last)
}

// Version handles GET /version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
