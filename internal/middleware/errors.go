package middleware

import (
	"encoding/json"
	"net/http"
)

// Problem represents an RFC 7807 problem details object
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Trace    string `json:"trace_id,omitempty"`
}

// Render implements the chi render.Renderer interface
func (p Problem) Render(w http.ResponseWriter, r *http.Request) error {
	WriteProblem(w, r, p)
	return nil
}

// WriteProblem writes p as application/problem+json
func WriteProblem(w http.ResponseWriter, r *http.Request, p Problem) {
	if p.Instance == "" && r != nil {
		p.Instance = r.URL.Path
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// ProblemFromStatus creates a Problem from an HTTP status code
func ProblemFromStatus(status int, detail string, traceID string) Problem {
	var title, problemType string

	switch status {
	case http.StatusBadRequest:
		title = "Bad Request"
		problemType = "/errors/bad-request"
	case http.StatusNotFound:
		title = "Not Found"
		problemType = "/errors/not-found"
	case http.StatusMethodNotAllowed:
		title = "Method Not Allowed"
		problemType = "/errors/method-not-allowed"
	case http.StatusConflict:
		title = "Conflict"
		problemType = "/errors/conflict"
	case http.StatusServiceUnavailable:
		title = "Service Unavailable"
		problemType = "/errors/service-unavailable"
	case http.StatusInternalServerError:
		title = "Internal Server Error"
		problemType = "/errors/internal-server-error"
	default:
		title = http.StatusText(status)
		problemType = "/errors/unknown"
	}

	return Problem{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
		Trace:  traceID,
	}
}

// NotFound answers unknown routes with a problem response
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteProblem(w, r, ProblemFromStatus(http.StatusNotFound,
		"no route for "+r.URL.Path, GetReqID(r.Context())))
}

// MethodNotAllowed answers unsupported methods with a problem response
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteProblem(w, r, ProblemFromStatus(http.StatusMethodNotAllowed,
		r.Method+" is not supported on "+r.URL.Path, GetReqID(r.Context())))
}
