package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsync/internal/infrastructure"
)

func TestRequestIDPropagatesHeader(t *testing.T) {
	var seen, trace string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetReqID(r.Context())
		trace = infrastructure.GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", trace)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDGenerates(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestRecovererWritesProblem(t *testing.T) {
	logger := infrastructure.NewLogger(io.Discard, "error")
	h := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "/errors/internal-server-error", p.Type)
	assert.Equal(t, "/status", p.Instance)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	r := chi.NewRouter()
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "/errors/not-found")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "/errors/method-not-allowed")
}

func TestProblemFromStatusDefault(t *testing.T) {
	p := ProblemFromStatus(http.StatusTeapot, "short and stout", "t1")
	assert.Equal(t, "/errors/unknown", p.Type)
	assert.Equal(t, "I'm a teapot", p.Title)
	assert.Equal(t, "t1", p.Trace)
}
