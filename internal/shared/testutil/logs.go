package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log record with its attributes flattened
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// logStore is shared by a handler and the handlers derived from it
type logStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// CaptureHandler records every log record for assertions
type CaptureHandler struct {
	store *logStore
	attrs []slog.Attr
	t     *testing.T
}

// NewCaptureLogger returns a logger whose records can be inspected through
// the returned handler. Records are echoed to t.Log.
func NewCaptureLogger(t *testing.T) (*slog.Logger, *CaptureHandler) {
	h := &CaptureHandler{store: &logStore{}, t: t}
	return slog.New(h), h
}

// Enabled implements slog.Handler
func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler
func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.store.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &CaptureHandler{store: h.store, attrs: merged, t: h.t}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *CaptureHandler) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of everything captured so far
func (h *CaptureHandler) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return append([]LogRecord(nil), h.store.records...)
}

// Find returns the first record at level whose message contains msg
func (h *CaptureHandler) Find(level slog.Level, msg string) (LogRecord, bool) {
	for _, r := range h.Records() {
		if r.Level == level && strings.Contains(r.Message, msg) {
			return r, true
		}
	}
	return LogRecord{}, false
}

// AssertLogged fails t unless a record at level contains msg
func AssertLogged(t *testing.T, h *CaptureHandler, level slog.Level, msg string) LogRecord {
	t.Helper()
	r, ok := h.Find(level, msg)
	if !ok {
		t.Errorf("no %s record containing %q", level, msg)
		for _, rec := range h.Records() {
			t.Logf("  - [%s] %s", rec.Level, rec.Message)
		}
	}
	return r
}
