package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Kind classifies a pipeline failure. Every kind maps to a distinct exit code.
type Kind string

const (
	KindUnknown         Kind = "UNKNOWN"
	KindConfig          Kind = "CONFIG"
	KindLoginTimeout    Kind = "LOGIN_TIMEOUT"
	KindReportTimeout   Kind = "REPORT_TIMEOUT"
	KindDownloadTimeout Kind = "DOWNLOAD_TIMEOUT"
	KindAutomation      Kind = "AUTOMATION"
	KindFileOperation   Kind = "FILE_OPERATION"
	KindArchive         Kind = "ARCHIVE"
	KindSchema          Kind = "SCHEMA"
	KindCredential      Kind = "CREDENTIAL"
	KindPublish         Kind = "PUBLISH"
	KindCancelled       Kind = "CANCELLED"
)

// PipelineError is the error type returned by every stage of a run.
type PipelineError struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e == nil {
		return "unknown pipeline error"
	}
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap allows errors.Is and errors.As to reach the cause
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// WithContext attaches a diagnostic value to the error
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a pipeline error of the given kind
func New(kind Kind, op, message string, cause error) *PipelineError {
	return &PipelineError{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// KindOf returns the kind of the first PipelineError in err's chain.
// Bare context cancellation is reported as KindCancelled.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Kind
	}
	if stderrors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ContextOf returns the diagnostic context of the first PipelineError in err's chain
func ContextOf(err error) map[string]interface{} {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Context
	}
	return nil
}
