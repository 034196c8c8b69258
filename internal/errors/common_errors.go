package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
)

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *PipelineError {
	return New(KindConfig, "config", message, cause)
}

// NewLoginTimeoutError creates an error for a login form that never appeared
func NewLoginTimeoutError(op string, cause error) *PipelineError {
	return New(KindLoginTimeout, op, "login form did not appear in time", cause)
}

// NewReportTimeoutError creates an error for a report that was not generated in time
func NewReportTimeoutError(op, waited string) *PipelineError {
	return New(KindReportTimeout, op, fmt.Sprintf("report not ready after %s", waited), nil).
		WithContext("waited", waited)
}

// NewDownloadTimeoutError creates an error for a download that never completed
func NewDownloadTimeoutError(op string, cause error) *PipelineError {
	return New(KindDownloadTimeout, op, "download did not complete in time", cause)
}

// NewAutomationError creates an error for an unexpected UI interaction failure
func NewAutomationError(op string, cause error) *PipelineError {
	return New(KindAutomation, op, "browser interaction failed", cause)
}

// NewFileOperationError creates a local file system error
func NewFileOperationError(op, path string, cause error) *PipelineError {
	return New(KindFileOperation, op, fmt.Sprintf("file operation failed on %s", path), cause).
		WithContext("path", path)
}

// NewArchiveError creates an error for a corrupt or unreadable archive
func NewArchiveError(path string, cause error) *PipelineError {
	return New(KindArchive, "extract", fmt.Sprintf("cannot read archive %s", path), cause).
		WithContext("path", path)
}

// NewSchemaError creates an error for tabular data that does not match the expected columns
func NewSchemaError(message string, observed, missing []string) *PipelineError {
	e := New(KindSchema, "normalize", message, nil)
	if observed != nil {
		e.WithContext("observed_columns", observed)
	}
	if len(missing) > 0 {
		e.WithContext("missing_columns", missing)
		e.Message = fmt.Sprintf("%s: missing %s", message, strings.Join(missing, ", "))
	}
	return e
}

// NewCredentialError creates an error for an absent or rejected service credential
func NewCredentialError(message string, cause error) *PipelineError {
	return New(KindCredential, "publish", message, cause)
}

// NewPublishError creates an error for a spreadsheet backend call that failed
// for a reason other than authentication
func NewPublishError(op string, cause error) *PipelineError {
	return New(KindPublish, op, "spreadsheet backend call failed", cause)
}

// NewCancelledError creates an error for a run cancelled from outside
func NewCancelledError(op string, cause error) *PipelineError {
	return New(KindCancelled, op, "run was cancelled", cause)
}

// FromContext converts a finished context into a pipeline error. Deadline
// expiry is mapped to the supplied timeout kind, cancellation to KindCancelled.
func FromContext(ctx context.Context, op string, timeout func(error) *PipelineError) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded) && timeout != nil:
		return timeout(err)
	default:
		return NewCancelledError(op, err)
	}
}
