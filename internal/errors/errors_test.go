package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *PipelineError
		expected string
	}{
		{
			name:     "with op and cause",
			err:      New(KindArchive, "extract", "cannot read archive", io.ErrUnexpectedEOF),
			expected: "[ARCHIVE] extract: cannot read archive: unexpected EOF",
		},
		{
			name:     "without op",
			err:      New(KindSchema, "", "bad header", nil),
			expected: "[SCHEMA] bad header",
		},
		{
			name:     "nil receiver",
			err:      nil,
			expected: "unknown pipeline error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("step failed: %w", NewCredentialError("rejected", nil))

	assert.Equal(t, KindCredential, KindOf(wrapped))
	assert.Equal(t, KindCancelled, KindOf(context.Canceled))
	assert.Equal(t, KindUnknown, KindOf(io.EOF))
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.True(t, IsKind(wrapped, KindCredential))
	assert.False(t, IsKind(nil, KindCredential))
}

func TestUnwrapReachesCause(t *testing.T) {
	err := NewFileOperationError("materialize", "/tmp/x.zip", io.ErrClosedPipe)
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
	assert.Equal(t, "/tmp/x.zip", err.Context["path"])
}

func TestNewSchemaError(t *testing.T) {
	observed := []string{"Order ID", "Next Station"}
	err := NewSchemaError("required columns absent", observed, []string{"Outbound 3PL", "Current Station"})

	assert.Equal(t, KindSchema, err.Kind)
	assert.Contains(t, err.Error(), "missing Outbound 3PL, Current Station")
	assert.Equal(t, observed, ContextOf(err)["observed_columns"])
	assert.Equal(t, []string{"Outbound 3PL", "Current Station"}, ContextOf(err)["missing_columns"])
}

func TestFromContext(t *testing.T) {
	t.Run("live context", func(t *testing.T) {
		assert.NoError(t, FromContext(context.Background(), "wait", nil))
	})

	t.Run("deadline maps to timeout kind", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()

		err := FromContext(ctx, "download", func(cause error) *PipelineError {
			return NewDownloadTimeoutError("download", cause)
		})
		require.Error(t, err)
		assert.Equal(t, KindDownloadTimeout, KindOf(err))
	})

	t.Run("cancellation maps to cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := FromContext(ctx, "await", func(cause error) *PipelineError {
			return NewDownloadTimeoutError("await", cause)
		})
		assert.Equal(t, KindCancelled, KindOf(err))
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{nil, ExitOK},
		{NewConfigError("bad", nil), ExitConfig},
		{NewLoginTimeoutError("login", nil), ExitLoginTimeout},
		{NewReportTimeoutError("await", "15m0s"), ExitReportTimeout},
		{NewDownloadTimeoutError("download", nil), ExitDownloadTimeout},
		{NewAutomationError("click", nil), ExitAutomation},
		{NewFileOperationError("move", "/x", nil), ExitFileOperation},
		{NewArchiveError("/x.zip", nil), ExitArchive},
		{NewSchemaError("bad", nil, nil), ExitSchema},
		{NewCredentialError("missing", nil), ExitCredential},
		{NewPublishError("write", nil), ExitPublish},
		{NewCancelledError("await", context.Canceled), ExitCancelled},
		{io.EOF, ExitUnknown},
	}

	seen := map[int]Kind{}
	for _, tt := range tests {
		assert.Equal(t, tt.code, ExitCode(tt.err), "kind %s", KindOf(tt.err))
		if tt.err != nil {
			if prev, dup := seen[tt.code]; dup {
				t.Errorf("exit code %d shared by %s and %s", tt.code, prev, KindOf(tt.err))
			}
			seen[tt.code] = KindOf(tt.err)
		}
	}
}
