package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status RunStatus
		want   bool
	}{
		{RunStatusPending, false},
		{RunStatusRunning, false},
		{RunStatusCompleted, true},
		{RunStatusEmpty, true},
		{RunStatusFailed, true},
		{RunStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}
