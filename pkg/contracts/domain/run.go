package domain

import (
	"time"
)

// RunStatus represents the status of a pipeline run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusEmpty     RunStatus = "empty"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusEmpty, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// RunReport summarises a finished (or in-flight) pipeline run
type RunReport struct {
	ID          string         `json:"id"`
	Status      RunStatus      `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Duration    string         `json:"duration,omitempty"`
	Archive     string         `json:"archive,omitempty"`
	Tables      int            `json:"tables"`
	Rows        int            `json:"rows"`
	Stages      []StageReport  `json:"stages"`
	ErrorKind   string         `json:"error_kind,omitempty"`
	Error       string         `json:"error,omitempty"`
	Trigger     string         `json:"trigger,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// StageReport summarises a single stage of a run
type StageReport struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Duration string `json:"duration,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}
