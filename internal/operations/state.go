package operations

import (
	"context"
	"sync"
	"time"

	"socsync/pkg/contracts/domain"
)

// Cleanup is a teardown action registered by a step
type Cleanup struct {
	Name string
	Fn   func(ctx context.Context) error
}

// OperationState represents the complete state of a run
type OperationState struct {
	mu sync.RWMutex

	ID        string
	Trigger   string
	Status    domain.RunStatus
	StartTime time.Time
	EndTime   *time.Time

	// Steps in execution order
	Steps []*StepState

	// Context passes values between steps
	Context map[string]interface{}

	Error error

	halted     bool
	haltReason string
	cleanups   []Cleanup
}

// NewOperationState creates a new run state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    domain.RunStatusPending,
		StartTime: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// Start marks the run as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = domain.RunStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the run as completed, or empty when a step halted it
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = domain.RunStatusCompleted
	if p.halted {
		p.Status = domain.RunStatusEmpty
	}
}

// Fail marks the run as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = domain.RunStatusFailed
	p.Error = err
}

// Cancel marks the run as cancelled
func (p *OperationState) Cancel(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = domain.RunStatusCancelled
	p.Error = err
}

// Halt stops the run after the current step without failing it
func (p *OperationState) Halt(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.halted = true
	p.haltReason = reason
}

// Halted reports whether a step halted the run, and why
func (p *OperationState) Halted() (bool, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.halted, p.haltReason
}

// AddCleanup registers a teardown action. Cleanups run in reverse order.
func (p *OperationState) AddCleanup(name string, fn func(ctx context.Context) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleanups = append(p.cleanups, Cleanup{Name: name, Fn: fn})
}

// takeCleanups returns the registered cleanups in execution (LIFO) order and
// clears them so they run at most once
func (p *OperationState) takeCleanups() []Cleanup {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Cleanup, 0, len(p.cleanups))
	for i := len(p.cleanups) - 1; i >= 0; i-- {
		out = append(out, p.cleanups[i])
	}
	p.cleanups = nil
	return out
}

// AddStage appends a step state in execution order
func (p *OperationState) AddStage(state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps = append(p.Steps, state)
}

// GetStage returns the state of a specific Step
func (p *OperationState) GetStage(stageID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.Steps {
		if s.ID == stageID {
			return s
		}
	}
	return nil
}

// GetContext retrieves a value from the run context
func (p *OperationState) GetContext(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Context[key]
	return val, ok
}

// SetContext sets a value in the run context
func (p *OperationState) SetContext(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Context[key] = value
}

// GetInt returns an int context value, or 0
func (p *OperationState) GetInt(key string) int {
	v, _ := p.GetContext(key)
	n, _ := v.(int)
	return n
}

// Duration returns the duration of the run
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// GetStatus returns the run status
func (p *OperationState) GetStatus() domain.RunStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// HasFailures returns true if any Step has failed
func (p *OperationState) HasFailures() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.Steps {
		if s.GetStatus() == StepStatusFailed {
			return true
		}
	}
	return false
}
