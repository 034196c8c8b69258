package operations

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"socsync/internal/errors"
	"socsync/internal/infrastructure"
	"socsync/pkg/contracts/domain"
)

// Manager orchestrates run execution
type Manager struct {
	registry       *Registry
	tracer         *OperationTracer
	logger         *slog.Logger
	cleanupTimeout time.Duration

	mu   sync.RWMutex
	last *RunResponse
}

// NewManager creates a run manager. A nil tracer disables metrics.
func NewManager(logger *slog.Logger, tracer *OperationTracer) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer, _ = NewOperationTracer(nil)
	}
	return &Manager{
		registry:       NewRegistry(),
		tracer:         tracer,
		logger:         logger.With(slog.String("component", "operations")),
		cleanupTimeout: DefaultCleanupTimeout,
	}
}

// RegisterStage registers a Step. Steps run in registration order.
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the registry for accessing registered steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// LastRun returns the most recent run, in progress or finished, or nil
func (m *Manager) LastRun() *RunResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Execute runs every registered step in order. The first failure stops the
// run; registered cleanups always run before Execute returns.
func (m *Manager) Execute(ctx context.Context, req RunRequest) (*RunResponse, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	ctx = infrastructure.WithRunID(infrastructure.EnsureTraceID(ctx), req.ID)
	state := NewOperationState(req.ID)
	state.Trigger = req.Trigger

	steps := m.registry.List()
	for _, step := range steps {
		state.AddStage(NewStepState(step.ID(), step.Name()))
	}

	ctx, span := m.tracer.TraceOperationExecution(ctx, req.ID, req)

	state.Start()
	m.setLast(state)
	m.logger.InfoContext(ctx, "Run started",
		slog.String("trigger", req.Trigger),
		slog.Int("step_count", len(steps)))

	err := m.executeSequential(ctx, state, steps)
	m.runCleanups(ctx, state)

	switch {
	case err == nil:
		state.Complete()
	case errors.IsKind(err, errors.KindCancelled):
		state.Cancel(err)
	default:
		state.Fail(err)
	}

	m.tracer.RecordOperationCompletion(ctx, span, state, err)
	resp := m.setLast(state)
	m.logRunOutcome(ctx, state, err)

	return resp, err
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for i, step := range steps {
		if ctx.Err() != nil {
			m.logger.WarnContext(ctx, "Run cancelled", slog.String("step", step.ID()))
			m.skipRemaining(state, steps[i:], "run cancelled")
			return errors.FromContext(ctx, step.ID(), nil)
		}

		m.logger.InfoContext(ctx, "Executing step",
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := m.executeStage(ctx, state, step); err != nil {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("step %s failed", step.ID()))
			return err
		}

		if halted, reason := state.Halted(); halted {
			m.logger.InfoContext(ctx, "Run halted",
				slog.String("step", step.ID()),
				slog.String("reason", reason))
			m.skipRemaining(state, steps[i+1:], reason)
			return nil
		}
	}
	return nil
}

// executeStage executes a single Step
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return errors.New(errors.KindUnknown, step.ID(), "step state not found", nil)
	}

	stageCtx, span := m.tracer.TraceStageExecution(ctx, state.ID, step.ID())
	stepState.Start()
	m.setLast(state)
	start := time.Now()
	err := step.Execute(stageCtx, state)
	duration := time.Since(start)

	if err != nil {
		err = classify(ctx, step.ID(), err)
		stepState.Fail(err)
		m.setLast(state)
		m.tracer.RecordStageCompletion(stageCtx, span, step.ID(), duration, err)
		m.logger.ErrorContext(ctx, "Step failed",
			slog.String("step", step.ID()),
			slog.Duration("duration", duration),
			slog.String("error_kind", string(errors.KindOf(err))),
			slog.String("error", err.Error()),
			slog.Any("context", errors.ContextOf(err)))
		return err
	}

	stepState.Complete()
	m.setLast(state)
	m.tracer.RecordStageCompletion(stageCtx, span, step.ID(), duration, nil)
	m.logger.InfoContext(ctx, "Step completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	return nil
}

// classify makes sure a step error carries a kind
func classify(ctx context.Context, stepID string, err error) error {
	var pe *errors.PipelineError
	if stderrors.As(err, &pe) {
		return err
	}
	if ctx.Err() != nil {
		return errors.FromContext(ctx, stepID, nil)
	}
	return errors.New(errors.KindUnknown, stepID, "step failed", err)
}

func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStage(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
		}
	}
}

// runCleanups runs the registered cleanups in reverse order. Failures are
// logged and never change the outcome of the run.
func (m *Manager) runCleanups(ctx context.Context, state *OperationState) {
	cleanups := state.takeCleanups()
	if len(cleanups) == 0 {
		return
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cleanupTimeout)
	defer cancel()

	for _, c := range cleanups {
		if err := c.Fn(cleanupCtx); err != nil {
			m.logger.WarnContext(cleanupCtx, "Cleanup failed",
				slog.String("cleanup", c.Name),
				slog.String("error", err.Error()))
			continue
		}
		m.logger.DebugContext(cleanupCtx, "Cleanup done", slog.String("cleanup", c.Name))
	}
}

func (m *Manager) logRunOutcome(ctx context.Context, state *OperationState, err error) {
	attrs := []any{
		slog.String("status", string(state.GetStatus())),
		slog.Duration("duration", state.Duration()),
		slog.Int("tables", state.GetInt(ContextKeyTables)),
		slog.Int("rows", state.GetInt(ContextKeyRows)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("error_kind", string(errors.KindOf(err))),
			slog.String("error", err.Error()))
		m.logger.ErrorContext(ctx, "Run failed", attrs...)
		return
	}
	m.logger.InfoContext(ctx, "Run finished", attrs...)
}

// setLast snapshots state as the latest run
func (m *Manager) setLast(state *OperationState) *RunResponse {
	resp := createResponse(state)
	m.mu.Lock()
	m.last = resp
	m.mu.Unlock()
	return resp
}

// createResponse creates a run response from state
func createResponse(state *OperationState) *RunResponse {
	state.mu.RLock()
	report := domain.RunReport{
		ID:        state.ID,
		Status:    state.Status,
		StartedAt: state.StartTime,
		Trigger:   state.Trigger,
		Stages:    make([]domain.StageReport, 0, len(state.Steps)),
	}
	if state.EndTime != nil {
		end := *state.EndTime
		report.CompletedAt = &end
		report.Duration = end.Sub(state.StartTime).String()
	}
	if state.Error != nil {
		report.Error = state.Error.Error()
		report.ErrorKind = string(errors.KindOf(state.Error))
	}
	if v, ok := state.Context[ContextKeyArchive].(*domain.CanonicalArchive); ok && v != nil {
		report.Archive = v.Path
	}
	report.Tables, _ = state.Context[ContextKeyTables].(int)
	report.Rows, _ = state.Context[ContextKeyRows].(int)
	if state.halted {
		report.Metadata = map[string]any{"halt_reason": state.haltReason}
	}
	steps := state.Steps
	state.mu.RUnlock()

	for _, s := range steps {
		s.mu.RLock()
		sr := domain.StageReport{
			ID:      s.ID,
			Name:    s.Name,
			Status:  string(s.Status),
			Message: s.Message,
		}
		if s.StartTime != nil && s.EndTime != nil {
			sr.Duration = s.EndTime.Sub(*s.StartTime).String()
		}
		if s.Error != nil {
			sr.Error = s.Error.Error()
		}
		s.mu.RUnlock()
		report.Stages = append(report.Stages, sr)
	}

	return &RunResponse{RunReport: report}
}
