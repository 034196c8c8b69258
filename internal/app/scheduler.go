package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"socsync/internal/errors"
	"socsync/internal/infrastructure"
)

// RunFunc executes one pipeline run
type RunFunc func(ctx context.Context) error

// Scheduler triggers runs on a cron schedule. A trigger that fires while a
// run is active is skipped, never queued.
type Scheduler struct {
	schedule string
	cron     *cron.Cron
	slot     *semaphore.Weighted
	run      RunFunc
	metrics  *infrastructure.PipelineMetrics
	logger   *slog.Logger
	ctx      context.Context
}

// NewScheduler creates a scheduler for schedule, a standard five field cron
// expression or a descriptor such as @hourly
func NewScheduler(schedule string, run RunFunc, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		schedule: schedule,
		cron:     cron.New(),
		slot:     semaphore.NewWeighted(1),
		run:      run,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// Start registers the job and starts the cron loop. Runs inherit ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	if _, err := s.cron.AddFunc(s.schedule, s.Trigger); err != nil {
		return errors.NewConfigError("invalid schedule "+s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", slog.String("schedule", s.schedule))
	return nil
}

// Trigger runs the pipeline unless a run is already active
func (s *Scheduler) Trigger() {
	s.trigger()
}

// trigger reports whether a run was started
func (s *Scheduler) trigger() bool {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return false
	}

	if !s.slot.TryAcquire(1) {
		s.logger.WarnContext(ctx, "Previous run still active, skipping trigger")
		infrastructure.RecordSkippedRun(ctx, s.metrics)
		return false
	}
	defer s.slot.Release(1)

	if err := s.run(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Scheduled run failed",
			slog.String("error_kind", string(errors.KindOf(err))),
			slog.String("error", err.Error()))
	}
	return true
}

// Stop stops triggering new runs and waits for the active one to return,
// bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with a run still active")
	}
}
