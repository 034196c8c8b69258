package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"socsync/internal/errors"
	"socsync/internal/infrastructure"
	"socsync/pkg/contracts/domain"
)

const (
	TracerName = "socsync.operation"
)

// OperationTracer provides OpenTelemetry instrumentation for runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer from the initialized providers. With
// nil providers spans go to the global tracer and no metrics are recorded.
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	if providers == nil {
		return &OperationTracer{tracer: otel.Tracer(TracerName)}, nil
	}

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	tracer := providers.Tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &OperationTracer{tracer: tracer, metrics: metrics}, nil
}

// Metrics returns the pipeline instruments, nil when metrics are disabled
func (pt *OperationTracer) Metrics() *infrastructure.PipelineMetrics {
	return pt.metrics
}

// TraceOperationExecution creates a span for the entire run
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, runID string, req RunRequest) (context.Context, trace.Span) {
	ctx, span := pt.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.trigger", req.Trigger),
		),
	)
	infrastructure.RecordActiveRunChange(ctx, pt.metrics, 1)
	return ctx, span
}

// TraceStageExecution creates a span for a single step
func (pt *OperationTracer) TraceStageExecution(ctx context.Context, runID, stageID string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "operation.step."+stageID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step.id", stageID),
		),
	)
}

// RecordStageCompletion ends a step span and records its metrics
func (pt *OperationTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stageID string, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if err != nil {
		infrastructure.RecordError(ctx, err,
			trace.WithAttributes(
				attribute.String("step.id", stageID),
				attribute.String("error.kind", string(errors.KindOf(err))),
			),
		)
	} else {
		span.SetStatus(codes.Ok, "step completed")
	}
	infrastructure.RecordStageMetrics(ctx, pt.metrics, stageID, duration, err == nil)
	span.End()
}

// RecordOperationCompletion ends the run span and records run metrics
func (pt *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, state *OperationState, err error) {
	duration := state.Duration()
	rows := state.GetInt(ContextKeyPublished)
	tables := state.GetInt(ContextKeyTables)
	status := state.GetStatus()

	span.SetAttributes(
		attribute.String("run.status", string(status)),
		attribute.Float64("run.duration_seconds", duration.Seconds()),
		attribute.Int("run.rows", rows),
		attribute.Int("run.tables", tables),
	)

	kind := ""
	if err != nil {
		kind = string(errors.KindOf(err))
		infrastructure.RecordError(ctx, err, trace.WithAttributes(attribute.String("run.id", state.ID)))
	} else {
		span.SetStatus(codes.Ok, "run "+string(status))
	}

	if pt.metrics != nil {
		if tables > 0 {
			pt.metrics.TablesRead.Add(ctx, int64(tables))
		}
		if v, ok := state.GetContext(ContextKeyDownload); ok {
			if artifact, ok := v.(*domain.DownloadArtifact); ok && artifact != nil {
				pt.metrics.DownloadBytes.Record(ctx, artifact.Size)
			}
		}
	}
	infrastructure.RecordRunMetrics(ctx, pt.metrics, state.ID, duration, rows, kind)
	infrastructure.RecordActiveRunChange(ctx, pt.metrics, -1)
	span.End()
}
