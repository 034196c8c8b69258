package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"socsync/internal/config"
)

const (
	ServiceName = config.AppName
	MeterName   = "socsync"
)

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics according to cfg. Disabled
// exporters leave no-op implementations in place so callers never nil-check.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", ServiceName),
		slog.String("version", config.AppVersion),
		slog.String("environment", cfg.Environment),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	res := createResource(cfg)

	providers := &OTelProviders{
		Logger: logger,
		Tracer: otel.GetTracerProvider().Tracer(MeterName),
		Meter:  noop.NewMeterProvider().Meter(MeterName),
	}

	if err := initializeTracing(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg config.TelemetryConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))

	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics backed by a private
// Prometheus registry served from PrometheusHTTP.
func initializeMetrics(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		registry := promclient.NewRegistry()

		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))

		otel.SetMeterProvider(mp)
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// PipelineMetrics holds the instruments recorded by pipeline runs
type PipelineMetrics struct {
	RunsTotal      metric.Int64Counter
	RunDuration    metric.Float64Histogram
	RunsSkipped    metric.Int64Counter
	ActiveRuns     metric.Int64UpDownCounter
	StagesTotal    metric.Int64Counter
	StageDuration  metric.Float64Histogram
	RowsPublished  metric.Int64Counter
	TablesRead     metric.Int64Counter
	DownloadBytes  metric.Int64Histogram
	PipelineErrors metric.Int64Counter
}

// CreatePipelineMetrics creates the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	var (
		m   PipelineMetrics
		err error
	)

	if m.RunsTotal, err = meter.Int64Counter(
		"pipeline_runs_total",
		metric.WithDescription("Total number of pipeline runs by outcome"),
	); err != nil {
		return nil, err
	}

	if m.RunDuration, err = meter.Float64Histogram(
		"pipeline_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.RunsSkipped, err = meter.Int64Counter(
		"pipeline_runs_skipped_total",
		metric.WithDescription("Scheduled runs skipped because a run was already active"),
	); err != nil {
		return nil, err
	}

	if m.ActiveRuns, err = meter.Int64UpDownCounter(
		"pipeline_active_runs",
		metric.WithDescription("Number of active pipeline runs"),
	); err != nil {
		return nil, err
	}

	if m.StagesTotal, err = meter.Int64Counter(
		"pipeline_stages_total",
		metric.WithDescription("Total number of pipeline stages executed"),
	); err != nil {
		return nil, err
	}

	if m.StageDuration, err = meter.Float64Histogram(
		"pipeline_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.RowsPublished, err = meter.Int64Counter(
		"pipeline_rows_published_total",
		metric.WithDescription("Rows written to the destination sheet"),
	); err != nil {
		return nil, err
	}

	if m.TablesRead, err = meter.Int64Counter(
		"pipeline_tables_read_total",
		metric.WithDescription("Tabular files read from extracted archives"),
	); err != nil {
		return nil, err
	}

	if m.DownloadBytes, err = meter.Int64Histogram(
		"pipeline_download_bytes",
		metric.WithDescription("Size of downloaded report archives"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if m.PipelineErrors, err = meter.Int64Counter(
		"pipeline_errors_total",
		metric.WithDescription("Total number of pipeline errors by kind"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// RecordRunMetrics records the outcome of a pipeline run. kind is empty on success.
func RecordRunMetrics(ctx context.Context, metrics *PipelineMetrics, runID string, duration time.Duration, rows int, kind string) {
	if metrics == nil {
		return
	}

	status := "success"
	if kind != "" {
		status = "failure"
	}

	attrs := metric.WithAttributes(attribute.String("status", status))
	metrics.RunsTotal.Add(ctx, 1, attrs)
	metrics.RunDuration.Record(ctx, duration.Seconds(), attrs)

	if kind != "" {
		metrics.PipelineErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error.kind", kind)))
	} else if rows > 0 {
		metrics.RowsPublished.Add(ctx, int64(rows))
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("pipeline.metrics_recorded",
			trace.WithAttributes(
				attribute.String("run.id", runID),
				attribute.String("status", status),
				attribute.Int("rows", rows),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordStageMetrics records metrics for a single pipeline stage
func RecordStageMetrics(ctx context.Context, metrics *PipelineMetrics, stage string, duration time.Duration, success bool) {
	if metrics == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}

	metrics.StagesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	metrics.StageDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage), attribute.String("status", status)))
}

// RecordActiveRunChange records changes in the active run count
func RecordActiveRunChange(ctx context.Context, metrics *PipelineMetrics, delta int64) {
	if metrics == nil {
		return
	}
	metrics.ActiveRuns.Add(ctx, delta)
}

// RecordSkippedRun records a scheduled run that was dropped due to overlap
func RecordSkippedRun(ctx context.Context, metrics *PipelineMetrics) {
	if metrics == nil {
		return
	}
	metrics.RunsSkipped.Add(ctx, 1)
}
