package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"socsync/internal/config"
)

func testTelemetryConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		SampleRatio:    1.0,
		Environment:    "test",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(testTelemetryConfig(), discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelDisabledExporters(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{
		TraceExporter:  "none",
		MetricExporter: "none",
	}, discardLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)

	// no-op instruments are still usable
	require.NotNil(t, providers.Meter)
	metrics, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)
	RecordRunMetrics(context.Background(), metrics, "run-1", time.Second, 3, "")

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestOTelUnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(config.TelemetryConfig{TraceExporter: "jaeger"}, discardLogger())
	assert.Error(t, err)

	_, err = InitializeOTel(config.TelemetryConfig{MetricExporter: "statsd"}, discardLogger())
	assert.Error(t, err)
}

func TestTraceCorrelation(t *testing.T) {
	providers, err := InitializeOTel(testTelemetryConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := otel.Tracer("test").Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)

	RecordError(ctx, assert.AnError)
	assert.True(t, span.IsRecording())
}

func TestPipelineMetricsExposed(t *testing.T) {
	providers, err := InitializeOTel(testTelemetryConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordActiveRunChange(ctx, metrics, 1)
	RecordStageMetrics(ctx, metrics, "extract", 2*time.Second, true)
	RecordRunMetrics(ctx, metrics, "run-1", time.Minute, 5, "")
	RecordRunMetrics(ctx, metrics, "run-2", time.Minute, 0, "SCHEMA")
	RecordSkippedRun(ctx, metrics)
	RecordActiveRunChange(ctx, metrics, -1)

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "pipeline_runs_total")
	assert.Contains(t, string(body), "pipeline_rows_published_total")
	assert.Contains(t, string(body), "pipeline_errors_total")
	assert.Contains(t, string(body), `error_kind="SCHEMA"`)
}

func TestRecordWithNilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordRunMetrics(ctx, nil, "run", time.Second, 1, "")
		RecordStageMetrics(ctx, nil, "stage", time.Second, false)
		RecordActiveRunChange(ctx, nil, 1)
		RecordSkippedRun(ctx, nil)
	})
}
