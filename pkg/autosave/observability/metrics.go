package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records autosave metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordSave records a save operation with its retry count and outcome.
	RecordSave(ctx context.Context, attempts int, duration time.Duration, err error)

	// RecordRetry records one silently retried failure.
	RecordRetry(ctx context.Context, errType string)

	// RecordBackup records a local backup write.
	RecordBackup(ctx context.Context, sizeBytes int64)

	// RecordRecovery records a recovery prompt resolution.
	RecordRecovery(ctx context.Context, restored bool)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	saves       metric.Int64Counter
	saveLatency metric.Float64Histogram
	saveErrors  metric.Int64Counter
	retries     metric.Int64Counter
	backupSize  metric.Int64Histogram
	recoveries  metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("autosave")

	saves, err := meter.Int64Counter("autosave.save.operations",
		metric.WithDescription("Number of save operations"),
	)
	if err != nil {
		return nil, err
	}

	saveLatency, err := meter.Float64Histogram("autosave.save.latency_ms",
		metric.WithDescription("Save operation latency in milliseconds, including retries"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	saveErrors, err := meter.Int64Counter("autosave.save.errors",
		metric.WithDescription("Number of terminal save failures"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter("autosave.retries",
		metric.WithDescription("Number of silently retried failures"),
	)
	if err != nil {
		return nil, err
	}

	backupSize, err := meter.Int64Histogram("autosave.backup.size_bytes",
		metric.WithDescription("Local backup size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	recoveries, err := meter.Int64Counter("autosave.recoveries",
		metric.WithDescription("Number of recovery prompt resolutions"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		saves:       saves,
		saveLatency: saveLatency,
		saveErrors:  saveErrors,
		retries:     retries,
		backupSize:  backupSize,
		recoveries:  recoveries,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordSave records a save operation.
func (m *otelMetrics) RecordSave(ctx context.Context, attempts int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Int("attempts", attempts),
		attribute.Bool("success", err == nil),
	}

	m.saves.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.saveLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.saveErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordRetry records one silently retried failure.
func (m *otelMetrics) RecordRetry(ctx context.Context, errType string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_type", errType),
	))
}

// RecordBackup records a local backup write.
func (m *otelMetrics) RecordBackup(ctx context.Context, sizeBytes int64) {
	m.backupSize.Record(ctx, sizeBytes)
}

// RecordRecovery records a recovery prompt resolution.
func (m *otelMetrics) RecordRecovery(ctx context.Context, restored bool) {
	m.recoveries.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("restored", restored),
	))
}
