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

// MetricsRecorder records editor metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordLoad records a flow load, its origin ("store", "cache",
	// "empty"), and whether it failed outright.
	RecordLoad(ctx context.Context, source string, duration time.Duration, err error)

	// RecordSave records a flow save.
	RecordSave(ctx context.Context, duration time.Duration, err error)

	// RecordCompaction records a compaction pass with the node counts
	// before and after.
	RecordCompaction(ctx context.Context, nodesIn, nodesOut int, duration time.Duration)

	// RecordMutation records one graph mutation by operation name
	// ("add_node", "delete_node", "connect", ...).
	RecordMutation(ctx context.Context, op string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	loads          metric.Int64Counter
	loadLatency    metric.Float64Histogram
	loadErrors     metric.Int64Counter
	saves          metric.Int64Counter
	saveLatency    metric.Float64Histogram
	saveErrors     metric.Int64Counter
	compactLatency metric.Float64Histogram
	compactRemoved metric.Int64Histogram
	mutations      metric.Int64Counter
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
	meter := otel.Meter("flowedit")

	loads, err := meter.Int64Counter("flowedit.session.loads",
		metric.WithDescription("Number of flow loads by source"),
	)
	if err != nil {
		return nil, err
	}

	loadLatency, err := meter.Float64Histogram("flowedit.session.load_latency_ms",
		metric.WithDescription("Flow load latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	loadErrors, err := meter.Int64Counter("flowedit.session.load_errors",
		metric.WithDescription("Number of flow loads that failed with no fallback"),
	)
	if err != nil {
		return nil, err
	}

	saves, err := meter.Int64Counter("flowedit.session.saves",
		metric.WithDescription("Number of flow saves"),
	)
	if err != nil {
		return nil, err
	}

	saveLatency, err := meter.Float64Histogram("flowedit.session.save_latency_ms",
		metric.WithDescription("Flow save latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	saveErrors, err := meter.Int64Counter("flowedit.session.save_errors",
		metric.WithDescription("Number of failed flow saves"),
	)
	if err != nil {
		return nil, err
	}

	compactLatency, err := meter.Float64Histogram("flowedit.compact.latency_ms",
		metric.WithDescription("Flow compaction latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	compactRemoved, err := meter.Int64Histogram("flowedit.compact.nodes_removed",
		metric.WithDescription("Nodes removed per compaction pass"),
	)
	if err != nil {
		return nil, err
	}

	mutations, err := meter.Int64Counter("flowedit.graph.mutations",
		metric.WithDescription("Number of graph mutations by operation"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		loads:          loads,
		loadLatency:    loadLatency,
		loadErrors:     loadErrors,
		saves:          saves,
		saveLatency:    saveLatency,
		saveErrors:     saveErrors,
		compactLatency: compactLatency,
		compactRemoved: compactRemoved,
		mutations:      mutations,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
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

// RecordLoad records a flow load.
func (m *otelMetrics) RecordLoad(ctx context.Context, source string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("source", source),
	}
	m.loads.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.loadLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.loadErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordSave records a flow save.
func (m *otelMetrics) RecordSave(ctx context.Context, duration time.Duration, err error) {
	m.saves.Add(ctx, 1)
	m.saveLatency.Record(ctx, float64(duration.Milliseconds()))
	if err != nil {
		m.saveErrors.Add(ctx, 1)
	}
}

// RecordCompaction records a compaction pass.
func (m *otelMetrics) RecordCompaction(ctx context.Context, nodesIn, nodesOut int, duration time.Duration) {
	m.compactLatency.Record(ctx, float64(duration.Milliseconds()))
	m.compactRemoved.Record(ctx, int64(nodesIn-nodesOut))
}

// RecordMutation records one graph mutation.
func (m *otelMetrics) RecordMutation(ctx context.Context, op string) {
	m.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
