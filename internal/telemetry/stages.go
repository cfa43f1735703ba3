package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/patternd/internal/telemetry"

// StageMetrics records per-stage search pipeline durations via OTel.
type StageMetrics struct {
	meter    metric.Meter
	logger   *zap.Logger
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewStageMetrics creates a StageMetrics instance.
func NewStageMetrics(logger *zap.Logger) *StageMetrics {
	m := &StageMetrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *StageMetrics) init() {
	var err error

	// Unit suffixes are appended by the exporter; keep them out of the
	// instrument names.
	m.duration, err = m.meter.Float64Histogram(
		"patternd.search.stage.duration",
		metric.WithDescription("Duration of one search pipeline stage (analyze, embed, dense, sparse, graph, fuzzy, blend)"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5),
	)
	if err != nil {
		m.logger.Warn("failed to create stage duration histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"patternd.search.stage.errors",
		metric.WithDescription("Total stage errors, including absorbed degradations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create stage errors counter", zap.Error(err))
	}
}

// RecordStage records one stage execution.
func (m *StageMetrics) RecordStage(ctx context.Context, stage string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}
