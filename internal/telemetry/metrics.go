package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the timeline instruments.
type Metrics struct {
	timelinesCreated   metric.Int64Counter
	transitions        metric.Int64Counter
	entriesInserted    metric.Int64Counter
	entriesDeleted     metric.Int64Counter
	transitionDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	if m.timelinesCreated, err = meter.Int64Counter("agro.timeline.created",
		metric.WithDescription("Production timelines generated"),
	); err != nil {
		return nil, err
	}
	if m.transitions, err = meter.Int64Counter("agro.timeline.transitions",
		metric.WithDescription("Flow transitions by move kind and outcome"),
	); err != nil {
		return nil, err
	}
	if m.entriesInserted, err = meter.Int64Counter("agro.timeline.entries.inserted",
		metric.WithDescription("Timeline entries written"),
	); err != nil {
		return nil, err
	}
	if m.entriesDeleted, err = meter.Int64Counter("agro.timeline.entries.deleted",
		metric.WithDescription("Timeline entries removed by rebuilds"),
	); err != nil {
		return nil, err
	}
	if m.transitionDuration, err = meter.Float64Histogram("agro.timeline.transition.duration",
		metric.WithDescription("Flow transition latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewNopMetrics returns Metrics backed by a no-op meter.
func NewNopMetrics() *Metrics {
	m, _ := NewMetrics(metricnoop.NewMeterProvider().Meter(InstrumentationScope))
	return m
}

// TimelineCreated records a generated timeline of n entries.
func (m *Metrics) TimelineCreated(ctx context.Context, n int) {
	m.timelinesCreated.Add(ctx, 1)
	m.entriesInserted.Add(ctx, int64(n))
}

// Transition records one transition attempt. kind is empty when the move
// was rejected before classification.
func (m *Metrics) Transition(ctx context.Context, kind, outcome string, inserted, deleted int64, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("move_kind", kind),
		attribute.String("outcome", outcome),
	)
	m.transitions.Add(ctx, 1, attrs)
	m.transitionDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	if inserted > 0 {
		m.entriesInserted.Add(ctx, inserted)
	}
	if deleted > 0 {
		m.entriesDeleted.Add(ctx, deleted)
	}
}
