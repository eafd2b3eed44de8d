package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sum(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	s, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "not an int64 sum: %T", agg)
	var total int64
	for _, dp := range s.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter(InstrumentationScope))
	require.NoError(t, err)

	ctx := context.Background()
	m.TimelineCreated(ctx, 9)
	m.Transition(ctx, "forward_boundary", "ok", 6, 3, 2*time.Millisecond)
	m.Transition(ctx, "blocked", "rejected", 0, 0, time.Millisecond)

	data := collect(t, reader)
	assert.Equal(t, int64(1), sum(t, data["agro.timeline.created"]))
	assert.Equal(t, int64(15), sum(t, data["agro.timeline.entries.inserted"]))
	assert.Equal(t, int64(3), sum(t, data["agro.timeline.entries.deleted"]))

	transitions := data["agro.timeline.transitions"].(metricdata.Sum[int64])
	require.Len(t, transitions.DataPoints, 2)
	kinds := map[string]bool{}
	for _, dp := range transitions.DataPoints {
		v, ok := dp.Attributes.Value(attribute.Key("move_kind"))
		require.True(t, ok)
		kinds[v.AsString()] = true
	}
	assert.True(t, kinds["forward_boundary"])
	assert.True(t, kinds["blocked"])

	hist, ok := data["agro.timeline.transition.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	m, err := NewMetrics(Meter())
	require.NoError(t, err)
	m.Transition(context.Background(), "forward", "ok", 1, 0, time.Millisecond)
}

func TestInit_Enabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: true, ServiceName: "agro-test", Version: "test"})
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "probe")
	span.End()
	assert.True(t, span.SpanContext().IsValid())

	assert.NoError(t, shutdown(context.Background()))
}

func TestNopMetrics(t *testing.T) {
	m := NewNopMetrics()
	require.NotNil(t, m)
	m.TimelineCreated(context.Background(), 3)
}
