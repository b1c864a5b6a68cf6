package metrics_test

import (
	"context"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"pagediff/pkg/metrics"
)

func TestBucketsAreSorted(t *testing.T) {
	require.True(t, sort.Float64sAreSorted(metrics.DefaultBuckets))
	require.True(t, sort.Float64sAreSorted(metrics.RatioBuckets))
	require.Equal(t, 1.0, metrics.RatioBuckets[len(metrics.RatioBuckets)-1])
}

func TestMeterProvider(t *testing.T) {
	require.NotNil(t, metrics.MeterProvider(nil))

	mp := sdkmetric.NewMeterProvider()
	require.Same(t, mp, metrics.MeterProvider(mp))
}

func TestNewPrometheusMeterProvider(t *testing.T) {
	reg := prometheus.NewRegistry()
	mp, err := metrics.NewPrometheusMeterProvider(reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter, err := mp.Meter("test").Int64Counter("pagediff.test.events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3, otelmetric.WithAttributes(attribute.String("capture.side", "A")))

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
		if f.GetName() != "pagediff_test_events_total" {
			continue
		}
		require.Len(t, f.GetMetric(), 1)
		var labels []string
		for _, l := range f.GetMetric()[0].GetLabel() {
			labels = append(labels, l.GetName())
		}
		require.Contains(t, labels, "capture_side")
		require.Equal(t, 3.0, f.GetMetric()[0].GetCounter().GetValue())
	}
	require.Contains(t, names, "pagediff_test_events_total")
	require.NotContains(t, names, "pagediff.test.events_total")
}
