// Package metrics holds the instrumentation conventions shared by the
// comparison pipeline and the HTTP layer.
package metrics

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60} //nolint: gochecknoglobals

// RatioBuckets are histogram buckets for values in [0,1], such as the share
// of differing pixels in a comparison.
var RatioBuckets = []float64{0, .0001, .001, .005, .01, .025, .05, .1, .25, .5, 1} //nolint: gochecknoglobals

// MeterProvider returns mp, or a no-op provider when mp is nil.
func MeterProvider(mp metric.MeterProvider) metric.MeterProvider {
	if mp == nil {
		return noop.NewMeterProvider()
	}

	return mp
}
