package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"pagediff/pkg/metrics"
)

// WithMetrics returns a middleware recording the latency of every request,
// labelled by method and status code, plus the number of in-flight requests.
// A nil mp disables recording.
func WithMetrics(mp metric.MeterProvider) (func(http.Handler) http.Handler, error) {
	meter := metrics.MeterProvider(mp).Meter("pagediff/pkg/controller")

	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create request duration histogram: %w", err)
	}
	active, err := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP server requests."))
	if err != nil {
		return nil, fmt.Errorf("could not create active requests counter: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			method := attribute.String("http.request.method", r.Method)

			active.Add(ctx, 1, metric.WithAttributes(method))
			defer active.Add(ctx, -1, metric.WithAttributes(method))

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
				method,
				attribute.String("http.response.status_code", strconv.Itoa(rec.status)),
			))
		})
	}, nil
}
