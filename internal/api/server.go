// Package api configures and exposes the HTTP server, routes,
// metrics, docs and related middleware for the page comparison service.
package api

import (
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
	"go.opentelemetry.io/otel/metric"

	"pagediff/internal/api/handler/v1handler"
	"pagediff/internal/config"
	"pagediff/pkg/controller"
)

// v1Spec contains the embedded OpenAPI specification for version 1 of the API.
//
//go:embed specs/v1.yaml
var v1Spec []byte

// timeoutBody is written by http.TimeoutHandler when RequestTimeout elapses.
const timeoutBody = `{"ok":false,"code":"TIMEOUT","error":"request timed out"}`

// Options holds configuration for the HTTP server and its dependencies.
// It is typically created from a config.Config via NewOptions.
// Zero durations fall back to the net/http defaults, except RequestTimeout
// which disables the request timeout.
type Options struct {
	// SecHandlerOptions configures bearer authentication of /v1 endpoints.
	SecHandlerOptions *v1handler.SecHandlerOptions

	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout bounds the handling of one request via http.TimeoutHandler.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
	// CORSOrigin is the allowed cross-origin caller.
	CORSOrigin string
}

// NewOptions constructs an Options value from the provided application configuration.
func NewOptions(cfg *config.Config) Options {
	return Options{
		SecHandlerOptions: v1handler.NewSecHandlerOptions(cfg),

		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
		CORSOrigin:        cfg.HTTP.CORSOrigin,
	}
}

// Deps groups the collaborators of the server.
type Deps struct {
	v1handler.Deps

	// MeterProvider receives HTTP request metrics. Nil disables them.
	MeterProvider metric.MeterProvider
}

// NewHandler builds the routed and wrapped http.Handler served by NewServer:
//   - Prometheus metrics endpoint (MetricsPath)
//   - Embedded OpenAPI v1 spec and Swagger UI
//   - POST /v1/comparisons, behind bearer authentication when configured
//   - POST /api/screenshot, the unauthenticated browser-facing endpoint
//   - pprof endpoints for profiling
//
// The router recovers handler panics and is wrapped with CORS, metrics and logging middlewares and a request timeout.
func NewHandler(deps Deps, opts Options) (http.Handler, error) {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	if opts.MetricsPath != "" {
		router.Handle(opts.MetricsPath, promhttp.Handler())
	}

	// v1 specs file
	router.Get("/specs/v1.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(v1Spec)
	})
	// v1 api swagger playground
	router.Handle("/v1/docs/*", v5emb.New(
		"Page Diff Service",
		"/specs/v1.yaml",
		"/v1/docs/",
	))

	secHandler, err := v1handler.NewSecHandler(opts.SecHandlerOptions)
	if err != nil {
		return nil, fmt.Errorf("could not create sec handler: %w", err)
	}
	h := v1handler.New(deps.Deps)

	// both handlers answer every method themselves so rejections keep their body shape
	router.Handle("/v1/comparisons", secHandler.Middleware(http.HandlerFunc(h.CreateComparison)))
	router.HandleFunc("/api/screenshot", h.Screenshot)

	router.Handle(controller.PprofPrefix+"*", controller.PprofMux())

	withMetrics, err := controller.WithMetrics(deps.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("could not create metrics middleware: %w", err)
	}

	handler := controller.WithCORS(opts.CORSOrigin)(router)
	handler = withMetrics(handler)
	handler = controller.WithLogger(handler)

	if opts.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, opts.RequestTimeout, timeoutBody)
	}

	return handler, nil
}

// NewServer wires up and returns a configured *http.Server serving NewHandler.
func NewServer(deps Deps, opts Options) (*http.Server, error) {
	handler, err := NewHandler(deps, opts)
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}, nil
}
