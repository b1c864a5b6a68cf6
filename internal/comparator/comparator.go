package comparator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"pagediff/internal/config"
	"pagediff/pkg/capture"
	"pagediff/pkg/domain"
	"pagediff/pkg/logger"
	"pagediff/pkg/metrics"
	"pagediff/pkg/pixeldiff"
	"pagediff/pkg/serrors"
)

const instrumentationName = "pagediff/internal/comparator"

// Options configure the comparator.
type Options struct {
	// MaxConcurrent bounds how many browsing environments may run at once.
	// Comparisons beyond it wait for a slot until their context ends.
	MaxConcurrent int64
	// MeterProvider receives capture and comparison metrics. Nil disables them.
	MeterProvider metric.MeterProvider
	// TracerProvider receives one span per comparison and per side. Nil disables tracing.
	TracerProvider trace.TracerProvider
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{MaxConcurrent: cfg.Browser.MaxConcurrent}
}

// comparator is the concrete implementation of the Comparator interface.
type comparator struct {
	launcher capture.Launcher
	slots    *semaphore.Weighted
	tracer   trace.Tracer

	captureDuration metric.Float64Histogram
	comparisons     metric.Int64Counter
	diffRatio       metric.Float64Histogram
	environments    metric.Int64UpDownCounter
}

// New creates a Comparator that opens its browsing environments through launcher.
func New(launcher capture.Launcher, opts Options) (Comparator, error) {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	meter := metrics.MeterProvider(opts.MeterProvider).Meter(instrumentationName)

	c := &comparator{
		launcher: launcher,
		slots:    semaphore.NewWeighted(opts.MaxConcurrent),
		tracer:   tp.Tracer(instrumentationName),
	}

	var err error
	if c.captureDuration, err = meter.Float64Histogram("pagediff.capture.duration",
		metric.WithDescription("Time spent capturing one page, from opening the tab to the screenshot."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.DefaultBuckets...)); err != nil {
		return nil, fmt.Errorf("could not create capture duration histogram: %w", err)
	}
	if c.comparisons, err = meter.Int64Counter("pagediff.comparisons",
		metric.WithDescription("Comparisons by outcome.")); err != nil {
		return nil, fmt.Errorf("could not create comparisons counter: %w", err)
	}
	if c.diffRatio, err = meter.Float64Histogram("pagediff.diff.ratio",
		metric.WithDescription("Share of differing pixels per comparison."),
		metric.WithExplicitBucketBoundaries(metrics.RatioBuckets...)); err != nil {
		return nil, fmt.Errorf("could not create diff ratio histogram: %w", err)
	}
	if c.environments, err = meter.Int64UpDownCounter("pagediff.environments.active",
		metric.WithDescription("Browsing environments currently running.")); err != nil {
		return nil, fmt.Errorf("could not create environments counter: %w", err)
	}

	return c, nil
}

// Compare validates both requests before acquiring any browser resource,
// captures both pages concurrently in one environment and diffs the results.
func (c *comparator) Compare(ctx context.Context,
	reqA, reqB domain.CaptureRequest,
	opts domain.DiffOptions) (outcome *domain.ComparisonOutcome, err error) {
	id := domain.ComparisonID(uuid.New())
	ctx = logger.WithFields(ctx, zap.Stringer("comparisonID", id))
	ctx, span := c.tracer.Start(ctx, "Compare", trace.WithAttributes(attribute.String("comparison.id", id.String())))
	defer func() {
		c.finish(ctx, span, outcome, err)
	}()

	if reqA, err = validateRequest(domain.SideA, reqA); err != nil {
		return nil, err
	}
	if reqB, err = validateRequest(domain.SideB, reqB); err != nil {
		return nil, err
	}
	if err = validateOptions(opts); err != nil {
		return nil, err
	}

	if err = c.slots.Acquire(ctx, 1); err != nil {
		return nil, serrors.Wrap(serrors.ErrTimeout, err, "no browser slot became available")
	}
	defer c.slots.Release(1)

	env, err := c.launcher.Launch(ctx)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not launch browser")
	}
	c.environments.Add(ctx, 1)
	defer func() {
		c.environments.Add(ctx, -1)
		if err := env.Close(); err != nil {
			logger.Warn(ctx, "could not close browser environment", zap.Error(err))
		}
	}()

	var resA, resB domain.CaptureResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		resA, err = c.capture(gctx, env, domain.SideA, reqA)

		return err
	})
	g.Go(func() (err error) {
		resB, err = c.capture(gctx, env, domain.SideB, reqB)

		return err
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	outcome = &domain.ComparisonOutcome{
		ID:   id,
		A:    resA,
		B:    resB,
		Meta: domain.ComparisonMeta{Viewport: reqA.Viewport, FullPage: reqA.FullPage},
	}
	if !opts.Enabled {
		return outcome, nil
	}

	a, b, err := pixeldiff.Reconcile(resA.Image, resB.Image)
	if err != nil {
		return nil, fmt.Errorf("could not reconcile captures: %w", err)
	}
	if outcome.Diff, err = pixeldiff.Diff(a, b, opts); err != nil {
		return nil, fmt.Errorf("could not diff captures: %w", err)
	}

	return outcome, nil
}

// capture runs the ordered steps of one side. The session is closed exactly
// once before capture returns, whatever the outcome.
func (c *comparator) capture(ctx context.Context,
	env capture.Environment,
	side domain.Side,
	req domain.CaptureRequest) (res domain.CaptureResult, err error) {
	ctx = logger.WithFields(ctx, zap.String("side", string(side)), zap.String("URL", req.URL))
	ctx, span := c.tracer.Start(ctx, "capture", trace.WithAttributes(
		attribute.String("side", string(side)),
		attribute.String("url", req.URL),
	))
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		c.captureDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("side", string(side)),
			attribute.String("status", status),
		))
		span.End()
	}()

	sess, err := env.OpenSession(ctx, req.Viewport)
	if err != nil {
		return res, interrupted(ctx, side, err, serrors.ErrCaptureFailure, "could not open session")
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn(ctx, "could not close session", zap.Error(err))
		}
	}()

	if err := navigate(ctx, sess, side, req); err != nil {
		return res, err
	}

	stab := req.Stabilization
	if len(stab.RemoveSelectors) > 0 {
		removed, err := sess.RemoveElements(ctx, stab.RemoveSelectors)
		if err != nil {
			return res, interrupted(ctx, side, err, serrors.ErrStabilizationFailure, "could not remove elements")
		}
		logger.Debug(ctx, "elements removed", zap.Int("removed", removed))
	}

	if stab.WaitSelector != "" {
		waitErr := waitForSelector(ctx, sess, stab.WaitSelector, stab.SelectorWait(req.TimeoutBudget))
		if err := tolerateWaitTimeout(ctx, waitErr); err != nil {
			return res, &SideError{Side: side, Err: err}
		}
	}

	if wait := stab.FixedWait(); wait > 0 {
		if err := sess.WaitFixed(ctx, wait); err != nil {
			return res, interrupted(ctx, side, err, serrors.ErrStabilizationFailure, "fixed wait aborted")
		}
	}

	img, err := sess.Screenshot(ctx, req.FullPage)
	if err != nil {
		return res, interrupted(ctx, side, err, serrors.ErrCaptureFailure, "could not take screenshot")
	}
	if err := img.Validate(); err != nil {
		return res, &SideError{Side: side, Err: err}
	}

	return domain.CaptureResult{Side: side, URL: req.URL, Image: img, Duration: time.Since(start)}, nil
}

// navigate loads the page within the request's timeout budget.
func navigate(ctx context.Context, sess capture.Session, side domain.Side, req domain.CaptureRequest) error {
	navCtx, cancel := context.WithTimeout(ctx, req.TimeoutBudget)
	defer cancel()

	err := sess.Navigate(navCtx, req.URL)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return interrupted(ctx, side, err, serrors.ErrNavigationFailure, "navigation aborted")
	case errors.Is(navCtx.Err(), context.DeadlineExceeded):
		return sideErr(side, serrors.ErrNavigationTimeout, err,
			"navigation to %s exceeded %s", req.URL, req.TimeoutBudget)
	default:
		return sideErr(side, serrors.ErrNavigationFailure, err, "could not navigate to %s", req.URL)
	}
}

// waitForSelector waits for selector with its own timeout. Any failure is
// reported as ErrStabilizationWaitTimeout.
func waitForSelector(ctx context.Context, sess capture.Session, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sess.WaitForSelector(waitCtx, selector); err != nil {
		return serrors.Wrap(serrors.ErrStabilizationWaitTimeout, err,
			"selector %q did not appear within %s", selector, timeout)
	}

	return nil
}

// tolerateWaitTimeout is the single place where a wait-selector failure is
// discarded: the capture proceeds as if the wait succeeded. Cancellation of
// the comparison itself is still reported.
func tolerateWaitTimeout(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return serrors.Wrap(serrors.ErrTimeout, ctxErr, "comparison aborted while waiting for selector")
	}
	if errors.Is(err, serrors.ErrStabilizationWaitTimeout) {
		logger.Warn(ctx, "wait selector not satisfied, capturing anyway", zap.Error(err))

		return nil
	}

	return err
}

// interrupted classifies err as k unless ctx itself ended, in which case the
// comparison as a whole was cancelled or timed out.
func interrupted(ctx context.Context, side domain.Side, err error, k serrors.Kind, msg string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return sideErr(side, serrors.ErrTimeout, errors.Join(ctxErr, err), "%s", msg)
	}

	return sideErr(side, k, err, "%s", msg)
}

func (c *comparator) finish(ctx context.Context, span trace.Span, outcome *domain.ComparisonOutcome, err error) {
	defer span.End()

	if err != nil {
		kind := serrors.KindOf(err)
		c.comparisons.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", kind.Error())))
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.Error())

		if errors.Is(err, serrors.ErrInvalidInput) {
			logger.Info(ctx, "comparison rejected", zap.Error(err))
		} else {
			logger.Error(ctx, "comparison failed", zap.Error(err))
		}

		return
	}

	c.comparisons.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))

	fields := []zap.Field{
		zap.Duration("durationA", outcome.A.Duration),
		zap.Duration("durationB", outcome.B.Duration),
	}
	if outcome.Diff != nil {
		ratio := outcome.Diff.Ratio()
		c.diffRatio.Record(ctx, ratio)
		span.SetAttributes(attribute.Int("diff.pixels", outcome.Diff.DifferingPixels))
		fields = append(fields,
			zap.Int("differingPixels", outcome.Diff.DifferingPixels),
			zap.Float64("ratio", ratio))
	}
	logger.Info(ctx, "comparison completed", fields...)
}
