package main

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"pagediff/internal/comparator"
	"pagediff/internal/config"
	"pagediff/pkg/capture/rodcapture"
	"pagediff/pkg/imagecodec"
	"pagediff/pkg/logger"
)

// setupComparator creates the browser launcher and the comparator on top of
// it. The returned function releases the launcher.
func setupComparator(ctx context.Context, cfg *config.Config, codec imagecodec.Codec,
	mp metric.MeterProvider) (comparator.Comparator, func()) {
	launcher := rodcapture.New(rodcapture.Options{
		Bin:              cfg.Browser.Bin,
		RemoteURL:        cfg.Browser.RemoteURL,
		Headless:         cfg.Browser.Headless,
		NoSandbox:        cfg.Browser.NoSandbox,
		Stealth:          cfg.Browser.Stealth,
		UserAgent:        cfg.Browser.UserAgent,
		IgnoreCertErrors: cfg.Browser.IgnoreCertErrors,
		IsolateSides:     cfg.Browser.IsolateSides,
		Logger:           logger.Slog(logger.WithFields(ctx, zap.String("component", "browser"))),
	}, codec)

	opts := comparator.NewOptions(cfg)
	opts.MeterProvider = mp

	cmp, err := comparator.New(launcher, opts)
	if err != nil {
		logger.Fatal(ctx, "could not create comparator", zap.Error(err))
	}

	return cmp, func() {
		logger.Info(ctx, "closing browser launcher...")
		if err := launcher.Close(); err != nil {
			logger.Warn(ctx, "could not close browser launcher", zap.Error(err))
		}
	}
}
