package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pagediff/internal/config"
	"pagediff/pkg/domain"
	"pagediff/pkg/imagecodec"
)

func compareCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <urlA> <urlB>",
		Short: "Captures two pages and writes a.png, b.png and diff.png",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			flags := cmd.Flags()
			dir, _ := flags.GetString("out")
			width, _ := flags.GetInt("width")
			height, _ := flags.GetInt("height")
			scale, _ := flags.GetFloat64("scale")
			fullPage, _ := flags.GetBool("full-page")
			timeout, _ := flags.GetDuration("timeout")
			waitSelector, _ := flags.GetString("wait-selector")
			wait, _ := flags.GetDuration("wait")
			remove, _ := flags.GetStringSlice("remove")
			noDiff, _ := flags.GetBool("no-diff")

			base := domain.CaptureRequest{
				Viewport:      domain.Viewport{Width: width, Height: height, Scale: scale},
				FullPage:      fullPage,
				TimeoutBudget: timeout,
				Stabilization: domain.Stabilization{
					RemoveSelectors: remove,
					WaitSelector:    waitSelector,
					WaitTime:        wait,
				},
			}
			reqA, reqB := base, base
			reqA.URL, reqB.URL = args[0], args[1]

			opts := diffOptionsFromFlags(flags)
			opts.Enabled = !noDiff

			codec := imagecodec.PNG{}
			cmp, closeLauncher := setupComparator(ctx, cfg, codec, nil)
			defer closeLauncher()

			outcome, err := cmp.Compare(ctx, reqA, reqB, opts)
			if err != nil {
				return fmt.Errorf("comparison failed: %w", err)
			}

			if err := os.MkdirAll(dir, 0o755); err != nil { //nolint: gosec
				return fmt.Errorf("could not create %s: %w", dir, err)
			}
			images := map[string]domain.RawImage{"a.png": outcome.A.Image, "b.png": outcome.B.Image}
			if outcome.Diff != nil {
				images["diff.png"] = outcome.Diff.Image
			}
			for name, img := range images {
				if err := writePNG(codec, filepath.Join(dir, name), img); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "A %s %dx%d in %s\n", outcome.A.URL, outcome.A.Image.Width, outcome.A.Image.Height,
				outcome.A.Duration.Round(time.Millisecond))
			fmt.Fprintf(w, "B %s %dx%d in %s\n", outcome.B.URL, outcome.B.Image.Width, outcome.B.Image.Height,
				outcome.B.Duration.Round(time.Millisecond))
			if outcome.Diff != nil {
				fmt.Fprintf(w, "%d differing pixels of %dx%d (%.4f%%)\n", outcome.Diff.DifferingPixels,
					outcome.Diff.Width, outcome.Diff.Height, outcome.Diff.Ratio()*100)
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("out", "o", ".", "Directory the PNG files are written to")
	flags.Int("width", cfg.Compare.ViewportWidth, "Viewport width in CSS pixels")
	flags.Int("height", cfg.Compare.ViewportHeight, "Viewport height in CSS pixels")
	flags.Float64("scale", cfg.Compare.DeviceScaleFactor, "Device scale factor")
	flags.Bool("full-page", false, "Capture the whole scrollable page")
	flags.Duration("timeout", cfg.Compare.Timeout, "Navigation budget per page")
	flags.String("wait-selector", "", "CSS selector to wait for after load")
	flags.Duration("wait", 0, "Fixed delay after load")
	flags.StringSlice("remove", nil, "CSS selectors removed before the screenshot")
	flags.Bool("no-diff", false, "Skip the diff stage")
	addDiffFlags(flags, cfg)

	return cmd
}
