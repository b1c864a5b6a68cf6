package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pagediff/internal/config"
	"pagediff/pkg/domain"
	"pagediff/pkg/imagecodec"
	"pagediff/pkg/pixeldiff"
)

// addDiffFlags registers the diff engine flags on fs with defaults from cfg.
func addDiffFlags(fs *pflag.FlagSet, cfg *config.Config) {
	defaults := domain.DefaultDiffOptions()
	fs.Float64("threshold", cfg.Compare.Threshold, "Matching threshold in [0,1], smaller is stricter")
	fs.Bool("include-aa", defaults.IncludeAntiAliased, "Count anti-aliased pixels as differences")
	fs.Int("alpha", defaults.OutputAlpha, "Alpha of highlighted pixels in [0,255]")
}

func diffOptionsFromFlags(fs *pflag.FlagSet) domain.DiffOptions {
	opts := domain.DefaultDiffOptions()
	opts.Threshold, _ = fs.GetFloat64("threshold")
	opts.IncludeAntiAliased, _ = fs.GetBool("include-aa")
	opts.OutputAlpha, _ = fs.GetInt("alpha")

	return opts
}

func readPNG(codec imagecodec.Codec, path string) (domain.RawImage, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return domain.RawImage{}, fmt.Errorf("could not read %s: %w", path, err)
	}

	img, err := codec.Decode(data)
	if err != nil {
		return domain.RawImage{}, fmt.Errorf("could not decode %s: %w", path, err)
	}

	return img, nil
}

func writePNG(codec imagecodec.Codec, path string, img domain.RawImage) error {
	data, err := codec.Encode(img)
	if err != nil {
		return fmt.Errorf("could not encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint: gosec
		return fmt.Errorf("could not write %s: %w", path, err)
	}

	return nil
}

func diffCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <a.png> <b.png>",
		Short: "Diffs two PNG files without a browser",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := imagecodec.PNG{}
			out, _ := cmd.Flags().GetString("out")

			a, err := readPNG(codec, args[0])
			if err != nil {
				return err
			}
			b, err := readPNG(codec, args[1])
			if err != nil {
				return err
			}

			ra, rb, err := pixeldiff.Reconcile(a, b)
			if err != nil {
				return fmt.Errorf("could not align images: %w", err)
			}
			res, err := pixeldiff.Diff(ra, rb, diffOptionsFromFlags(cmd.Flags()))
			if err != nil {
				return fmt.Errorf("could not diff images: %w", err)
			}

			if err := writePNG(codec, out, res.Image); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d differing pixels of %dx%d (%.4f%%) written to %s\n",
				res.DifferingPixels, res.Width, res.Height, res.Ratio()*100, out)

			return err //nolint: wrapcheck
		},
	}

	cmd.Flags().StringP("out", "o", "diff.png", "Path of the diff image")
	addDiffFlags(cmd.Flags(), cfg)

	return cmd
}
