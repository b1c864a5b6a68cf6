// Package pixeldiff compares two RGBA images pixel by pixel using a
// perceptual (YIQ) color distance, optionally ignoring anti-aliased edges,
// and renders a diff image that highlights the differences over a faded
// grayscale copy of the first image.
//
// The arithmetic is fixed: for the same inputs and options the diff image and
// the pixel count are bit-identical on every run and every architecture.
package pixeldiff

import (
	"bytes"
	"fmt"
	"math"

	"pagediff/pkg/domain"
	"pagediff/pkg/serrors"
)

const (
	// maxDelta is the largest distance colorDelta can report, reached between
	// opaque black and opaque white.
	maxDelta = 35215.0
	// backdropOpacity is the opacity of image A drawn behind the highlights.
	backdropOpacity = 0.1
)

// highlight is the color of pixels classified as different.
var highlight = [3]byte{255, 0, 0} //nolint: gochecknoglobals

// CheckOptions validates the diff options ranges.
func CheckOptions(opts domain.DiffOptions) error {
	if !(opts.Threshold >= 0 && opts.Threshold <= 1) {
		return serrors.With(serrors.ErrInvalidInput, "diff threshold %v must be within [0,1]", opts.Threshold)
	}
	if opts.OutputAlpha < 0 || opts.OutputAlpha > 255 {
		return serrors.With(serrors.ErrInvalidInput, "diff alpha %d must be within [0,255]", opts.OutputAlpha)
	}

	return nil
}

// Diff compares two images of identical dimensions and returns the rendered
// diff together with the number of differing pixels. It fails only when the
// buffers are malformed, the dimensions differ, or the options are out of range.
func Diff(a, b domain.RawImage, opts domain.DiffOptions) (*domain.DiffResult, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("image A: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("image B: %w", err)
	}
	if a.Width != b.Width || a.Height != b.Height {
		return nil, serrors.With(serrors.ErrBufferMismatch,
			"images must share dimensions, got %dx%d and %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	if err := CheckOptions(opts); err != nil {
		return nil, err
	}

	width, height := a.Width, a.Height
	out := domain.NewRawImage(width, height)
	res := &domain.DiffResult{Image: out, Width: width, Height: height}

	// identical buffers: only the backdrop needs drawing
	if bytes.Equal(a.Pix, b.Pix) {
		for pos := 0; pos < len(a.Pix); pos += domain.BytesPerPixel {
			drawGray(out.Pix, a.Pix, pos)
		}

		return res, nil
	}

	limit := float64(maxDelta*opts.Threshold) * opts.Threshold
	alpha := byte(opts.OutputAlpha)

	for y := range height {
		for x := range width {
			pos := (y*width + x) * domain.BytesPerPixel

			delta := colorDelta(a.Pix, b.Pix, pos, pos, false)
			if math.Abs(delta) <= limit {
				drawGray(out.Pix, a.Pix, pos)

				continue
			}

			if !opts.IncludeAntiAliased &&
				(antialiased(a.Pix, x, y, width, height, b.Pix) || antialiased(b.Pix, x, y, width, height, a.Pix)) {
				drawGray(out.Pix, a.Pix, pos)

				continue
			}

			drawPixel(out.Pix, pos, highlight[0], highlight[1], highlight[2], alpha)
			res.DifferingPixels++
		}
	}

	return res, nil
}

// colorDelta returns the squared YIQ distance between pixel k of img1 and
// pixel m of img2. Translucent pixels are blended over white first. The sign
// is negative when img1's pixel is brighter. With yOnly set, the signed luma
// difference is returned instead.
func colorDelta(img1, img2 []byte, k, m int, yOnly bool) float64 {
	r1, g1, b1, a1 := img1[k], img1[k+1], img1[k+2], img1[k+3]
	r2, g2, b2, a2 := img2[m], img2[m+1], img2[m+2], img2[m+3]

	if r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2 {
		return 0
	}
	if !yOnly && ((a1 == 0 && a2 == 255) || (a1 == 255 && a2 == 0)) {
		return maxDelta
	}

	fr1, fg1, fb1 := blendRGB(r1, g1, b1, a1)
	fr2, fg2, fb2 := blendRGB(r2, g2, b2, a2)

	y1 := rgb2y(fr1, fg1, fb1)
	y2 := rgb2y(fr2, fg2, fb2)
	y := y1 - y2
	if yOnly {
		return y
	}

	i := rgb2i(fr1, fg1, fb1) - rgb2i(fr2, fg2, fb2)
	q := rgb2q(fr1, fg1, fb1) - rgb2q(fr2, fg2, fb2)

	delta := float64(0.5053*y*y) + float64(0.299*i*i) + float64(0.1957*q*q)
	if y1 > y2 {
		return -delta
	}

	return delta
}

// blendRGB composites a non-premultiplied pixel over a white background.
func blendRGB(r, g, b, a byte) (float64, float64, float64) {
	fr, fg, fb := float64(r), float64(g), float64(b)
	if a < 255 {
		fa := float64(a) / 255
		fr, fg, fb = blend(fr, fa), blend(fg, fa), blend(fb, fa)
	}

	return fr, fg, fb
}

// Every product below is wrapped in an explicit float64 conversion. The
// conversion forces rounding, which keeps the compiler from fusing the
// multiply and add into an FMA instruction on architectures that have one.

func blend(c, a float64) float64 {
	return 255 + float64((c-255)*a)
}

func rgb2y(r, g, b float64) float64 {
	return float64(r*0.29889531) + float64(g*0.58662247) + float64(b*0.11448223)
}

func rgb2i(r, g, b float64) float64 {
	return float64(r*0.59597799) - float64(g*0.27417610) - float64(b*0.32180189)
}

func rgb2q(r, g, b float64) float64 {
	return float64(r*0.21147017) - float64(g*0.52261711) + float64(b*0.31114694)
}

func drawPixel(out []byte, pos int, r, g, b, a byte) {
	out[pos] = r
	out[pos+1] = g
	out[pos+2] = b
	out[pos+3] = a
}

// drawGray writes the luma of img's pixel, faded toward white, as an opaque
// gray pixel.
func drawGray(out, img []byte, pos int) {
	luma := rgb2y(float64(img[pos]), float64(img[pos+1]), float64(img[pos+2]))
	val := toByte(blend(luma, float64(backdropOpacity*float64(img[pos+3]))/255))
	drawPixel(out, pos, val, val, val, 255)
}

func toByte(v float64) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}
