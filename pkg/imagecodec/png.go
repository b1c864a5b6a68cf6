package imagecodec

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"pagediff/pkg/domain"
	"pagediff/pkg/serrors"
)

// PNG is a Codec for PNG images. The zero value is ready to use and safe for
// concurrent use.
type PNG struct {
	// Compression selects the zlib level used by Encode.
	Compression png.CompressionLevel
}

// Ensure PNG conforms to the Codec interface at compile time.
var _ Codec = PNG{}

// Decode parses PNG bytes. Any color model is converted to non-premultiplied
// 8-bit RGBA.
func (p PNG) Decode(data []byte) (domain.RawImage, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.RawImage{}, serrors.Wrap(serrors.ErrCaptureFailure, err, "could not decode png")
	}

	raw := FromImage(img)
	if err := raw.Validate(); err != nil {
		return domain.RawImage{}, err
	}

	return raw, nil
}

// Encode writes img as PNG.
func (p PNG) Encode(img domain.RawImage) ([]byte, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: p.Compression}
	if err := enc.Encode(&buf, ToNRGBA(img)); err != nil {
		return nil, fmt.Errorf("could not encode png: %w", err)
	}

	return buf.Bytes(), nil
}

// FromImage copies any image.Image into a tightly packed RawImage anchored at
// the origin.
func FromImage(img image.Image) domain.RawImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := domain.NewRawImage(w, h)
	rowLen := w * domain.BytesPerPixel

	// straight copy keeps translucent pixels exact
	if src, ok := img.(*image.NRGBA); ok {
		for y := range h {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*rowLen:(y+1)*rowLen], src.Pix[i:i+rowLen])
		}

		return out
	}

	dst := ToNRGBA(out)
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)

	return out
}

// ToNRGBA wraps a RawImage buffer as an *image.NRGBA without copying.
func ToNRGBA(img domain.RawImage) *image.NRGBA {
	return &image.NRGBA{
		Pix:    img.Pix,
		Stride: img.Width * domain.BytesPerPixel,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
}
