package domain

import "pagediff/pkg/serrors"

// BytesPerPixel is the size of one RGBA pixel in a RawImage buffer.
const BytesPerPixel = 4

// RawImage is a tightly packed, non-premultiplied RGBA pixel buffer in
// row-major order. Row y starts at offset y*Width*4.
type RawImage struct {
	Pix    []byte
	Width  int
	Height int
}

// NewRawImage allocates a zeroed (fully transparent) image.
func NewRawImage(width, height int) RawImage {
	return RawImage{
		Pix:    make([]byte, width*height*BytesPerPixel),
		Width:  width,
		Height: height,
	}
}

// Validate checks that the image has non-zero dimensions and a buffer whose
// length matches them.
func (r RawImage) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return serrors.With(serrors.ErrEmptyImage, "image has empty dimensions %dx%d", r.Width, r.Height)
	}
	if want := r.Width * r.Height * BytesPerPixel; len(r.Pix) != want {
		return serrors.With(serrors.ErrBufferMismatch,
			"buffer length %d does not match %dx%d image (want %d)", len(r.Pix), r.Width, r.Height, want)
	}

	return nil
}

// PixelCount returns Width*Height.
func (r RawImage) PixelCount() int { return r.Width * r.Height }
