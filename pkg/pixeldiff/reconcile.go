package pixeldiff

import (
	"fmt"

	"pagediff/pkg/domain"
)

// Reconcile aligns two images of possibly different sizes to their common
// top-left region of min(w1,w2) x min(h1,h2). An image already matching the
// region is returned unmodified (sharing its buffer); the other is cropped by
// copying rows. Overflow to the right and bottom is discarded, nothing is scaled.
func Reconcile(a, b domain.RawImage) (domain.RawImage, domain.RawImage, error) {
	if err := a.Validate(); err != nil {
		return domain.RawImage{}, domain.RawImage{}, fmt.Errorf("image A: %w", err)
	}
	if err := b.Validate(); err != nil {
		return domain.RawImage{}, domain.RawImage{}, fmt.Errorf("image B: %w", err)
	}

	w := min(a.Width, b.Width)
	h := min(a.Height, b.Height)

	return crop(a, w, h), crop(b, w, h), nil
}

// crop returns the top-left w x h rectangle of img. img must be valid and at
// least w x h.
func crop(img domain.RawImage, w, h int) domain.RawImage {
	if img.Width == w && img.Height == h {
		return img
	}

	out := domain.NewRawImage(w, h)
	rowLen := w * domain.BytesPerPixel
	srcStride := img.Width * domain.BytesPerPixel
	for y := range h {
		src := y * srcStride
		copy(out.Pix[y*rowLen:(y+1)*rowLen], img.Pix[src:src+rowLen])
	}

	return out
}
