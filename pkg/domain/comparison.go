package domain

import "github.com/google/uuid"

// ComparisonID uniquely identifies one comparison for log correlation.
// It wraps uuid.UUID to provide type safety at the domain layer.
type ComparisonID uuid.UUID

// String returns the canonical textual form of the ID.
func (id ComparisonID) String() string { return uuid.UUID(id).String() }

// DiffOptions configures the pixel diff engine.
type DiffOptions struct {
	// Enabled toggles the diff stage. When false only the captures are returned.
	Enabled bool
	// Threshold is the matching threshold in [0,1]. Smaller is stricter.
	Threshold float64
	// IncludeAntiAliased counts pixels that look like anti-aliasing edges
	// as differences. When false they are rendered as matched.
	IncludeAntiAliased bool
	// OutputAlpha is the alpha in [0,255] of highlighted pixels in the diff image.
	OutputAlpha int
}

// DefaultDiffOptions returns the options used when a request does not specify any.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		Enabled:            true,
		Threshold:          0.1,
		IncludeAntiAliased: true,
		OutputAlpha:        255,
	}
}

// DiffResult is the output of the pixel diff engine.
type DiffResult struct {
	// Image is the rendered diff, sized to the reconciled region.
	Image RawImage
	// DifferingPixels is the number of pixels classified as different.
	DifferingPixels int
	// Width and Height are the dimensions of the reconciled region.
	Width  int
	Height int
}

// Ratio returns DifferingPixels relative to the compared area.
func (d DiffResult) Ratio() float64 {
	if d.Width == 0 || d.Height == 0 {
		return 0
	}

	return float64(d.DifferingPixels) / float64(d.Width*d.Height)
}

// ComparisonMeta echoes the effective request settings.
type ComparisonMeta struct {
	Viewport Viewport
	FullPage bool
}

// ComparisonOutcome is the complete, immutable result of one comparison.
// It is never persisted.
type ComparisonOutcome struct {
	// ID identifies the comparison in logs.
	ID ComparisonID
	// A and B are the two captures.
	A CaptureResult
	B CaptureResult
	// Diff is nil when the diff stage was disabled.
	Diff *DiffResult
	// Meta holds the effective viewport and full-page flag.
	Meta ComparisonMeta
}
