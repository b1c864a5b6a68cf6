package domain

import "time"

// Side identifies one of the two pages taking part in a comparison.
type Side string

const (
	// SideA is the baseline page.
	SideA Side = "A"
	// SideB is the page compared against the baseline.
	SideB Side = "B"
)

// MaxStabilizationWait bounds both the wait-selector timeout and the fixed
// pre-capture wait.
const MaxStabilizationWait = 15 * time.Second

// Viewport describes the emulated browser window.
type Viewport struct {
	// Width is the CSS pixel width of the window.
	Width int `json:"width"`
	// Height is the CSS pixel height of the window.
	Height int `json:"height"`
	// Scale is the device scale factor (1 for regular displays, 2 for retina).
	Scale float64 `json:"deviceScaleFactor"`
}

// DefaultViewport returns the viewport used when a request does not carry one.
func DefaultViewport() Viewport {
	return Viewport{Width: 1366, Height: 768, Scale: 1}
}

// Stabilization lists the steps applied to a page after navigation and
// before the screenshot, to reduce nondeterministic visual noise.
type Stabilization struct {
	// RemoveSelectors are CSS selectors whose matching elements are deleted,
	// in order. A selector matching nothing is not an error.
	RemoveSelectors []string
	// WaitSelector, when non-empty, is a CSS selector the page is given a
	// chance to render before capture. Failure to appear is tolerated.
	WaitSelector string
	// WaitTime, when positive, is an extra fixed delay before capture.
	WaitTime time.Duration
}

// SelectorWait returns the timeout applied to WaitSelector for the given
// navigation budget.
func (s Stabilization) SelectorWait(budget time.Duration) time.Duration {
	return min(budget, MaxStabilizationWait)
}

// FixedWait returns WaitTime clamped to MaxStabilizationWait. Non-positive
// values yield zero.
func (s Stabilization) FixedWait() time.Duration {
	if s.WaitTime <= 0 {
		return 0
	}

	return min(s.WaitTime, MaxStabilizationWait)
}

// CaptureRequest describes one page render.
type CaptureRequest struct {
	// URL is the http(s) address to render.
	URL string
	// Viewport is the emulated window.
	Viewport Viewport
	// FullPage captures the whole scrollable page instead of the viewport only.
	FullPage bool
	// TimeoutBudget bounds navigation and, capped at MaxStabilizationWait,
	// the wait-selector step.
	TimeoutBudget time.Duration
	// Stabilization holds the pre-capture steps.
	Stabilization Stabilization
}

// CaptureResult is the image produced by one capture session.
type CaptureResult struct {
	// Side identifies which page this capture belongs to.
	Side Side
	// URL is the page that was rendered.
	URL string
	// Image holds the captured pixels.
	Image RawImage
	// Duration is the wall time spent on the session, from open to screenshot.
	Duration time.Duration
}
