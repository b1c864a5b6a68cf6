// Package capture defines the abstraction over a browser that renders pages
// and takes screenshots. A Launcher starts one Environment (a browser
// process or browser context) per comparison; each Environment hosts the
// Sessions (tabs) that render the individual pages.
//
// Timeouts are carried by context deadlines: every blocking method returns
// once its context is done.
//
//go:generate mockgen -package mockcapture -source=interface.go -destination=mock/mockcapture.go *
package capture

import (
	"context"
	"time"

	"pagediff/pkg/domain"
)

// Launcher starts browsing environments.
type Launcher interface {
	// Launch starts a fresh environment. The caller owns it and must Close it.
	Launch(ctx context.Context) (Environment, error)
}

// Environment is one running browser shared by the sessions of a single
// comparison.
type Environment interface {
	// OpenSession opens a new tab emulating the given viewport.
	OpenSession(ctx context.Context, viewport domain.Viewport) (Session, error)
	// Close tears the environment down, including any session still open.
	Close() error
}

// Session is a single tab rendering one page.
type Session interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// RemoveElements deletes every element matching each selector, in order,
	// and returns how many were removed. Selectors matching nothing are not an
	// error; an error means the page could not be scripted at all.
	RemoveElements(ctx context.Context, selectors []string) (int, error)
	// WaitForSelector blocks until an element matches selector or ctx is done.
	WaitForSelector(ctx context.Context, selector string) error
	// WaitFixed blocks for d or until ctx is done.
	WaitFixed(ctx context.Context, d time.Duration) error
	// Screenshot captures the viewport, or the whole page when fullPage is set.
	Screenshot(ctx context.Context, fullPage bool) (domain.RawImage, error)
	// Close releases the tab. It is idempotent.
	Close() error
}
