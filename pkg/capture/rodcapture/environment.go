package rodcapture

import (
	"context"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"pagediff/pkg/capture"
	"pagediff/pkg/domain"
	"pagediff/pkg/imagecodec"
	"pagediff/pkg/serrors"
)

// environment is one browser (local process or remote connection) and the
// context its sessions share.
type environment struct {
	// root is the browser-level connection.
	root *rod.Browser
	// shared is the context sessions open their pages in. It is nil when
	// every session gets its own incognito context.
	shared *rod.Browser
	// ownsShared reports whether shared is an incognito context to dispose.
	ownsShared bool
	// lnch is the local process launcher, nil for remote browsers.
	lnch *launcher.Launcher

	opts  Options
	codec imagecodec.Codec

	closeOnce sync.Once
	closeErr  error
}

// Ensure environment conforms to the capture.Environment interface at compile time.
var _ capture.Environment = (*environment)(nil)

// OpenSession creates a tab with the viewport and user agent applied.
func (e *environment) OpenSession(ctx context.Context, viewport domain.Viewport) (capture.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := e.shared
	var isolated *rod.Browser
	if b == nil {
		inc, err := e.root.Incognito()
		if err != nil {
			return nil, serrors.Wrap(serrors.ErrCaptureFailure, err, "could not create browser context")
		}
		b, isolated = inc, inc
	}

	page, err := e.newPage(b)
	if err != nil {
		closeBrowser(isolated)

		return nil, serrors.Wrap(serrors.ErrCaptureFailure, err, "could not open tab")
	}

	s := &session{page: page, isolated: isolated, codec: e.codec, logger: e.opts.Logger}
	if err := s.prepare(ctx, viewport, e.opts.UserAgent); err != nil {
		_ = s.Close()

		return nil, serrors.Wrap(serrors.ErrCaptureFailure, err, "could not prepare tab")
	}

	return s, nil
}

func (e *environment) newPage(b *rod.Browser) (*rod.Page, error) {
	if e.opts.Stealth {
		return stealth.Page(b)
	}

	return b.Page(proto.TargetCreateTarget{})
}

// Close disposes the shared context and, for local browsers, kills the
// process and removes its profile directory.
func (e *environment) Close() error {
	e.closeOnce.Do(func() {
		if e.lnch == nil {
			if e.ownsShared {
				e.closeErr = e.shared.Close()
			}

			return
		}

		// root carries the launch context, which may be done by now
		e.closeErr = e.root.Context(context.Background()).Close()
		e.lnch.Kill()
		e.lnch.Cleanup()
		e.opts.Logger.Debug("rodcapture: local browser closed")
	})

	return e.closeErr
}

func closeBrowser(b *rod.Browser) {
	if b != nil {
		_ = b.Close()
	}
}
