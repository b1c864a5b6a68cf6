// Package rodcapture implements capture.Launcher on top of Chromium driven
// over the DevTools protocol with go-rod.
//
// A Launcher either starts a local headless Chromium per environment, or,
// when RemoteURL is set, keeps one connection to an external browser and
// gives each environment its own incognito browser context.
package rodcapture

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"pagediff/pkg/capture"
	"pagediff/pkg/imagecodec"
	"pagediff/pkg/serrors"
)

// DefaultUserAgent identifies the capture browser to the pages it renders.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36 page-diff-viewer-screenshoter"

// Options configure how browsers are started and how pages are prepared.
type Options struct {
	// Bin is the Chromium executable. Empty lets the launcher look it up
	// (and download it when missing).
	Bin string
	// RemoteURL is the DevTools endpoint of an external browser, either a
	// ws:// URL or a host:port. Empty launches a local browser per environment.
	RemoteURL string
	// Headless runs local browsers without a window.
	Headless bool
	// NoSandbox disables the Chromium sandbox, needed when running as root in containers.
	NoSandbox bool
	// Stealth opens pages with go-rod/stealth evasions applied.
	Stealth bool
	// UserAgent overrides the browser user agent. Empty uses DefaultUserAgent.
	UserAgent string
	// IgnoreCertErrors accepts invalid TLS certificates.
	IgnoreCertErrors bool
	// IsolateSides opens every session in its own incognito context instead
	// of sharing one context per environment.
	IsolateSides bool
	// Logger receives browser lifecycle events.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Launcher starts capture environments backed by Chromium.
type Launcher struct {
	opts  Options
	codec imagecodec.Codec

	mu     sync.Mutex
	remote *rod.Browser
}

// Ensure Launcher conforms to the capture.Launcher interface at compile time.
var _ capture.Launcher = (*Launcher)(nil)

// New creates a Launcher. Screenshots are decoded with codec.
func New(opts Options, codec imagecodec.Codec) *Launcher {
	opts.defaults()

	return &Launcher{opts: opts, codec: codec}
}

// Launch starts a fresh environment.
func (l *Launcher) Launch(ctx context.Context) (capture.Environment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if l.opts.RemoteURL != "" {
		return l.launchRemote(ctx)
	}

	return l.launchLocal(ctx)
}

// Close drops the connection to the remote browser, if any. Local browsers
// are owned by their environments.
func (l *Launcher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.remote = nil

	return nil
}

// launchLocal starts a Chromium process bound to ctx: the start is aborted
// and the process killed once ctx ends.
func (l *Launcher) launchLocal(ctx context.Context) (*environment, error) {
	lnch := launcher.New().
		Context(ctx).
		Headless(l.opts.Headless).
		NoSandbox(l.opts.NoSandbox).
		Set("disable-blink-features", "AutomationControlled")
	if l.opts.NoSandbox {
		lnch = lnch.Set("disable-setuid-sandbox")
	}
	if l.opts.Bin != "" {
		lnch = lnch.Bin(l.opts.Bin)
	}

	u, err := lnch.Launch()
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not launch browser")
	}

	b := rod.New().Context(ctx).ControlURL(u)
	if err := b.Connect(); err != nil {
		lnch.Kill()
		lnch.Cleanup()

		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not connect to browser")
	}
	l.ignoreCertErrors(b)
	l.opts.Logger.Debug("rodcapture: launched local browser", "url", u)

	env := &environment{root: b, lnch: lnch, opts: l.opts, codec: l.codec}
	if !l.opts.IsolateSides {
		env.shared = b
	}

	return env, nil
}

func (l *Launcher) launchRemote(ctx context.Context) (*environment, error) {
	root, err := l.remoteBrowser(ctx)
	if err != nil {
		return nil, err
	}

	env := &environment{root: root, opts: l.opts, codec: l.codec}
	if l.opts.IsolateSides {
		return env, nil
	}

	inc, err := root.Incognito()
	if err != nil {
		l.dropRemote(root)

		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not create browser context")
	}
	env.shared = inc
	env.ownsShared = true

	return env, nil
}

// remoteBrowser returns the cached connection to the remote browser,
// connecting on first use. Only the dial is bounded by ctx; the cached
// connection outlives the request.
func (l *Launcher) remoteBrowser(ctx context.Context) (*rod.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.remote != nil {
		return l.remote, nil
	}

	u, err := launcher.ResolveURL(l.opts.RemoteURL)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not resolve remote browser")
	}

	b := rod.New().Context(ctx).ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not connect to remote browser")
	}
	b = b.Context(context.Background())
	l.ignoreCertErrors(b)
	l.opts.Logger.Info("rodcapture: connected to remote browser", "url", u)
	l.remote = b

	return b, nil
}

// dropRemote forgets a connection that stopped working so the next Launch
// reconnects.
func (l *Launcher) dropRemote(b *rod.Browser) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.remote == b {
		l.remote = nil
	}
}

func (l *Launcher) ignoreCertErrors(b *rod.Browser) {
	if !l.opts.IgnoreCertErrors {
		return
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		l.opts.Logger.Warn("rodcapture: ignore cert errors failed", "error", err)
	}
}
