package rodcapture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"pagediff/pkg/capture"
	"pagediff/pkg/domain"
	"pagediff/pkg/imagecodec"
)

// removeScript deletes every match of each selector, in order. Selectors
// the page cannot parse are skipped and reported back.
const removeScript = `(selectors) => {
	let removed = 0;
	const skipped = [];
	for (const selector of selectors) {
		let matches;
		try {
			matches = document.querySelectorAll(selector);
		} catch (e) {
			skipped.push(selector);
			continue;
		}
		matches.forEach((el) => {
			el.remove();
			removed++;
		});
	}
	return { removed, skipped };
}`

// session is one tab.
type session struct {
	page *rod.Page
	// isolated is the incognito context owned by this session, if any.
	isolated *rod.Browser
	codec    imagecodec.Codec
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Ensure session conforms to the capture.Session interface at compile time.
var _ capture.Session = (*session)(nil)

func (s *session) prepare(ctx context.Context, viewport domain.Viewport, userAgent string) error {
	p := s.page.Context(ctx)

	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewport.Width,
		Height:            viewport.Height,
		DeviceScaleFactor: viewport.Scale,
	}); err != nil {
		return fmt.Errorf("could not set viewport: %w", err)
	}

	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
		return fmt.Errorf("could not set user agent: %w", err)
	}

	return nil
}

// Navigate loads url and waits for the load event.
func (s *session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}

	return nil
}

// RemoveElements deletes the matches of selectors. Invalid selectors are
// logged and skipped.
func (s *session) RemoveElements(ctx context.Context, selectors []string) (int, error) {
	if len(selectors) == 0 {
		return 0, nil
	}

	res, err := s.page.Context(ctx).Eval(removeScript, selectors)
	if err != nil {
		return 0, fmt.Errorf("could not remove elements: %w", err)
	}

	removed := res.Value.Get("removed").Int()
	if skipped := res.Value.Get("skipped").Arr(); len(skipped) > 0 {
		invalid := make([]string, 0, len(skipped))
		for _, sel := range skipped {
			invalid = append(invalid, sel.Str())
		}
		s.logger.Warn("rodcapture: skipped invalid selectors", "selectors", invalid)
	}
	s.logger.Debug("rodcapture: removed elements", "selectors", selectors, "removed", removed)

	return removed, nil
}

// WaitForSelector polls until selector matches an element.
func (s *session) WaitForSelector(ctx context.Context, selector string) error {
	if _, err := s.page.Context(ctx).Element(selector); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}

	return nil
}

// WaitFixed sleeps for d unless ctx ends first.
func (s *session) WaitFixed(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Screenshot captures the page as PNG and decodes it.
func (s *session) Screenshot(ctx context.Context, fullPage bool) (domain.RawImage, error) {
	data, err := s.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return domain.RawImage{}, fmt.Errorf("could not take screenshot: %w", err)
	}

	img, err := s.codec.Decode(data)
	if err != nil {
		return domain.RawImage{}, fmt.Errorf("could not decode screenshot: %w", err)
	}

	return img, nil
}

// Close closes the tab and its isolated context. Later calls return the
// first result.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.page.Close()
		closeBrowser(s.isolated)
	})

	return s.closeErr
}
