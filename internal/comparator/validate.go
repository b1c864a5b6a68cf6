package comparator

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"pagediff/pkg/domain"
	"pagediff/pkg/pixeldiff"
	"pagediff/pkg/serrors"
)

const (
	// maxViewportSide bounds each viewport dimension in CSS pixels.
	maxViewportSide = 16384
	// maxScale bounds the device scale factor.
	maxScale = 4
)

// NormalizeURL checks that raw is an absolute http(s) URL with a host and
// returns its canonical form: surrounding spaces trimmed, scheme and host
// lower-cased, and an empty path replaced by "/". Path, query and fragment
// are otherwise kept as given since pages may depend on them.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("could not parse URL: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", errors.New("missing host")
	}
	if u.User != nil {
		return "", errors.New("credentials in URL are not supported")
	}

	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// ValidateViewport checks the viewport dimensions and scale.
func ValidateViewport(v domain.Viewport) error {
	if v.Width <= 0 || v.Height <= 0 || v.Width > maxViewportSide || v.Height > maxViewportSide {
		return fmt.Errorf("viewport %dx%d must be within 1..%d", v.Width, v.Height, maxViewportSide)
	}
	if !(v.Scale > 0 && v.Scale <= maxScale) || math.IsInf(v.Scale, 0) {
		return fmt.Errorf("device scale factor %v must be within (0,%d]", v.Scale, maxScale)
	}

	return nil
}

// validateRequest returns a copy of req with its URL normalized, or an
// ErrInvalidInput error naming the side.
func validateRequest(side domain.Side, req domain.CaptureRequest) (domain.CaptureRequest, error) {
	normalized, err := NormalizeURL(req.URL)
	if err != nil {
		return req, serrors.Wrap(serrors.ErrInvalidInput, err, "invalid URL for side %s", side)
	}
	req.URL = normalized

	if err := ValidateViewport(req.Viewport); err != nil {
		return req, serrors.Wrap(serrors.ErrInvalidInput, err, "invalid viewport for side %s", side)
	}
	if req.TimeoutBudget <= 0 {
		return req, serrors.With(serrors.ErrInvalidInput, "timeout for side %s must be positive", side)
	}
	for _, selector := range req.Stabilization.RemoveSelectors {
		if strings.TrimSpace(selector) == "" {
			return req, serrors.With(serrors.ErrInvalidInput, "empty remove selector for side %s", side)
		}
	}

	return req, nil
}

func validateOptions(opts domain.DiffOptions) error {
	if !opts.Enabled {
		return nil
	}

	return pixeldiff.CheckOptions(opts)
}
