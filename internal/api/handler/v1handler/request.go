package v1handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"pagediff/pkg/domain"
)

// CompareRequest is the body accepted by both comparison endpoints. Pointer
// fields are optional; nil means "use the default".
type CompareRequest struct {
	URLA string
	URLB string

	Viewport ViewportRequest
	FullPage *bool
	// TimeoutMs is the navigation budget per page in milliseconds.
	TimeoutMs *float64
	Diff      DiffRequest

	WaitSelector    string
	WaitMs          *float64
	RemoveSelectors []string
}

// ViewportRequest holds the optional viewport fields.
type ViewportRequest struct {
	Width             *int
	Height            *int
	DeviceScaleFactor *float64
}

// DiffRequest holds the optional diff fields.
type DiffRequest struct {
	Enable    *bool
	Threshold *float64
	IncludeAA *bool
	Alpha     *int
}

// DecodeCompareRequest parses a JSON request body. Unknown fields are
// ignored and null is treated like an omitted field.
func DecodeCompareRequest(data []byte) (*CompareRequest, error) {
	var req CompareRequest
	d := jx.DecodeBytes(data)

	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}

		var err error
		switch key {
		case "urlA":
			req.URLA, err = d.Str()
		case "urlB":
			req.URLB, err = d.Str()
		case "viewport":
			err = req.Viewport.decode(d)
		case "fullPage":
			req.FullPage, err = optBool(d)
		case "timeoutMs":
			req.TimeoutMs, err = optFloat(d)
		case "diff":
			err = req.Diff.decode(d)
		case "waitSelector":
			req.WaitSelector, err = d.Str()
		case "waitMs":
			req.WaitMs, err = optFloat(d)
		case "removeSelectors":
			err = d.Arr(func(d *jx.Decoder) error {
				s, err := d.Str()
				if err != nil {
					return err //nolint: wrapcheck
				}
				req.RemoveSelectors = append(req.RemoveSelectors, s)

				return nil
			})
		default:
			err = d.Skip()
		}

		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}

		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode comparison request")
	}

	return &req, nil
}

func (v *ViewportRequest) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error { //nolint: wrapcheck
		if d.Next() == jx.Null {
			return d.Null()
		}

		var err error
		switch key {
		case "width":
			v.Width, err = optInt(d)
		case "height":
			v.Height, err = optInt(d)
		case "deviceScaleFactor":
			v.DeviceScaleFactor, err = optFloat(d)
		default:
			err = d.Skip()
		}

		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}

		return nil
	})
}

func (o *DiffRequest) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error { //nolint: wrapcheck
		if d.Next() == jx.Null {
			return d.Null()
		}

		var err error
		switch key {
		case "enable":
			o.Enable, err = optBool(d)
		case "threshold":
			o.Threshold, err = optFloat(d)
		case "includeAA":
			o.IncludeAA, err = optBool(d)
		case "alpha":
			o.Alpha, err = optInt(d)
		default:
			err = d.Skip()
		}

		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}

		return nil
	})
}

func optBool(d *jx.Decoder) (*bool, error) {
	v, err := d.Bool()
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	return &v, nil
}

func optInt(d *jx.Decoder) (*int, error) {
	v, err := d.Int()
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	return &v, nil
}

func optFloat(d *jx.Decoder) (*float64, error) {
	v, err := d.Float64()
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	return &v, nil
}

// ToDomain applies defaults and returns the two capture requests and the
// diff options. Both sides share the viewport, timeout and stabilization.
func (r *CompareRequest) ToDomain(defaults Defaults) (domain.CaptureRequest, domain.CaptureRequest, domain.DiffOptions) {
	viewport := defaults.Viewport
	if r.Viewport.Width != nil {
		viewport.Width = *r.Viewport.Width
	}
	if r.Viewport.Height != nil {
		viewport.Height = *r.Viewport.Height
	}
	if r.Viewport.DeviceScaleFactor != nil {
		viewport.Scale = *r.Viewport.DeviceScaleFactor
	}

	timeout := defaults.Timeout
	if r.TimeoutMs != nil {
		timeout = millis(*r.TimeoutMs)
	}

	var wait time.Duration
	if r.WaitMs != nil && *r.WaitMs > 0 {
		wait = millis(*r.WaitMs)
	}

	base := domain.CaptureRequest{
		Viewport:      viewport,
		FullPage:      r.FullPage != nil && *r.FullPage,
		TimeoutBudget: timeout,
		Stabilization: domain.Stabilization{
			RemoveSelectors: r.RemoveSelectors,
			WaitSelector:    r.WaitSelector,
			WaitTime:        wait,
		},
	}
	a, b := base, base
	a.URL, b.URL = r.URLA, r.URLB

	opts := defaults.Diff
	if r.Diff.Enable != nil {
		opts.Enabled = *r.Diff.Enable
	}
	if r.Diff.Threshold != nil {
		opts.Threshold = *r.Diff.Threshold
	}
	if r.Diff.IncludeAA != nil {
		opts.IncludeAntiAliased = *r.Diff.IncludeAA
	}
	if r.Diff.Alpha != nil {
		opts.OutputAlpha = *r.Diff.Alpha
	}

	return a, b, opts
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
