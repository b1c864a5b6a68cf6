package v1handler

import (
	"encoding/base64"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"pagediff/pkg/domain"
	"pagediff/pkg/imagecodec"
)

const pngDataURLPrefix = "data:image/png;base64,"

// DataURL encodes img with codec as a base64 PNG data URL.
func DataURL(codec imagecodec.Codec, img domain.RawImage) (string, error) {
	data, err := codec.Encode(img)
	if err != nil {
		return "", errors.Wrap(err, "encode image")
	}

	return pngDataURLPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// EncodeOutcome writes the comparison response:
//
//	{"ok":true,"a":<data url>,"b":<data url>,"diff":<data url>|null,
//	 "meta":{"viewport":{...},"fullPage":bool}}
//
// With extended set, meta also carries the comparison id, the capture
// dimensions and durations, and the diff statistics.
func EncodeOutcome(e *jx.Encoder, codec imagecodec.Codec, out *domain.ComparisonOutcome, extended bool) error {
	a, err := DataURL(codec, out.A.Image)
	if err != nil {
		return errors.Wrap(err, "capture A")
	}
	b, err := DataURL(codec, out.B.Image)
	if err != nil {
		return errors.Wrap(err, "capture B")
	}

	var diff string
	if out.Diff != nil {
		if diff, err = DataURL(codec, out.Diff.Image); err != nil {
			return errors.Wrap(err, "diff")
		}
	}

	e.Obj(func(e *jx.Encoder) {
		e.Field("ok", func(e *jx.Encoder) { e.Bool(true) })
		e.Field("a", func(e *jx.Encoder) { e.Str(a) })
		e.Field("b", func(e *jx.Encoder) { e.Str(b) })
		e.Field("diff", func(e *jx.Encoder) {
			if out.Diff == nil {
				e.Null()

				return
			}
			e.Str(diff)
		})
		e.Field("meta", func(e *jx.Encoder) {
			encodeMeta(e, out, extended)
		})
	})

	return nil
}

func encodeMeta(e *jx.Encoder, out *domain.ComparisonOutcome, extended bool) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("viewport", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("width", func(e *jx.Encoder) { e.Int(out.Meta.Viewport.Width) })
				e.Field("height", func(e *jx.Encoder) { e.Int(out.Meta.Viewport.Height) })
				e.Field("deviceScaleFactor", func(e *jx.Encoder) { e.Float64(out.Meta.Viewport.Scale) })
			})
		})
		e.Field("fullPage", func(e *jx.Encoder) { e.Bool(out.Meta.FullPage) })

		if !extended {
			return
		}

		e.Field("id", func(e *jx.Encoder) { e.Str(out.ID.String()) })
		e.Field("captures", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, c := range []domain.CaptureResult{out.A, out.B} {
					e.Field(string(c.Side), func(e *jx.Encoder) { encodeCapture(e, c) })
				}
			})
		})
		if out.Diff != nil {
			e.Field("differingPixels", func(e *jx.Encoder) { e.Int(out.Diff.DifferingPixels) })
			e.Field("width", func(e *jx.Encoder) { e.Int(out.Diff.Width) })
			e.Field("height", func(e *jx.Encoder) { e.Int(out.Diff.Height) })
			e.Field("ratio", func(e *jx.Encoder) { e.Float64(out.Diff.Ratio()) })
		}
	})
}

func encodeCapture(e *jx.Encoder, c domain.CaptureResult) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("url", func(e *jx.Encoder) { e.Str(c.URL) })
		e.Field("width", func(e *jx.Encoder) { e.Int(c.Image.Width) })
		e.Field("height", func(e *jx.Encoder) { e.Int(c.Image.Height) })
		e.Field("durationMs", func(e *jx.Encoder) { e.Int64(c.Duration.Milliseconds()) })
	})
}
