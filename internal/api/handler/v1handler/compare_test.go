package v1handler_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pagediff/internal/api/handler/v1handler"
	"pagediff/internal/comparator"
	mockcomparator "pagediff/internal/comparator/mock"
	"pagediff/pkg/domain"
	"pagediff/pkg/imagecodec"
	mockimagecodec "pagediff/pkg/imagecodec/mock"
	"pagediff/pkg/serrors"
)

func solid(w, h int, r, g, b byte) domain.RawImage {
	img := domain.NewRawImage(w, h)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, 255
	}

	return img
}

func outcome(withDiff bool) *domain.ComparisonOutcome {
	out := &domain.ComparisonOutcome{
		A:    domain.CaptureResult{Side: domain.SideA, URL: "https://a.example/", Image: solid(4, 3, 255, 0, 0)},
		B:    domain.CaptureResult{Side: domain.SideB, URL: "https://b.example/", Image: solid(4, 3, 0, 0, 255)},
		Meta: domain.ComparisonMeta{Viewport: domain.DefaultViewport()},
	}
	if withDiff {
		out.Diff = &domain.DiffResult{Image: solid(4, 3, 255, 0, 0), DifferingPixels: 12, Width: 4, Height: 3}
	}

	return out
}

func newHandler(t *testing.T) (*mockcomparator.MockComparator, *v1handler.Handler) {
	t.Helper()
	ctrl := gomock.NewController(t)
	cmp := mockcomparator.NewMockComparator(ctrl)

	return cmp, v1handler.New(v1handler.Deps{Comparator: cmp})
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	return rec
}

// decodeDataURL checks the data URL prefix and decodes the PNG it carries.
func decodeDataURL(t *testing.T, s string) domain.RawImage {
	t.Helper()
	payload, ok := strings.CutPrefix(s, "data:image/png;base64,")
	require.True(t, ok, "not a png data url: %.40s", s)
	data, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	img, err := imagecodec.PNG{}.Decode(data)
	require.NoError(t, err)

	return img
}

// fields decodes a flat JSON object into raw values by key.
func fields(t *testing.T, body []byte) map[string]jx.Raw {
	t.Helper()
	out := map[string]jx.Raw{}
	require.NoError(t, jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		raw, err := d.Raw()
		out[key] = raw

		return err
	}))

	return out
}

func TestScreenshot_AppliesDefaults(t *testing.T) {
	cmp, h := newHandler(t)
	cmp.EXPECT().Compare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a, b domain.CaptureRequest, opts domain.DiffOptions) (*domain.ComparisonOutcome, error) {
			require.Equal(t, "https://a.example/", a.URL)
			require.Equal(t, "https://b.example/", b.URL)
			require.Equal(t, domain.DefaultViewport(), a.Viewport)
			require.Equal(t, a.Viewport, b.Viewport)
			require.False(t, a.FullPage)
			require.Equal(t, 45*time.Second, a.TimeoutBudget)
			require.Zero(t, a.Stabilization.WaitTime)
			require.Equal(t, domain.DefaultDiffOptions(), opts)

			return outcome(true), nil
		})

	rec := post(h.Screenshot, `{"urlA":"https://a.example/","urlB":"https://b.example/"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	f := fields(t, rec.Body.Bytes())
	require.Equal(t, "true", f["ok"].String())
	require.JSONEq(t, `{"viewport":{"width":1366,"height":768,"deviceScaleFactor":1},"fullPage":false}`, f["meta"].String())

	a, err := jx.DecodeBytes(f["a"]).Str()
	require.NoError(t, err)
	img := decodeDataURL(t, a)
	require.Equal(t, 4, img.Width)
	require.Equal(t, 3, img.Height)
	require.Equal(t, []byte{255, 0, 0, 255}, img.Pix[:4])

	diff, err := jx.DecodeBytes(f["diff"]).Str()
	require.NoError(t, err)
	require.Equal(t, 4, decodeDataURL(t, diff).Width)
}

func TestScreenshot_MapsAllFields(t *testing.T) {
	cmp, h := newHandler(t)
	cmp.EXPECT().Compare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a, b domain.CaptureRequest, opts domain.DiffOptions) (*domain.ComparisonOutcome, error) {
			require.Equal(t, domain.Viewport{Width: 800, Height: 600, Scale: 2}, a.Viewport)
			require.True(t, b.FullPage)
			require.Equal(t, 10*time.Second, b.TimeoutBudget)
			require.Equal(t, "#app", b.Stabilization.WaitSelector)
			require.Equal(t, 1500*time.Millisecond, b.Stabilization.WaitTime)
			require.Equal(t, []string{".cookie", "#ad"}, a.Stabilization.RemoveSelectors)
			require.Equal(t, domain.DiffOptions{
				Enabled: false, Threshold: 0.3, IncludeAntiAliased: false, OutputAlpha: 100,
			}, opts)

			out := outcome(false)
			out.Meta = domain.ComparisonMeta{Viewport: a.Viewport, FullPage: true}

			return out, nil
		})

	rec := post(h.Screenshot, `{
		"urlA": "https://a.example/", "urlB": "https://b.example/",
		"viewport": {"width": 800, "height": 600, "deviceScaleFactor": 2},
		"fullPage": true, "timeoutMs": 10000,
		"diff": {"enable": false, "threshold": 0.3, "includeAA": false, "alpha": 100},
		"waitSelector": "#app", "waitMs": 1500,
		"removeSelectors": [".cookie", "#ad"],
		"basicAuth": {"username": "ignored"}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	f := fields(t, rec.Body.Bytes())
	require.Equal(t, "null", f["diff"].String())
	require.JSONEq(t, `{"viewport":{"width":800,"height":600,"deviceScaleFactor":2},"fullPage":true}`, f["meta"].String())
}

func TestScreenshot_NullFieldsUseDefaults(t *testing.T) {
	cmp, h := newHandler(t)
	cmp.EXPECT().Compare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a, _ domain.CaptureRequest, opts domain.DiffOptions) (*domain.ComparisonOutcome, error) {
			require.Equal(t, domain.DefaultViewport(), a.Viewport)
			require.True(t, opts.Enabled)

			return outcome(true), nil
		})

	rec := post(h.Screenshot, `{"urlA":"http://a.example","urlB":"http://b.example","viewport":null,"diff":{"enable":null}}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestScreenshot_Errors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		resp   string
	}{
		{name: "invalid json", body: `{"urlA":`, status: 400, resp: `{"error":"Invalid JSON"}`},
		{name: "not an object", body: `[1,2]`, status: 400, resp: `{"error":"Invalid JSON"}`},
		{name: "wrong type", body: `{"urlA":1}`, status: 400, resp: `{"error":"Invalid JSON"}`},
		{
			name:   "invalid url",
			body:   `{"urlA":"not-a-url","urlB":"https://b.example/"}`,
			status: 400,
			resp:   `{"error":"urlA/urlB must be valid http(s) URLs"}`,
		},
		{
			name:   "missing url",
			body:   `{"urlA":"https://a.example/"}`,
			status: 400,
			resp:   `{"error":"urlA/urlB must be valid http(s) URLs"}`,
		},
		{
			name:   "navigation failure",
			body:   `{"urlA":"https://a.example/","urlB":"https://b.example/"}`,
			err:    &comparator.SideError{Side: domain.SideA, Err: serrors.With(serrors.ErrNavigationFailure, "could not navigate")},
			status: 500,
			resp:   `{"ok":false,"error":"could not navigate"}`,
		},
		{
			name:   "comparator rejects input",
			body:   `{"urlA":"https://a.example/","urlB":"https://b.example/","timeoutMs":-1}`,
			err:    serrors.With(serrors.ErrInvalidInput, "timeout for side A must be positive"),
			status: 400,
			resp:   `{"error":"timeout for side A must be positive"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmp, h := newHandler(t)
			if tc.err != nil {
				cmp.EXPECT().Compare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tc.err)
			}

			rec := post(h.Screenshot, tc.body)
			require.Equal(t, tc.status, rec.Code)
			require.JSONEq(t, tc.resp, rec.Body.String())
		})
	}
}

func TestScreenshot_MethodNotAllowed(t *testing.T) {
	_, h := newHandler(t)

	rec := httptest.NewRecorder()
	h.Screenshot(rec, httptest.NewRequest(http.MethodGet, "/api/screenshot", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestScreenshot_BodyTooLarge(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := v1handler.New(v1handler.Deps{Comparator: mockcomparator.NewMockComparator(ctrl), MaxBodyBytes: 16})

	rec := post(h.Screenshot, `{"urlA":"https://a.example/","urlB":"https://b.example/"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateComparison_ExtendedMeta(t *testing.T) {
	cmp, h := newHandler(t)
	out := outcome(true)
	cmp.EXPECT().Compare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(out, nil)

	rec := post(h.CreateComparison, `{"urlA":"https://a.example/","urlB":"https://b.example/"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	meta := fields(t, fields(t, rec.Body.Bytes())["meta"])
	require.Equal(t, `"`+out.ID.String()+`"`, meta["id"].String())
	require.Equal(t, "12", meta["differingPixels"].String())
	require.Equal(t, "4", meta["width"].String())
	require.Equal(t, "3", meta["height"].String())
	require.JSONEq(t, "1", meta["ratio"].String())

	captures := fields(t, meta["captures"])
	require.JSONEq(t, `{"url":"https://b.example/","width":4,"height":3,"durationMs":0}`, captures["B"].String())
}

func TestCreateComparison_Errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		resp   string
	}{
		{
			name:   "navigation timeout",
			err:    &comparator.SideError{Side: domain.SideB, Err: serrors.Wrap(serrors.ErrNavigationTimeout, context.DeadlineExceeded, "navigation exceeded 1s")},
			status: 504,
			resp:   `{"ok":false,"code":"NAVIGATION_TIMEOUT","error":"navigation exceeded 1s","side":"B"}`,
		},
		{
			name:   "stabilization failure",
			err:    &comparator.SideError{Side: domain.SideA, Err: serrors.With(serrors.ErrStabilizationFailure, "could not remove elements")},
			status: 502,
			resp:   `{"ok":false,"code":"STABILIZATION_FAILURE","error":"could not remove elements","side":"A"}`,
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			status: 500,
			resp:   `{"ok":false,"code":"INTERNAL","error":"internal error"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmp, h := newHandler(t)
			cmp.EXPECT().Compare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tc.err)

			rec := post(h.CreateComparison, `{"urlA":"https://a.example/","urlB":"https://b.example/"}`)
			require.Equal(t, tc.status, rec.Code)
			require.JSONEq(t, tc.resp, rec.Body.String())
		})
	}
}

func TestCreateComparison_RejectsGet(t *testing.T) {
	_, h := newHandler(t)

	rec := httptest.NewRecorder()
	h.CreateComparison(rec, httptest.NewRequest(http.MethodGet, "/v1/comparisons", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.JSONEq(t, `{"ok":false,"code":"METHOD_NOT_ALLOWED","error":"method GET not allowed"}`, rec.Body.String())
}

func TestScreenshot_EncodeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	cmp := mockcomparator.NewMockComparator(ctrl)
	codec := mockimagecodec.NewMockCodec(ctrl)
	h := v1handler.New(v1handler.Deps{Comparator: cmp, Codec: codec})

	cmp.EXPECT().Compare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(outcome(true), nil)
	codec.EXPECT().Encode(gomock.Any()).Return([]byte("png"), nil)
	codec.EXPECT().Encode(gomock.Any()).Return(nil, errors.New("deflate failed"))

	rec := post(h.Screenshot, `{"urlA":"https://a.example/","urlB":"https://b.example/"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"ok":false,"error":"internal error"}`, rec.Body.String())
}
