package v1handler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pagediff/internal/api/handler/v1handler"
	"pagediff/pkg/domain"
)

func TestDecodeCompareRequest_IgnoresUnknownFields(t *testing.T) {
	req, err := v1handler.DecodeCompareRequest([]byte(`{
		"urlA": "https://a.example/",
		"extra": {"nested": [1, 2, {"x": null}]},
		"urlB": "https://b.example/"
	}`))
	require.NoError(t, err)
	require.Equal(t, "https://a.example/", req.URLA)
	require.Equal(t, "https://b.example/", req.URLB)
	require.Nil(t, req.FullPage)
	require.Nil(t, req.Viewport.Width)
}

func TestDecodeCompareRequest_AllFields(t *testing.T) {
	req, err := v1handler.DecodeCompareRequest([]byte(`{
		"urlA": "https://a.example/", "urlB": "https://b.example/",
		"viewport": {"width": 800, "height": 600, "deviceScaleFactor": 2},
		"fullPage": true, "timeoutMs": 5000,
		"diff": {"enable": false, "threshold": 0.2, "includeAA": false, "alpha": 128},
		"waitSelector": "#ready", "waitMs": 250, "removeSelectors": [".ad", "#banner"]
	}`))
	require.NoError(t, err)
	require.Equal(t, "https://a.example/", req.URLA)
	require.Equal(t, 800, *req.Viewport.Width)
	require.Equal(t, 600, *req.Viewport.Height)
	require.Equal(t, 2.0, *req.Viewport.DeviceScaleFactor)
	require.True(t, *req.FullPage)
	require.Equal(t, 5000.0, *req.TimeoutMs)
	require.False(t, *req.Diff.Enable)
	require.Equal(t, 0.2, *req.Diff.Threshold)
	require.False(t, *req.Diff.IncludeAA)
	require.Equal(t, 128, *req.Diff.Alpha)
	require.Equal(t, "#ready", req.WaitSelector)
	require.Equal(t, 250.0, *req.WaitMs)
	require.Equal(t, []string{".ad", "#banner"}, req.RemoveSelectors)
}

func TestDecodeCompareRequest_Errors(t *testing.T) {
	for _, body := range []string{
		``,
		`null`,
		`"text"`,
		`{"viewport":{"width":"wide"}}`,
		`{"diff":{"enable":"yes"}}`,
		`{"removeSelectors":".a"}`,
		`{"removeSelectors":[1]}`,
	} {
		_, err := v1handler.DecodeCompareRequest([]byte(body))
		require.Error(t, err, body)
	}
}

func TestCompareRequest_ToDomain(t *testing.T) {
	defaults := v1handler.Defaults{
		Viewport: domain.Viewport{Width: 1024, Height: 768, Scale: 1},
		Timeout:  30 * time.Second,
		Diff:     domain.DefaultDiffOptions(),
	}

	req, err := v1handler.DecodeCompareRequest([]byte(`{
		"urlA": "https://a.example/", "urlB": "https://b.example/",
		"viewport": {"height": 900}, "waitMs": -5, "diff": {"threshold": 0}
	}`))
	require.NoError(t, err)

	a, b, opts := req.ToDomain(defaults)
	require.Equal(t, "https://a.example/", a.URL)
	require.Equal(t, "https://b.example/", b.URL)
	require.Equal(t, domain.Viewport{Width: 1024, Height: 900, Scale: 1}, a.Viewport)
	require.Equal(t, 30*time.Second, b.TimeoutBudget)
	// non-positive waits are skipped
	require.Zero(t, a.Stabilization.WaitTime)
	require.Zero(t, opts.Threshold)
	require.True(t, opts.Enabled)
	require.True(t, opts.IncludeAntiAliased)
	require.Equal(t, 255, opts.OutputAlpha)
}
