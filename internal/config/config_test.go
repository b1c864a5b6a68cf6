package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pagediff/internal/config"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
http:
  addr: ":9090"
browser:
  remoteURL: "127.0.0.1:9222"
  maxConcurrent: 2
compare:
  threshold: 0.2
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.Equal(t, 2*time.Minute, cfg.HTTP.RequestTimeout)
	require.Equal(t, "127.0.0.1:9222", cfg.Browser.RemoteURL)
	require.Equal(t, int64(2), cfg.Browser.MaxConcurrent)
	require.True(t, cfg.Browser.Headless)
	require.False(t, cfg.Browser.IsolateSides)
	require.Equal(t, 1366, cfg.Compare.ViewportWidth)
	require.Equal(t, 768, cfg.Compare.ViewportHeight)
	require.InDelta(t, 1.0, cfg.Compare.DeviceScaleFactor, 1e-9)
	require.Equal(t, 45*time.Second, cfg.Compare.Timeout)
	require.InDelta(t, 0.2, cfg.Compare.Threshold, 1e-9)
	require.Empty(t, cfg.JWT.PublicKey)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("browser:\n  isolateSides: false\n"), 0o600))
	t.Setenv("BROWSER_ISOLATE_SIDES", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Browser.IsolateSides)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("COMPARE_TIMEOUT", "5s")

	cfg, err := config.LoadEnv()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.Compare.Timeout)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
}
