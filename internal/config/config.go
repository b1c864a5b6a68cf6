package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, browser, comparison
// defaults, authentication and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response.
		// It must exceed RequestTimeout so slow comparisons can still answer.
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"3m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request,
		// covering both page captures and the diff
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"2m" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MaxBodyBytes limits the size of a comparison request body
		MaxBodyBytes int64 `env:"HTTP_MAX_BODY_BYTES" env-default:"1048576" yaml:"maxBodyBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
		// CORSOrigin is the value of Access-Control-Allow-Origin; "*" allows any origin without credentials
		CORSOrigin string `env:"HTTP_CORS_ORIGIN" env-default:"*" yaml:"corsOrigin"`
	} `yaml:"http"`

	// Browser configures the Chromium instances that render pages
	Browser struct {
		// Bin is the Chromium executable; empty lets the launcher find or download one
		Bin string `env:"BROWSER_BIN" env-default:"" yaml:"bin"`
		// RemoteURL is the DevTools endpoint of an external browser; empty launches local browsers
		RemoteURL string `env:"BROWSER_REMOTE_URL" env-default:"" yaml:"remoteURL"`
		// Headless runs local browsers without a window
		Headless bool `env:"BROWSER_HEADLESS" env-default:"true" yaml:"headless"`
		// NoSandbox disables the Chromium sandbox (required when running as root in containers)
		NoSandbox bool `env:"BROWSER_NO_SANDBOX" env-default:"true" yaml:"noSandbox"`
		// Stealth applies automation evasions to every page
		Stealth bool `env:"BROWSER_STEALTH" env-default:"false" yaml:"stealth"`
		// UserAgent overrides the browser user agent; empty uses the built-in one
		UserAgent string `env:"BROWSER_USER_AGENT" env-default:"" yaml:"userAgent"`
		// IgnoreCertErrors accepts invalid TLS certificates
		IgnoreCertErrors bool `env:"BROWSER_IGNORE_CERT_ERRORS" env-default:"true" yaml:"ignoreCertErrors"`
		// IsolateSides renders the two pages of a comparison in separate incognito contexts
		IsolateSides bool `env:"BROWSER_ISOLATE_SIDES" env-default:"false" yaml:"isolateSides"`
		// MaxConcurrent bounds the number of browsing environments running at once
		MaxConcurrent int64 `env:"BROWSER_MAX_CONCURRENT" env-default:"4" yaml:"maxConcurrent"`
	} `yaml:"browser"`

	// Compare holds the defaults applied to requests that omit a setting
	Compare struct {
		// ViewportWidth is the default viewport width in CSS pixels
		ViewportWidth int `env:"COMPARE_VIEWPORT_WIDTH" env-default:"1366" yaml:"viewportWidth"`
		// ViewportHeight is the default viewport height in CSS pixels
		ViewportHeight int `env:"COMPARE_VIEWPORT_HEIGHT" env-default:"768" yaml:"viewportHeight"`
		// DeviceScaleFactor is the default device pixel ratio
		DeviceScaleFactor float64 `env:"COMPARE_DEVICE_SCALE_FACTOR" env-default:"1" yaml:"deviceScaleFactor"`
		// Timeout is the default navigation budget per page
		Timeout time.Duration `env:"COMPARE_TIMEOUT" env-default:"45s" yaml:"timeout"`
		// Threshold is the default diff matching threshold
		Threshold float64 `env:"COMPARE_THRESHOLD" env-default:"0.1" yaml:"threshold"`
	} `yaml:"compare"`

	// JWT holds the RS256 keys used to authenticate API calls
	JWT struct {
		// PublicKey verifies bearer tokens; empty disables authentication
		PublicKey string `env:"JWT_PUBLIC_KEY" env-default:"" yaml:"publicKey"`
		// PrivateKey signs tokens minted by the jwt command
		PrivateKey string `env:"JWT_PRIVATE_KEY" env-default:"" yaml:"privateKey"`
	} `yaml:"jwt"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"2m" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}

// LoadEnv fills a Config from environment variables and defaults only, for
// commands that run without a config file.
func LoadEnv() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("could not read config from environment: %w", err)
	}

	return &cfg, nil
}
