package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultURL is the gradebook page the exporter reads.
const DefaultURL = "https://epicschools.agilixbuzz.com/student/gradebook/all"

// DefaultPagePattern restricts scraping to the gradebook page.
const DefaultPagePattern = `^https://epicschools\.agilixbuzz\.com/student/gradebook/all`

// Config holds all application configuration.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Browser   BrowserConfig   `yaml:"browser"`
	Poll      PollConfig      `yaml:"poll"`
	Export    ExportConfig    `yaml:"export"`
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Log       LogConfig       `yaml:"log"`
}

// SourceConfig selects where page snapshots come from.
type SourceConfig struct {
	// URL is the page to open when no matching tab is already open.
	URL string `yaml:"url"`

	// PagePattern is a regular expression the page location must match
	// before it is scraped. Empty disables the check.
	PagePattern string `yaml:"pagePattern"`

	// HTMLFile, when set, replaces the browser with a saved HTML snapshot.
	HTMLFile string `yaml:"htmlFile"`
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether a launched browser runs headless. The
	// default is false so the user can log in to the page.
	Headless bool `yaml:"headless"` // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"bin"`

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"noSandbox"` // default: false

	// CDPURL attaches to the user's own running Chrome instead of launching one.
	CDPURL string `yaml:"cdpURL"`

	// UserDataDir keeps the launched browser's profile (and login) between runs.
	UserDataDir string `yaml:"userDataDir"`

	// Stealth masks navigator.webdriver and similar automation hints.
	Stealth bool `yaml:"stealth"` // default: false

	// Headers are extra HTTP headers sent with every page request.
	Headers map[string]string `yaml:"headers"`

	// NavigationTimeout bounds opening the page.
	NavigationTimeout time.Duration `yaml:"navigationTimeout"` // default: 30s

	// SnapshotTimeout bounds reading one snapshot.
	SnapshotTimeout time.Duration `yaml:"snapshotTimeout"` // default: 5s
}

// PollConfig is the readiness budget.
type PollConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"` // default: 60
	Interval    time.Duration `yaml:"interval"`    // default: 1s
}

// ExportConfig controls the export actions.
type ExportConfig struct {
	// OutPath is the download file name.
	OutPath string `yaml:"out"` // default: "buzz-gradebook-progress.json"

	// Format is "json" or "markdown".
	Format string `yaml:"format"` // default: "json"

	// Copy puts the export on the clipboard as well.
	Copy bool `yaml:"copy"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "127.0.0.1"
	Port int    `yaml:"port"` // default: 8765
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 `yaml:"rps"` // default: 2

	// Burst is the maximum burst size per client.
	Burst int `yaml:"burst"` // default: 5

	// IdleTTL is how long an unused client bucket is kept.
	IdleTTL time.Duration `yaml:"idleTTL"` // default: 1h

	// SweepInterval is how often idle buckets are evicted.
	SweepInterval time.Duration `yaml:"sweepInterval"` // default: 5m
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "text"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			URL:         DefaultURL,
			PagePattern: DefaultPagePattern,
		},
		Browser: BrowserConfig{
			NavigationTimeout: 30 * time.Second,
			SnapshotTimeout:   5 * time.Second,
		},
		Poll: PollConfig{
			MaxAttempts: 60,
			Interval:    time.Second,
		},
		Export: ExportConfig{
			OutPath: "buzz-gradebook-progress.json",
			Format:  "json",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8765,
			Mode: "release",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2.0,
			Burst:             5,
			IdleTTL:           time.Hour,
			SweepInterval:     5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// applyEnv overrides every field whose BUZZ_* variable is set.
func (c *Config) applyEnv() {
	c.Source.URL = envOr("BUZZ_URL", c.Source.URL)
	c.Source.PagePattern = envOr("BUZZ_PAGE_PATTERN", c.Source.PagePattern)
	c.Source.HTMLFile = envOr("BUZZ_HTML_FILE", c.Source.HTMLFile)

	c.Browser.Headless = envBoolOr("BUZZ_HEADLESS", c.Browser.Headless)
	c.Browser.BrowserBin = envOr("BUZZ_BROWSER_BIN", c.Browser.BrowserBin)
	c.Browser.NoSandbox = envBoolOr("BUZZ_NO_SANDBOX", c.Browser.NoSandbox)
	c.Browser.CDPURL = envOr("BUZZ_CDP_URL", c.Browser.CDPURL)
	c.Browser.UserDataDir = envOr("BUZZ_USER_DATA_DIR", c.Browser.UserDataDir)
	c.Browser.Stealth = envBoolOr("BUZZ_STEALTH", c.Browser.Stealth)
	c.Browser.Headers = envMapOr("BUZZ_HEADERS", c.Browser.Headers)
	c.Browser.NavigationTimeout = envDurationOr("BUZZ_NAV_TIMEOUT", c.Browser.NavigationTimeout)
	c.Browser.SnapshotTimeout = envDurationOr("BUZZ_SNAPSHOT_TIMEOUT", c.Browser.SnapshotTimeout)

	c.Poll.MaxAttempts = envIntOr("BUZZ_MAX_ATTEMPTS", c.Poll.MaxAttempts)
	c.Poll.Interval = envDurationOr("BUZZ_POLL_INTERVAL", c.Poll.Interval)

	c.Export.OutPath = envOr("BUZZ_OUT", c.Export.OutPath)
	c.Export.Format = envOr("BUZZ_FORMAT", c.Export.Format)
	c.Export.Copy = envBoolOr("BUZZ_COPY", c.Export.Copy)

	c.Server.Host = envOr("BUZZ_HOST", c.Server.Host)
	c.Server.Port = envIntOr("BUZZ_PORT", c.Server.Port)
	c.Server.Mode = envOr("BUZZ_MODE", c.Server.Mode)

	c.RateLimit.RequestsPerSecond = envFloatOr("BUZZ_RATE_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = envIntOr("BUZZ_RATE_BURST", c.RateLimit.Burst)
	c.RateLimit.IdleTTL = envDurationOr("BUZZ_RATE_IDLE_TTL", c.RateLimit.IdleTTL)
	c.RateLimit.SweepInterval = envDurationOr("BUZZ_RATE_SWEEP", c.RateLimit.SweepInterval)

	c.Log.Level = envOr("BUZZ_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("BUZZ_LOG_FORMAT", c.Log.Format)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envMapOr parses "k=v,k2=v2". Entries without "=" are ignored.
func envMapOr(key string, fallback map[string]string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	result := make(map[string]string)
	for _, p := range strings.Split(v, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		result[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
