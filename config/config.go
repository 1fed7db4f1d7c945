package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Browser   BrowserConfig
	Retriever RetrieverConfig
	Retry     RetryConfig
	Output    OutputConfig
	Summary   SummaryConfig
	Log       LogConfig
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// ViewportWidth/ViewportHeight size the browsing viewport.
	// 1920x1080 matches typical slide dimensions for clean captures.
	ViewportWidth  int // default: 1920
	ViewportHeight int // default: 1080

	// UserAgent is sent on every request. Defaults to a desktop Chrome UA;
	// the viewer serves a degraded mobile layout to unknown agents.
	UserAgent string

	// Stealth enables navigator.webdriver masking and related evasions.
	Stealth bool // default: true

	// BlockTrackers rejects requests to known ad/analytics domains.
	// The viewer's analytics beacons otherwise keep the network busy forever.
	BlockTrackers bool // default: true
}

// RetrieverConfig controls the document retrieval engine.
type RetrieverConfig struct {
	// NavigationTimeout bounds the initial page load.
	NavigationTimeout time.Duration // default: 30s

	// CaptureTimeout bounds a single page screenshot.
	CaptureTimeout time.Duration // default: 10s

	// SettleDelay is the render-stability pause before each capture.
	SettleDelay time.Duration // default: 1500ms

	// AuthSettleTimeout bounds the post-submission wait for the gate to clear.
	AuthSettleTimeout time.Duration // default: 10s

	// MaxPages is the sanity ceiling on discoverable page counts.
	MaxPages int // default: 100

	// CapturesPerSecond paces the capture loop so page navigation does not
	// outrun the viewer's renderer. Zero disables pacing.
	CapturesPerSecond float64 // default: 2
}

// RetryConfig controls the retry/backoff policy.
type RetryConfig struct {
	// MaxAttempts is the per-operation attempt ceiling.
	MaxAttempts int // default: 3

	// NavigationBase seeds the exponential navigation backoff (base, 2x, 4x).
	NavigationBase time.Duration // default: 1s

	// CaptureDelay is the flat delay between capture attempts.
	CaptureDelay time.Duration // default: 1s
}

// OutputConfig controls where artifacts are written.
type OutputConfig struct {
	// Dir is the directory PDFs (and summaries) are written to.
	Dir string // default: "converted PDFs"

	// Optimize re-encodes captures as JPEG for smaller PDFs.
	Optimize bool // default: true
}

// SummaryConfig controls the optional AI summary step.
type SummaryConfig struct {
	// BaseURL is the OpenAI-compatible endpoint root.
	BaseURL string // default: "https://api.perplexity.ai"

	// Model is the chat model used for analysis + peer search.
	Model string // default: "sonar-reasoning-pro"

	// MaxOCRPages caps how many captures are OCRed for the prompt.
	MaxOCRPages int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:       envBoolOr("DECKFETCH_HEADLESS", true),
			NoSandbox:      envBoolOr("DECKFETCH_NO_SANDBOX", false),
			BrowserBin:     os.Getenv("DECKFETCH_BROWSER_BIN"),
			ViewportWidth:  envIntOr("DECKFETCH_VIEWPORT_WIDTH", 1920),
			ViewportHeight: envIntOr("DECKFETCH_VIEWPORT_HEIGHT", 1080),
			UserAgent: envOr("DECKFETCH_USER_AGENT",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) "+
					"AppleWebKit/537.36 (KHTML, like Gecko) "+
					"Chrome/120.0.0.0 Safari/537.36"),
			Stealth:       envBoolOr("DECKFETCH_STEALTH", true),
			BlockTrackers: envBoolOr("DECKFETCH_BLOCK_TRACKERS", true),
		},
		Retriever: RetrieverConfig{
			NavigationTimeout: envDurationOr("DECKFETCH_NAV_TIMEOUT", 30*time.Second),
			CaptureTimeout:    envDurationOr("DECKFETCH_CAPTURE_TIMEOUT", 10*time.Second),
			SettleDelay:       envDurationOr("DECKFETCH_SETTLE_DELAY", 1500*time.Millisecond),
			AuthSettleTimeout: envDurationOr("DECKFETCH_AUTH_SETTLE_TIMEOUT", 10*time.Second),
			MaxPages:          envIntOr("DECKFETCH_MAX_PAGES", 100),
			CapturesPerSecond: envFloatOr("DECKFETCH_CAPTURES_PER_SECOND", 2.0),
		},
		Retry: RetryConfig{
			MaxAttempts:    envIntOr("DECKFETCH_RETRY_ATTEMPTS", 3),
			NavigationBase: envDurationOr("DECKFETCH_RETRY_NAV_BASE", 1*time.Second),
			CaptureDelay:   envDurationOr("DECKFETCH_RETRY_CAPTURE_DELAY", 1*time.Second),
		},
		Output: OutputConfig{
			Dir:      envOr("DECKFETCH_OUTPUT_DIR", "converted PDFs"),
			Optimize: envBoolOr("DECKFETCH_OPTIMIZE", true),
		},
		Summary: SummaryConfig{
			BaseURL:     envOr("DECKFETCH_SUMMARY_BASE_URL", "https://api.perplexity.ai"),
			Model:       envOr("DECKFETCH_SUMMARY_MODEL", "sonar-reasoning-pro"),
			MaxOCRPages: envIntOr("DECKFETCH_SUMMARY_OCR_PAGES", 5),
		},
		Log: LogConfig{
			Level:  envOr("DECKFETCH_LOG_LEVEL", "info"),
			Format: envOr("DECKFETCH_LOG_FORMAT", "text"),
		},
	}
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
