package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Wiki connection
	WikiURL      string
	WikiUsername string
	WikiPassword string
	WikiToken    string
	WikiTimeout  time.Duration
	RateLimit    float64 // requests per second, 0 disables pacing

	// Target
	SpaceKey        string
	MainParentTitle string
	DryRun          bool

	// Local site
	SiteFile string

	// Eventual consistency handling
	RetryAttempts     int
	RetryDelay        time.Duration
	RetryExponential  bool // exponential backoff with jitter instead of a fixed delay
	VisibilityPoll    time.Duration
	VisibilityTimeout time.Duration

	// Auth for the HTTP API
	APIKey string

	// Run state
	RunTTL       time.Duration
	MaxQueueSize int

	// Logging
	LogLevel string
	LogFile  string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		WikiURL:      strings.TrimRight(os.Getenv("WIKI_URL"), "/"),
		WikiUsername: os.Getenv("WIKI_USERNAME"),
		WikiPassword: os.Getenv("WIKI_PASSWORD"),
		WikiToken:    os.Getenv("WIKI_TOKEN"),
		WikiTimeout:  envDuration("WIKI_TIMEOUT", 30*time.Second),
		RateLimit:    envFloat("WIKI_RATE_LIMIT", 10),

		SpaceKey:        os.Getenv("WIKI_SPACE"),
		MainParentTitle: os.Getenv("WIKI_PARENT_PAGE"),
		DryRun:          envBool("WIKI_DRY_RUN", false),

		SiteFile: envOr("SITE_FILE", "mkdocs.yml"),

		RetryAttempts:     envInt("RETRY_ATTEMPTS", 10),
		RetryDelay:        envDuration("RETRY_DELAY", 5*time.Second),
		RetryExponential:  envBool("RETRY_EXPONENTIAL", false),
		VisibilityPoll:    envDuration("VISIBILITY_POLL", 1*time.Second),
		VisibilityTimeout: envDuration("VISIBILITY_TIMEOUT", 20*time.Second),

		APIKey: os.Getenv("WIKISYNC_API_KEY"),

		RunTTL:       envDuration("RUN_TTL", 1*time.Hour),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 10),

		LogLevel: envOr("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}

	if cfg.WikiTimeout <= 0 {
		cfg.WikiTimeout = 30 * time.Second
	}
	if cfg.RateLimit < 0 {
		cfg.RateLimit = 0
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 10
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.VisibilityPoll <= 0 {
		cfg.VisibilityPoll = 1 * time.Second
	}
	if cfg.VisibilityTimeout < 0 {
		cfg.VisibilityTimeout = 20 * time.Second
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 1 * time.Hour
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 10
	}

	return cfg
}

// RootTitle is the title every ancestor chain ends at: the configured main
// parent page, or the space key when none is configured.
func (c Config) RootTitle() string {
	if c.MainParentTitle != "" {
		return c.MainParentTitle
	}
	return c.SpaceKey
}

// Validate checks the settings needed to talk to the wiki. The HTTP API key
// is checked separately by the serve command.
func (c Config) Validate() error {
	if c.WikiURL == "" {
		return fmt.Errorf("WIKI_URL is required")
	}
	if c.SpaceKey == "" {
		return fmt.Errorf("WIKI_SPACE is required")
	}
	if c.WikiToken == "" && (c.WikiUsername == "" || c.WikiPassword == "") {
		return fmt.Errorf("WIKI_TOKEN or WIKI_USERNAME and WIKI_PASSWORD are required")
	}
	if c.SiteFile == "" {
		return fmt.Errorf("SITE_FILE is required")
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
