package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Persistence
	DatabaseURL string

	// Optional Redis cache for the query service
	RedisURL      string
	QueryCacheTTL time.Duration

	// Activity window: consumers only ingest between WindowStart and
	// WindowEnd local time in TimeZone
	TimeZone    string
	WindowStart string // "HH:MM"
	WindowEnd   string // "HH:MM"

	// Backoff applied by consumers after any failure
	Backoff time.Duration

	// API credentials
	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string
	TwitterBearerToken string

	// Subscriptions
	Subreddits []string
	Cashtags   []string // empty means derive from the ticker directory

	// Ticker directory file (label -> ticker, company)
	TickerFile string

	// Sentiment scoring per source
	ScoreReddit  bool
	ScoreTwitter bool

	// Digest / reporting
	DigestSchedule string // "daily" or "weekly"

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Azure Blob cold archive (optional)
	StorageAccount   string
	StorageContainer string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisURL:      getEnv("REDIS_URL", ""),
		QueryCacheTTL: getDurationEnv("QUERY_CACHE_TTL", time.Minute),

		TimeZone:    getEnv("TIMEZONE", "America/Chicago"),
		WindowStart: getEnv("WINDOW_START", "08:00"),
		WindowEnd:   getEnv("WINDOW_END", "22:00"),

		Backoff: getDurationEnv("BACKOFF", 10*time.Second),

		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		RedditUserAgent:    getEnv("REDDIT_USER_AGENT", "stock-mentions-bot/1.0"),
		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),

		Subreddits: getSliceEnv("SUBREDDITS", []string{
			"wallstreetbets",
			"investing",
			"stocks",
			"pennystocks",
			"weedstocks",
			"StockMarket",
			"Trading",
			"Daytrading",
			"algotrading",
		}),
		Cashtags: getSliceEnv("CASHTAGS", nil),

		TickerFile: getEnv("TICKER_FILE", "tickers.json"),

		// The two ingestion paths historically disagreed here: the Twitter
		// path scored every tweet while the Reddit path stored text only.
		// Both are configurable; defaults preserve the observed behavior.
		ScoreReddit:  getBoolEnv("SCORE_REDDIT", false),
		ScoreTwitter: getBoolEnv("SCORE_TWITTER", true),

		DigestSchedule: getEnv("DIGEST_SCHEDULE", "daily"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "mentions-archive"),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.DigestSchedule != "daily" && c.DigestSchedule != "weekly" {
		return fmt.Errorf("DIGEST_SCHEDULE must be 'daily' or 'weekly'")
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.TimeZone, err)
	}

	for _, v := range []string{c.WindowStart, c.WindowEnd} {
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("invalid window time %q: %w", v, err)
		}
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
