// Package config provides configuration management for genrelay.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the genrelay server.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (e.g., ":8080").
	ServerAddr string

	// DataDir is the directory for persistent data (SQLite DB, etc.).
	DataDir string

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string

	// GenerativeAIKey is the API key for the Generative Language API.
	// Required; the process refuses to serve without it.
	GenerativeAIKey string

	// Model is the Generative Language model name used for both operations.
	Model string

	// FetchTimeout bounds the download of a remote image. Default: 30s.
	FetchTimeout time.Duration

	// MaxImageBytes caps the size of a downloaded image. Default: 20 MiB.
	MaxImageBytes int64

	// RequestTimeout bounds one inbound HTTP request end to end. Default: 3m.
	RequestTimeout time.Duration

	// HistoryLimit is the maximum number of records returned by the
	// generation history listing. Default: 100.
	HistoryLimit int

	// Telegram integration (optional -- long polling, no public URL needed).
	// TelegramBotToken is the token from @BotFather.
	TelegramBotToken string
}

// Load creates a Config from the config file and environment variables.
// Values are resolved in order: environment variable > config file > default.
func Load() (*Config, error) {
	// Load ~/.genrelay/config.env into the environment. Existing env vars
	// take precedence (godotenv.Load never overwrites set vars).
	_ = godotenv.Load(filepath.Join(defaultDataDir(), "config.env"))

	dataDir := envOr("GENRELAY_DATA_DIR", defaultDataDir())
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	cfg := &Config{
		ServerAddr:       envOr("GENRELAY_ADDR", ":8080"),
		DataDir:          dataDir,
		DatabasePath:     filepath.Join(dataDir, "genrelay.db"),
		GenerativeAIKey:  os.Getenv("GENERATIVE_AI_KEY"),
		Model:            envOr("GENRELAY_MODEL", "gemini-1.5-flash-latest"),
		FetchTimeout:     envOrDuration("GENRELAY_FETCH_TIMEOUT", 30*time.Second),
		MaxImageBytes:    envOrInt64("GENRELAY_MAX_IMAGE_BYTES", 20<<20),
		RequestTimeout:   envOrDuration("GENRELAY_REQUEST_TIMEOUT", 3*time.Minute),
		HistoryLimit:     envOrInt("GENRELAY_HISTORY_LIMIT", 100),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.GenerativeAIKey == "" {
		return fmt.Errorf("GENERATIVE_AI_KEY is required")
	}
	return nil
}

// TelegramEnabled returns true if the Telegram bot is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".genrelay"
	}
	return filepath.Join(home, ".genrelay")
}
