// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrAPIKeyRequired is returned when no Captions API key is configured.
	ErrAPIKeyRequired = errors.New("config: CAPTIONS_API_KEY is required")
	// ErrInvalidDuration is returned when a polling or timeout setting is not positive.
	ErrInvalidDuration = errors.New("config: durations must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Captions API settings
	CaptionsAPIKey  string `env:"CAPTIONS_API_KEY" json:"-"` // Masked in JSON
	CaptionsBaseURL string `env:"CAPTIONS_BASE_URL, default=https://api.captions.ai" json:"captions_base_url"`

	// Generation settings
	PollInterval      time.Duration `env:"POLL_INTERVAL, default=10s" json:"poll_interval"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT, default=300s" json:"generation_timeout"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT, default=30s" json:"request_timeout"`
	DownloadTimeout   time.Duration `env:"DOWNLOAD_TIMEOUT, default=10m" json:"download_timeout"`

	// Output settings
	OutputDir string `env:"OUTPUT_DIR, default=./generated_videos" json:"output_dir"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// The API key is not required here since callers may supply it explicitly;
// call Validate once every source has been applied.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CaptionsAPIKey) == "" {
		return ErrAPIKeyRequired
	}
	if c.PollInterval <= 0 || c.GenerationTimeout <= 0 || c.RequestTimeout <= 0 || c.DownloadTimeout <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// NewLogger creates a structured logger on stderr based on the configuration.
// Stdout is left to command output.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stderr)
}

// NewLoggerTo creates a structured logger writing to w.
// When LogFormat is "json", it outputs JSON logs.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{CaptionsBaseURL: %s, APIKeySet: %t, PollInterval: %s, GenerationTimeout: %s, RequestTimeout: %s, DownloadTimeout: %s, OutputDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.CaptionsBaseURL,
		c.CaptionsAPIKey != "",
		c.PollInterval,
		c.GenerationTimeout,
		c.RequestTimeout,
		c.DownloadTimeout,
		c.OutputDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
