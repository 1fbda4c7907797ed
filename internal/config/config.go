// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"2"`

	// Cache (Redis). Rate limiting is off when empty.
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting, per client IP
	RateLimitEnabled         bool    `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitUploadPerMinute int     `env:"RATE_LIMIT_UPLOAD_PER_MINUTE" envDefault:"10"`
	RateLimitUploadBurst     int     `env:"RATE_LIMIT_UPLOAD_BURST" envDefault:"5"`
	RateLimitQueryRPS        float64 `env:"RATE_LIMIT_QUERY_RPS" envDefault:"20"`
	RateLimitQueryBurst      int     `env:"RATE_LIMIT_QUERY_BURST" envDefault:"40"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Body size limits in bytes. Uploads get their own, larger limit.
	MaxUploadSize      int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Raw upload archive (S3 compatible)
	Archive ArchiveConfig `envPrefix:"ARCHIVE_"`
}

// ArchiveConfig holds object storage settings for archiving uploaded files.
type ArchiveConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"salary-uploads"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// Enabled reports whether archiving is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Endpoint != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// RateLimitActive reports whether requests will actually be rate limited.
func (c *Config) RateLimitActive() bool {
	return c.RateLimitEnabled && c.RedisURL != ""
}

// UploadRatePerSecond converts the per-minute upload allowance to a token refill rate.
func (c *Config) UploadRatePerSecond() float64 {
	return float64(c.RateLimitUploadPerMinute) / 60
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.AppPort < 1 || c.AppPort > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be between 1 and 65535, got %d", c.AppPort))
	}
	if c.DBMaxConns < 1 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns))
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS, got %d", c.DBMinConns))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not one of json, text", c.LogFormat))
	}

	if c.RateLimitUploadPerMinute < 0 || c.RateLimitUploadBurst < 0 {
		errs = append(errs, errors.New("upload rate limits must not be negative"))
	}
	if c.RateLimitQueryRPS < 0 || c.RateLimitQueryBurst < 0 {
		errs = append(errs, errors.New("query rate limits must not be negative"))
	}

	if c.MaxUploadSize < 1 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_SIZE must be positive, got %d", c.MaxUploadSize))
	}
	if c.MaxRequestBodySize < 1 {
		errs = append(errs, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be positive, got %d", c.MaxRequestBodySize))
	}

	if c.Archive.Enabled() {
		if c.Archive.Bucket == "" {
			errs = append(errs, errors.New("ARCHIVE_BUCKET is required when ARCHIVE_ENDPOINT is set"))
		}
		if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
			errs = append(errs, errors.New("ARCHIVE_ACCESS_KEY and ARCHIVE_SECRET_KEY are required when ARCHIVE_ENDPOINT is set"))
		}
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing or values are invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
