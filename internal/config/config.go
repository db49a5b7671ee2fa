// Package config loads and validates the RelayChat server configuration from
// environment variables, with optional .env file support for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string `env:"PORT,default=8080"`
	DatabaseURL    string `env:"DATABASE_URL"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`

	HistoryLimit   int   `env:"HISTORY_LIMIT,default=10"`
	MaxMessageSize int64 `env:"MAX_MESSAGE_SIZE,default=512"`

	RateLimitBurst          int           `env:"RATE_LIMIT_BURST,default=5"`
	RateLimitRefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL,default=1s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
}

// Load reads configuration from the environment, after overlaying a .env file
// if one is present. Unset numeric values fall back to their defaults.
func Load() (*Config, error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg.sanitize()
	return &cfg, nil
}

// sanitize clamps out-of-range values back to their defaults so a bad
// environment degrades to safe settings instead of a broken server.
func (c *Config) sanitize() {
	if strings.TrimSpace(c.Port) == "" {
		c.Port = "8080"
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 512
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 5
	}
	if c.RateLimitRefillInterval <= 0 {
		c.RateLimitRefillInterval = time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// ListenAddr returns the address the HTTP server should bind to.
func (c *Config) ListenAddr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// Origins returns the configured allowed origins as a slice.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
