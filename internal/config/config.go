// Package config loads runtime settings from the environment.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	DatabaseURL string        `env:"DATABASE_URL, default=postgres://localhost:5432/allo?sslmode=disable"`
	JWTSecret   string        `env:"JWT_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL, default=24h"`

	// CookieSecure marks the auth cookie Secure; leave off for local HTTP.
	CookieSecure bool `env:"COOKIE_SECURE, default=false"`

	// Fallback identity for requests without a valid token. Off unless both
	// fields are set; intended for development environments only.
	FallbackIdentityEnabled bool   `env:"FALLBACK_IDENTITY_ENABLED, default=false"`
	FallbackIdentityEmail   string `env:"FALLBACK_IDENTITY_EMAIL"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,   default=50"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST, default=100"`
	MaxBodyBytes   int64   `env:"MAX_BODY_BYTES,   default=1048576"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment reports whether the service runs in a development environment.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }
