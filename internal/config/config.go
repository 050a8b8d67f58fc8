// Package config defines service configuration and its loading layers.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/bolao/internal/adapters/repository"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the persistence backend: memory, postgres or redis.
	StoreDriver string `koanf:"store_driver"`

	// DatabaseURL is the Postgres connection string for the postgres driver.
	DatabaseURL string `koanf:"database_url"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// JWTSecret signs and verifies bearer tokens. It has no default and
	// must be provided.
	JWTSecret string `koanf:"jwt_secret"`

	// LockMinutes closes a match to predictions this long before kickoff.
	LockMinutes int `koanf:"lock_minutes"`

	// EnforceDeadline rejects predictions for matches that have kicked off.
	EnforceDeadline bool `koanf:"enforce_deadline"`

	// MaxGoals is the largest accepted predicted score.
	MaxGoals int `koanf:"max_goals"`

	// MaxLeaderboardLimit caps GET /api/ranking?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		StoreDriver:         repository.DriverMemory,
		RedisAddr:           "localhost:6379",
		RedisPrefix:         "bolao",
		LockMinutes:         0,
		EnforceDeadline:     true,
		MaxGoals:            99,
		MaxLeaderboardLimit: 100,
	}
}

// LockWindow returns LockMinutes as a duration.
func (c *Config) LockWindow() time.Duration {
	return time.Duration(c.LockMinutes) * time.Minute
}

// Store returns the repository settings.
func (c *Config) Store() repository.Config {
	return repository.Config{
		Driver:        c.StoreDriver,
		DatabaseURL:   c.DatabaseURL,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisPrefix:   c.RedisPrefix,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.JWTSecret) == "":
		return fmt.Errorf("%w: jwt_secret must be set", ErrInvalidConfig)
	case c.LockMinutes < 0:
		return fmt.Errorf("%w: lock_minutes must not be negative", ErrInvalidConfig)
	case c.MaxGoals <= 0:
		return fmt.Errorf("%w: max_goals must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.StoreDriver) {
	case repository.DriverMemory:
	case repository.DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres driver", ErrInvalidConfig)
		}
	case repository.DriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
