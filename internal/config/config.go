// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the portal configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"DAIRY_DB_PATH" envDefault:"./data/dairy.db"`
	SessionSecret string `env:"DAIRY_SESSION_SECRET,required"`
	ServerHost    string `env:"DAIRY_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"DAIRY_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"DAIRY_ENV" envDefault:"development"`
	LogLevel      string `env:"DAIRY_LOG_LEVEL" envDefault:"info"`

	// External REST backend that owns credentials and business data
	BackendURL     string `env:"DAIRY_BACKEND_URL" envDefault:"http://localhost:8000"`
	BackendTimeout int    `env:"DAIRY_BACKEND_TIMEOUT" envDefault:"10"` // seconds

	// Session storage
	RedisURL      string `env:"DAIRY_REDIS_URL"`                            // Optional, sessions go to SQLite when empty
	SessionPrefix string `env:"DAIRY_SESSION_PREFIX" envDefault:"dairy:s:"` // Redis key prefix

	// Rendered slide descriptions, in Redis when DAIRY_REDIS_URL is set
	CachePrefix     string `env:"DAIRY_CACHE_PREFIX" envDefault:"dairy:c:"`
	CacheTTLMinutes int    `env:"DAIRY_CACHE_TTL_MINUTES" envDefault:"60"`

	// Promotional sliders
	CarouselIntervalMs int    `env:"DAIRY_CAROUSEL_INTERVAL_MS" envDefault:"5000"`
	SliderSyncSpec     string `env:"DAIRY_SLIDER_SYNC_SPEC" envDefault:"@every 1m"`
	CarouselIdleMin    int    `env:"DAIRY_CAROUSEL_IDLE_MINUTES" envDefault:"30"`
	CarouselMaxMounts  int    `env:"DAIRY_CAROUSEL_MAX_MOUNTS" envDefault:"10000"`

	EventRetentionDays int `env:"DAIRY_EVENT_RETENTION_DAYS" envDefault:"30"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisSessions returns true if sessions should be stored in Redis.
func (c Config) UseRedisSessions() bool {
	return c.RedisURL != ""
}

// CarouselInterval returns the autoplay interval for promotional sliders.
// Non-positive values fall back to 5 seconds.
func (c Config) CarouselInterval() time.Duration {
	if c.CarouselIntervalMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.CarouselIntervalMs) * time.Millisecond
}

// CarouselIdle returns how long a visitor's carousel stays mounted without
// requests before the sweep job unmounts it.
func (c Config) CarouselIdle() time.Duration {
	if c.CarouselIdleMin <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.CarouselIdleMin) * time.Minute
}

// CacheTTL returns how long rendered slide descriptions are cached.
func (c Config) CacheTTL() time.Duration {
	if c.CacheTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// BackendTimeoutDuration returns the HTTP timeout used for backend calls.
func (c Config) BackendTimeoutDuration() time.Duration {
	if c.BackendTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.BackendTimeout) * time.Second
}

// EventRetention returns how long event log entries are kept.
func (c Config) EventRetention() time.Duration {
	if c.EventRetentionDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("DAIRY_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("DAIRY_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !strings.HasPrefix(cfg.BackendURL, "http://") && !strings.HasPrefix(cfg.BackendURL, "https://") {
		return nil, fmt.Errorf("DAIRY_BACKEND_URL must be an http(s) URL, got %q", cfg.BackendURL)
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("DAIRY_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
