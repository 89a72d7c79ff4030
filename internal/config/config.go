// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the server configuration from OCHAT_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// StoreConfig selects the record store and the cache in front of it. It is
// all the operator CLI needs.
type StoreConfig struct {
	Store  string `env:"OCHAT_STORE" envDefault:"sqlite"`
	DBPath string `env:"OCHAT_DB_PATH" envDefault:"./data/ochat.db"`

	// Cache configuration
	RedisURL     string        `env:"OCHAT_REDIS_URL"` // Optional Redis URL for a shared cache
	CachePrefix  string        `env:"OCHAT_CACHE_PREFIX" envDefault:"ochat:"`
	CacheMaxSize int           `env:"OCHAT_CACHE_MAX_SIZE" envDefault:"10000"`
	MessagesTTL  time.Duration `env:"OCHAT_MESSAGES_TTL" envDefault:"60s"`
	RosterTTL    time.Duration `env:"OCHAT_ROSTER_TTL" envDefault:"5m"`
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	StoreConfig

	SessionSecret string `env:"OCHAT_SESSION_SECRET,required"`
	ServerHost    string `env:"OCHAT_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"OCHAT_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"OCHAT_ENV" envDefault:"development"`
	LogLevel      string `env:"OCHAT_LOG_LEVEL" envDefault:"info"`

	// Refresh loop and retention
	RefreshInterval  time.Duration `env:"OCHAT_REFRESH_INTERVAL" envDefault:"30s"`
	MessageRetention time.Duration `env:"OCHAT_MESSAGE_RETENTION" envDefault:"0"`
	EventRetention   time.Duration `env:"OCHAT_EVENT_RETENTION" envDefault:"720h"`

	// Bootstrap admin, created at startup when missing
	AdminUsername string `env:"OCHAT_ADMIN_USERNAME"`
	AdminPassword string `env:"OCHAT_ADMIN_PASSWORD"`

	// JSON API
	APITokenTTL time.Duration `env:"OCHAT_API_TOKEN_TTL" envDefault:"15m"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c StoreConfig) UseRedisCache() bool {
	return c.RedisURL != ""
}

// UseMemoryStore returns true if the record store lives in process memory.
func (c StoreConfig) UseMemoryStore() bool {
	return c.Store == StoreMemory
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values mean info.
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

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("OCHAT_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// Validate checks values that env parsing cannot.
func (c *Config) Validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("OCHAT_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return fmt.Errorf("OCHAT_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if err := c.StoreConfig.Validate(); err != nil {
		return err
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"OCHAT_REFRESH_INTERVAL", c.RefreshInterval},
		{"OCHAT_API_TOKEN_TTL", c.APITokenTTL},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", p.name, p.value)
		}
	}

	if c.MessageRetention < 0 || c.EventRetention < 0 {
		return fmt.Errorf("retention ages must not be negative")
	}

	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return fmt.Errorf("OCHAT_ADMIN_USERNAME and OCHAT_ADMIN_PASSWORD must be set together")
	}

	return nil
}

// LoadStore parses only the store and cache variables.
func LoadStore() (*StoreConfig, error) {
	cfg := &StoreConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the store selection and cache TTLs.
func (c *StoreConfig) Validate() error {
	if c.Store != StoreSQLite && c.Store != StoreMemory {
		return fmt.Errorf("OCHAT_STORE must be %q or %q, got %q", StoreSQLite, StoreMemory, c.Store)
	}
	if c.MessagesTTL <= 0 {
		return fmt.Errorf("OCHAT_MESSAGES_TTL must be positive, got %s", c.MessagesTTL)
	}
	if c.RosterTTL <= 0 {
		return fmt.Errorf("OCHAT_ROSTER_TTL must be positive, got %s", c.RosterTTL)
	}
	return nil
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
