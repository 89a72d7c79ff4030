// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Backend names reported by Info.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// CacheConfig holds configuration for cache creation.
type CacheConfig struct {
	// RedisURL selects the Redis backend when non-empty.
	// Example: redis://localhost:6379/0
	RedisURL string

	// Prefix is the Redis key prefix.
	Prefix string

	DefaultTTL time.Duration
	// MaxSize caps the memory backend's entries; 0 means unlimited.
	MaxSize         int
	CleanupInterval time.Duration
}

// DefaultCacheConfig returns the in-memory configuration used when nothing
// else is configured.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Prefix:          "ochat:",
		DefaultTTL:      time.Minute,
		MaxSize:         10000,
		CleanupInterval: time.Minute,
	}
}

// Info describes the backend NewCache ended up with.
type Info struct {
	Backend    string
	IsFallback bool   // Redis was requested but unreachable
	Error      string // why the fallback happened
}

// IsRedis reports whether the Redis backend is in use.
func (i Info) IsRedis() bool {
	return i.Backend == BackendRedis
}

// NewCache creates the configured backend. A Redis backend that cannot be
// reached is replaced by a memory cache; the returned Info records that.
func NewCache(cfg CacheConfig) (Backend, Info) {
	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(RedisCacheOptions{
			URL:            cfg.RedisURL,
			Prefix:         cfg.Prefix,
			DefaultTTL:     cfg.DefaultTTL,
			PoolSize:       10,
			ConnectTimeout: 5 * time.Second,
			ReadTimeout:    3 * time.Second,
			WriteTimeout:   3 * time.Second,
		})
		if err == nil {
			slog.Info("cache backend ready", "backend", BackendRedis, "url", SanitizeRedisURL(cfg.RedisURL))
			return rc, Info{Backend: BackendRedis}
		}

		slog.Warn("redis unavailable, falling back to memory cache",
			"url", SanitizeRedisURL(cfg.RedisURL), "error", err)
		return newMemoryFromConfig(cfg), Info{Backend: BackendMemory, IsFallback: true, Error: err.Error()}
	}

	return newMemoryFromConfig(cfg), Info{Backend: BackendMemory}
}

func newMemoryFromConfig(cfg CacheConfig) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxEntries:      cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	})
}
