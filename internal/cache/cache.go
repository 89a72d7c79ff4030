// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache is the time-windowed read cache in front of the record
// store. Values are memoized per key for a TTL; a failed fetch never
// populates an entry, and invalidation clears everything at once.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by Backend.Get for absent or expired keys.
	ErrMiss = errors.New("cache miss")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("cache closed")
)

// Backend stores encoded values under string keys. Implementations are
// safe for concurrent use. An entry written with ttl d at time t is served
// while now < t+d.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value for ttl; a zero ttl means the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear drops every entry the backend holds for this cache.
	Clear(ctx context.Context) error
	Close() error
}

// StatsProvider is implemented by backends that count their traffic.
type StatsProvider interface {
	Stats() Stats
	ResetStats()
}

// Pinger is implemented by backends with a remote dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stats holds cache statistics.
type Stats struct {
	Hits      int64      `json:"hits"`
	Misses    int64      `json:"misses"`
	Sets      int64      `json:"sets"`
	Evictions int64      `json:"evictions"`
	Clears    int64      `json:"clears"`
	Items     int        `json:"items"`
	HitRate   float64    `json:"hit_rate"`
	Size      int64      `json:"size_bytes,omitempty"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
}

// counters is the bookkeeping shared by the backends.
type counters struct {
	hits, misses, sets, evictions, clears int64
	resetAt                                *time.Time
}

func (c *counters) reset(now time.Time) {
	*c = counters{resetAt: &now}
}

func (c *counters) stats(items int, size int64) Stats {
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Sets:      c.sets,
		Evictions: c.evictions,
		Clears:    c.clears,
		Items:     items,
		HitRate:   hitRate(c.hits, c.misses),
		Size:      size,
		ResetAt:   c.resetAt,
	}
}

// hitRate returns hits as a percentage of all lookups.
func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
