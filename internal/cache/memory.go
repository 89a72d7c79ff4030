// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process backend. Invalidation is visible only to the
// process that owns it.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	size       int64
	defaultTTL time.Duration
	maxEntries int
	now        func() time.Time
	stats      counters

	closed chan struct{}
	once   sync.Once
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) live(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// MemoryCacheOptions configures the memory cache.
type MemoryCacheOptions struct {
	DefaultTTL time.Duration
	// MaxEntries caps the number of entries; 0 means unlimited. When full,
	// expired entries go first, then the one closest to expiry.
	MaxEntries      int
	CleanupInterval time.Duration    // 0 disables background sweeping
	Now             func() time.Time // defaults to time.Now
}

// NewMemoryCache creates a memory cache.
func NewMemoryCache(opts MemoryCacheOptions) *MemoryCache {
	c := &MemoryCache{
		entries:    make(map[string]memoryEntry),
		defaultTTL: opts.DefaultTTL,
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
		closed:     make(chan struct{}),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if opts.CleanupInterval > 0 {
		go c.sweepLoop(opts.CleanupInterval)
	}
	return c
}

// Get returns a copy of the value stored under key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed() {
		return nil, ErrClosed
	}

	e, ok := c.entries[key]
	if !ok || !e.live(c.now()) {
		if ok {
			c.remove(key)
		}
		c.stats.misses++
		return nil, ErrMiss
	}

	c.stats.hits++
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.makeRoom(now)
	}

	c.remove(key)
	c.entries[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: now.Add(ttl)}
	c.size += int64(len(value))
	c.stats.sets++
	return nil
}

// Delete removes key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	c.remove(key)
	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	clear(c.entries)
	c.size = 0
	c.stats.clears++
	return nil
}

// Close stops the sweeper. The cache is unusable afterwards.
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// Stats returns the current statistics.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.stats(len(c.entries), c.size)
}

// ResetStats zeroes the counters.
func (c *MemoryCache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.reset(c.now())
}

func (c *MemoryCache) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// remove deletes key and its size accounting. Callers hold mu.
func (c *MemoryCache) remove(key string) {
	if e, ok := c.entries[key]; ok {
		c.size -= int64(len(e.value))
		delete(c.entries, key)
	}
}

// makeRoom frees one slot. Callers hold mu.
func (c *MemoryCache) makeRoom(now time.Time) {
	if c.sweep(now) > 0 {
		return
	}

	var (
		victim string
		soon   time.Time
	)
	for k, e := range c.entries {
		if victim == "" || e.expiresAt.Before(soon) {
			victim, soon = k, e.expiresAt
		}
	}
	if victim != "" {
		c.remove(victim)
		c.stats.evictions++
	}
}

// sweep drops expired entries and returns how many. Callers hold mu.
func (c *MemoryCache) sweep(now time.Time) int {
	n := 0
	for k, e := range c.entries {
		if !e.live(now) {
			c.remove(k)
			n++
		}
	}
	return n
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.sweep(c.now())
			c.mu.Unlock()
		case <-c.closed:
			return
		}
	}
}

var (
	_ Backend       = (*MemoryCache)(nil)
	_ StatsProvider = (*MemoryCache)(nil)
)
