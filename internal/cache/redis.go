// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// generationKey holds the counter that namespaces every entry.
const generationKey = "generation"

// RedisCache is a Redis backend shared by every process using the same
// prefix. Entries live under prefix+<generation>+":"+key; Clear bumps the
// generation with one INCR, so invalidation is atomic across processes and
// orphaned entries simply expire.
type RedisCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
	closed     atomic.Bool

	mu    sync.Mutex
	stats counters
}

// RedisCacheOptions configures the Redis cache.
type RedisCacheOptions struct {
	// URL is the Redis connection URL, e.g. redis://localhost:6379/0.
	URL string
	// Prefix is prepended to all keys, e.g. "ochat:".
	Prefix string

	DefaultTTL     time.Duration
	PoolSize       int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(opts RedisCacheOptions) (*RedisCache, error) {
	if opts.URL == "" {
		return nil, errors.New("redis URL is required")
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}

	connectTimeout := 5 * time.Second
	if opts.ConnectTimeout > 0 {
		connectTimeout = opts.ConnectTimeout
	}
	redisOpts.DialTimeout = connectTimeout
	if opts.PoolSize > 0 {
		redisOpts.PoolSize = opts.PoolSize
	}
	if opts.ReadTimeout > 0 {
		redisOpts.ReadTimeout = opts.ReadTimeout
	}
	if opts.WriteTimeout > 0 {
		redisOpts.WriteTimeout = opts.WriteTimeout
	}

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{
		client:     client,
		prefix:     opts.Prefix,
		defaultTTL: opts.DefaultTTL,
	}, nil
}

// generation returns the current namespace counter. A missing counter is 0.
func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, c.prefix+generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *RedisCache) entryKey(gen int64, key string) string {
	return c.prefix + strconv.FormatInt(gen, 10) + ":" + key
}

func (c *RedisCache) resolve(ctx context.Context, key string) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return c.entryKey(gen, key), nil
}

// Get returns the value stored under key in the current generation.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := c.resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	val, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		c.count(func(s *counters) { s.misses++ })
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	c.count(func(s *counters) { s.hits++ })
	return val, nil
}

// Set stores value in the current generation. Redis expires it after ttl.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	k, err := c.resolve(ctx, key)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if err := c.client.Set(ctx, k, value, ttl).Err(); err != nil {
		return err
	}
	c.count(func(s *counters) { s.sets++ })
	return nil
}

// Delete removes key from the current generation.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	k, err := c.resolve(ctx, key)
	if err != nil {
		return err
	}
	return c.client.Del(ctx, k).Err()
}

// Clear starts a new generation for every process sharing the prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.client.Incr(ctx, c.prefix+generationKey).Err(); err != nil {
		return err
	}
	c.count(func(s *counters) { s.clears++ })
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		return c.client.Close()
	}
	return nil
}

// Stats returns this process's counters and the number of keys in the
// current generation.
func (c *RedisCache) Stats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	items := 0
	if gen, err := c.generation(ctx); err == nil {
		iter := c.client.Scan(ctx, 0, c.entryKey(gen, "*"), 1000).Iterator()
		for iter.Next(ctx) {
			items++
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.stats(items, 0)
}

// ResetStats zeroes the counters.
func (c *RedisCache) ResetStats() {
	c.count(func(s *counters) { s.reset(time.Now()) })
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) count(fn func(*counters)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

// SanitizeRedisURL masks the password of a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}

var (
	_ Backend       = (*RedisCache)(nil)
	_ StatsProvider = (*RedisCache)(nil)
	_ Pinger        = (*RedisCache)(nil)
)
