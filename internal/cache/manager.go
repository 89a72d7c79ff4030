// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Keys of the memoized reads.
const (
	KeyMessages = "messages"
	KeyRoster   = "roster"
)

// Default TTL classes.
const (
	DefaultMessagesTTL = 60 * time.Second
	DefaultRosterTTL   = 5 * time.Minute
)

// Manager is the time-windowed cache handed to services. It owns the
// backend, the two TTL classes, and the collapsing of concurrent misses.
type Manager struct {
	backend Backend
	info    Info

	MessagesTTL time.Duration
	RosterTTL   time.Duration

	group singleflight.Group
	// generation is bumped by InvalidateAll so fetches that started before
	// an invalidation do not store their result after it.
	generation atomic.Uint64
}

// NewManager creates a manager over backend. Zero TTLs take the defaults.
func NewManager(backend Backend, info Info, messagesTTL, rosterTTL time.Duration) *Manager {
	if messagesTTL <= 0 {
		messagesTTL = DefaultMessagesTTL
	}
	if rosterTTL <= 0 {
		rosterTTL = DefaultRosterTTL
	}
	if info.Backend == "" {
		info.Backend = BackendMemory
	}
	return &Manager{
		backend:     backend,
		info:        info,
		MessagesTTL: messagesTTL,
		RosterTTL:   rosterTTL,
	}
}

// NewMemoryManager creates a manager over a fresh memory backend.
func NewMemoryManager(messagesTTL, rosterTTL time.Duration) *Manager {
	backend := NewMemoryCache(MemoryCacheOptions{CleanupInterval: time.Minute, DefaultTTL: DefaultMessagesTTL})
	return NewManager(backend, Info{Backend: BackendMemory}, messagesTTL, rosterTTL)
}

// GetOrFetch returns the value memoized under key if it is younger than ttl.
// Otherwise fetch runs (once for all concurrent callers of the same key and
// generation) and its result is stored. A fetch error is returned as is and
// nothing is stored, so the next call fetches again. Entries that no longer
// decode into T count as misses.
//
// Callers that arrive after an InvalidateAll never share a fetch that began
// before it. The shared fetch is detached from the caller's cancellation;
// each caller stops waiting when its own ctx is done.
func GetOrFetch[T any](ctx context.Context, m *Manager, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	gen := m.generation.Load()
	if data, err := m.backend.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		slog.Debug("discarding undecodable cache entry", "key", key)
	}

	flight := key + "#" + strconv.FormatUint(gen, 10)
	ch := m.group.DoChan(flight, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		if m.generation.Load() == gen {
			m.store(fctx, key, v, ttl)
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// store encodes v under key. A failed store only costs a later refetch.
func (m *Manager) store(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err == nil {
		err = m.backend.Set(ctx, key, data, ttl)
	}
	if err != nil {
		slog.Warn("cache store failed", "key", key, "error", err)
	}
}

// InvalidateAll clears every entry. It returns once the clear is done.
func (m *Manager) InvalidateAll(ctx context.Context) error {
	m.generation.Add(1)
	if err := m.backend.Clear(ctx); err != nil {
		slog.Error("cache invalidation failed", "backend", m.info.Backend, "error", err)
		return err
	}
	return nil
}

// Info describes the active backend.
func (m *Manager) Info() Info {
	return m.info
}

// Stats returns backend statistics, or zero Stats when the backend has none.
func (m *Manager) Stats() Stats {
	if sp, ok := m.backend.(StatsProvider); ok {
		return sp.Stats()
	}
	return Stats{}
}

// ResetStats resets backend statistics.
func (m *Manager) ResetStats() {
	if sp, ok := m.backend.(StatsProvider); ok {
		sp.ResetStats()
	}
}

// Ping checks a remote backend. Memory backends always succeed.
func (m *Manager) Ping(ctx context.Context) error {
	if p, ok := m.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the backend.
func (m *Manager) Close() error {
	return m.backend.Close()
}
