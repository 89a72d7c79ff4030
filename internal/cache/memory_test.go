package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestMemory(t *testing.T, clock *fakeClock, maxEntries int) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute, MaxEntries: maxEntries, Now: clock.Now})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := newTestMemory(t, newFakeClock(), 0)
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v1"), 0))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, c.Set(ctx, "k", []byte("v22"), 0))
	got, _ = c.Get(ctx, "k")
	assert.Equal(t, []byte("v22"), got)
	assert.Equal(t, int64(3), c.Stats().Size, "overwrite replaces the size")

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Zero(t, c.Stats().Size)
}

func TestMemoryCache_TTLWindow(t *testing.T) {
	clock := newFakeClock()
	c := newTestMemory(t, clock, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Second))

	clock.Advance(10*time.Second - time.Nanosecond)
	_, err := c.Get(ctx, "k")
	assert.NoError(t, err, "served just before the window closes")

	clock.Advance(time.Nanosecond)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss, "not served at age == ttl")
	assert.Zero(t, c.Stats().Items, "expired entry is dropped on read")
}

func TestMemoryCache_DefaultTTL(t *testing.T) {
	clock := newFakeClock()
	c := newTestMemory(t, clock, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	clock.Advance(59 * time.Second)
	_, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	clock.Advance(time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := newTestMemory(t, newFakeClock(), 0)
	ctx := context.Background()

	for _, k := range []string{KeyMessages, KeyRoster} {
		require.NoError(t, c.Set(ctx, k, []byte(k), 0))
	}
	require.NoError(t, c.Clear(ctx))

	for _, k := range []string{KeyMessages, KeyRoster} {
		_, err := c.Get(ctx, k)
		assert.ErrorIs(t, err, ErrMiss, k)
	}
	s := c.Stats()
	assert.Zero(t, s.Items)
	assert.Zero(t, s.Size)
	assert.Equal(t, int64(1), s.Clears)
}

func TestMemoryCache_MaxEntries(t *testing.T) {
	clock := newFakeClock()
	c := newTestMemory(t, clock, 2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("1"), 10*time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))

	// Full and nothing expired: the entry closest to expiry goes.
	require.NoError(t, c.Set(ctx, "new", []byte("3"), time.Minute))
	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, int64(1), c.Stats().Evictions)

	// Full with an expired entry: the sweep frees the slot instead.
	clock.Advance(2 * time.Minute)
	require.NoError(t, c.Set(ctx, "newer", []byte("4"), time.Minute))
	_, err = c.Get(ctx, "long")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), c.Stats().Evictions)
	assert.Equal(t, 2, c.Stats().Items)

	// Overwriting an existing key never evicts.
	require.NoError(t, c.Set(ctx, "long", []byte("5"), time.Hour))
	assert.Equal(t, 2, c.Stats().Items)
}

func TestMemoryCache_Stats(t *testing.T) {
	clock := newFakeClock()
	c := newTestMemory(t, clock, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("value"), 0))
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "missing")

	s := c.Stats()
	assert.Equal(t, int64(3), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.Sets)
	assert.Equal(t, 1, s.Items)
	assert.Equal(t, int64(5), s.Size)
	assert.InDelta(t, 75.0, s.HitRate, 0.001)
	assert.Nil(t, s.ResetAt)

	c.ResetStats()
	s = c.Stats()
	assert.Zero(t, s.Hits)
	assert.Zero(t, s.Misses)
	assert.Equal(t, 1, s.Items, "reset keeps the entries")
	require.NotNil(t, s.ResetAt)
	assert.Equal(t, clock.Now(), *s.ResetAt)
}

func TestMemoryCache_ValueIsCopied(t *testing.T) {
	c := newTestMemory(t, newFakeClock(), 0)
	ctx := context.Background()

	in := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", in, 0))
	in[0] = 'x'

	out, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), out)
	out[0] = 'y'

	again, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := newTestMemory(t, newFakeClock(), 16)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k%d", (i+j)%32)
				_ = c.Set(ctx, key, []byte(key), 0)
				_, _ = c.Get(ctx, key)
				if j%25 == 0 {
					_ = c.Clear(ctx)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Items, 16)
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute, CleanupInterval: time.Millisecond})
	ctx := context.Background()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "Close is idempotent")

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, 0), ErrClosed)
	assert.ErrorIs(t, c.Delete(ctx, "k"), ErrClosed)
	assert.ErrorIs(t, c.Clear(ctx), ErrClosed)
}
