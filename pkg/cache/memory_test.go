package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "last:EUR", quote{Symbol: "EUR", Price: 1.19}, time.Minute))

	var got quote
	require.NoError(t, c.Get(ctx, "last:EUR", &got))
	require.Equal(t, quote{Symbol: "EUR", Price: 1.19}, got)

	require.NoError(t, c.Delete(ctx, "last:EUR"))
	require.ErrorIs(t, c.Get(ctx, "last:EUR", &got), ErrCacheMiss)
}

func TestMemoryCacheStrings(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "raw", 0))
	var s string
	require.NoError(t, c.Get(ctx, "k", &s))
	require.Equal(t, "raw", s)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var v int
	require.ErrorIs(t, c.Get(ctx, "k", &v), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryCache(WithMemoryMaxSize(2))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "b", 2, 0))
	time.Sleep(time.Millisecond)

	var v int
	require.NoError(t, c.Get(ctx, "a", &v))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "c", 3, 0))

	require.ErrorIs(t, c.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, "a", &v))
	require.NoError(t, c.Get(ctx, "c", &v))
	require.Equal(t, 3, v)
}

func TestMGetTyped(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", quote{Symbol: "A", Price: 1}, time.Minute))
	require.NoError(t, c.Set(ctx, "b", quote{Symbol: "B", Price: 2}, time.Minute))
	require.NoError(t, c.Set(ctx, "bad", "not json", time.Minute))

	got, err := MGetTyped[quote](ctx, c, "a", "b", "bad", "missing")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 2.0, got["b"].Price)

	empty, err := MGetTyped[quote](ctx, c)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestMemoryCacheCloseIdempotent(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestWithMemoryConfigKeepsDefaults(t *testing.T) {
	cfg := &MemoryConfig{MaxSize: 1000, CleanupInterval: time.Minute}
	WithMemoryConfig(MemoryConfig{MaxSize: 5})(cfg)
	require.Equal(t, 5, cfg.MaxSize)
	require.Equal(t, time.Minute, cfg.CleanupInterval)
}
