package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/cassiomorais/offlinepay/internal/cache"
	"github.com/cassiomorais/offlinepay/internal/domain/errors"
	"github.com/cassiomorais/offlinepay/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, opts ...cache.Option) (*cache.Cache, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return cache.New(store, zerolog.Nop(), opts...), store
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	rates := map[string]any{"NGN/USD": 0.00065, "GHS/USD": 0.064}
	require.NoError(t, c.Set(ctx, "exchange_rates", rates, cache.DefaultTTL))

	got, ok := c.Get(ctx, "exchange_rates")
	require.True(t, ok)
	assert.Equal(t, rates, got)
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	got, ok := c.Get(ctx, "providers")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestCache_EmptyKeyRejected(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	err := c.Set(ctx, "", "x", cache.DefaultTTL)
	assert.ErrorIs(t, err, errors.ErrCacheKeyEmpty)
}

func TestCache_ImmediateTTLAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	require.NoError(t, c.Set(ctx, "rates", "stale-on-arrival", cache.TTLImmediate))

	got, ok := c.Get(ctx, "rates")
	assert.False(t, ok)
	assert.Nil(t, got)

	// The expired read evicts the entry as a side effect.
	assert.Equal(t, 0, c.Len(ctx))
}

func TestCache_NegativeTTLTreatedAsImmediate(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	require.NoError(t, c.Set(ctx, "rates", 1, -5*time.Minute))
	_, ok := c.Get(ctx, "rates")
	assert.False(t, ok)
}

func TestCache_ExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	start := time.Now()
	current := start
	c, _ := newCache(t, cache.WithClock(func() time.Time { return current }))

	require.NoError(t, c.Set(ctx, "rates", "fresh", 10*time.Minute))

	// Just before expiry: hit.
	current = start.Add(10*time.Minute - time.Nanosecond)
	got, ok := c.Get(ctx, "rates")
	require.True(t, ok)
	assert.Equal(t, "fresh", got)

	// Exactly at expiry: miss.
	current = start.Add(10 * time.Minute)
	_, ok = c.Get(ctx, "rates")
	assert.False(t, ok)
}

func TestCache_OverwriteReplacesEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	require.NoError(t, c.Set(ctx, "providers", []string{"mtn"}, cache.DefaultTTL))
	require.NoError(t, c.Set(ctx, "providers", []string{"mtn", "airtel"}, cache.DefaultTTL))

	got, ok := c.Get(ctx, "providers")
	require.True(t, ok)
	assert.Equal(t, []string{"mtn", "airtel"}, got)
}

func TestCache_Remove(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	require.NoError(t, c.Set(ctx, "rates", 1, cache.DefaultTTL))
	require.NoError(t, c.Remove(ctx, "rates"))

	_, ok := c.Get(ctx, "rates")
	assert.False(t, ok)

	// Removing an absent key is a no-op.
	assert.NoError(t, c.Remove(ctx, "rates"))
}

func TestCache_Clear(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	require.NoError(t, c.Set(ctx, "a", 1, cache.DefaultTTL))
	require.NoError(t, c.Set(ctx, "b", 2, cache.DefaultTTL))
	require.NoError(t, c.Clear(ctx))

	assert.Equal(t, 0, c.Len(ctx))
}

func TestCache_SweepExpired(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	require.NoError(t, c.Set(ctx, "stale1", 1, cache.TTLImmediate))
	require.NoError(t, c.Set(ctx, "stale2", 2, cache.TTLImmediate))
	require.NoError(t, c.Set(ctx, "fresh", 3, time.Hour))

	removed, err := c.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len(ctx))

	got, ok := c.Get(ctx, "fresh")
	require.True(t, ok)
	assert.Equal(t, 3, got)
}

func TestCache_SweepExpired_NothingToDo(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	require.NoError(t, c.Set(ctx, "fresh", 1, time.Hour))
	removed, err := c.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestCache_SurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	c1 := cache.New(store, zerolog.Nop())
	require.NoError(t, c1.Set(ctx, "rates", map[string]any{"NGN/USD": 0.00065}, cache.DefaultTTL))

	// A new instance over the same store simulates a process restart; the
	// value round-trips through JSON.
	c2 := cache.New(store, zerolog.Nop())
	got, ok := c2.Get(ctx, "rates")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"NGN/USD": 0.00065}, got)
}

func TestCache_CorruptCollectionStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.WriteCollection(ctx, storage.CollectionCache, []byte("{not json")))

	c := cache.New(store, zerolog.Nop())
	_, ok := c.Get(ctx, "anything")
	assert.False(t, ok)

	// The cache stays usable after discarding the corrupt state.
	require.NoError(t, c.Set(ctx, "rates", 1, cache.DefaultTTL))
	_, ok = c.Get(ctx, "rates")
	assert.True(t, ok)
}
