// Package cache implements the TTL-bounded local cache used for read-mostly
// data such as exchange rates and biller lists. It is independent of the
// operation queue and safe to use with no connectivity.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cassiomorais/offlinepay/internal/domain/errors"
	"github.com/cassiomorais/offlinepay/internal/observability"
	"github.com/cassiomorais/offlinepay/internal/storage"
	"github.com/rs/zerolog"

	"sync"
)

// DefaultTTL is the validity window for callers that do not choose one.
const DefaultTTL = 60 * time.Minute

// TTLImmediate marks an entry expired as soon as it is written. Useful for
// negative caching in tests and for forced refreshes.
const TTLImmediate = time.Duration(0)

// Entry is a single cached value with its validity window.
type Entry struct {
	Key       string    `json:"key"`
	Data      any       `json:"data"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e *Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Cache owns the offline_cache collection in the persistent store. Entries
// are served from memory and written through on every mutation; a stale
// entry is evicted by the read that discovers it.
type Cache struct {
	store   storage.Store
	logger  zerolog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	loaded  bool
	entries map[string]*Entry

	now func() time.Time
}

type Option func(*Cache)

// WithMetrics attaches Prometheus counters for hits, misses and evictions.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(store storage.Store, logger zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		logger:  observability.ComponentLogger(logger, "cache"),
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Set writes an entry, overwriting any existing entry for key. A ttl of
// TTLImmediate produces an entry that is already expired; negative ttls are
// treated the same way.
func (c *Cache) Set(ctx context.Context, key string, data any, ttl time.Duration) error {
	if key == "" {
		return errors.ErrCacheKeyEmpty
	}
	if ttl < 0 {
		ttl = TTLImmediate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.load(ctx)

	now := c.now()
	c.entries[key] = &Entry{
		Key:       key,
		Data:      data,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	return c.persist(ctx)
}

// Get returns the cached value for key, or (nil, false) on a miss. A hit
// past expiry deletes the entry and counts as a miss; stale data is never
// returned.
func (c *Cache) Get(ctx context.Context, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load(ctx)

	entry, ok := c.entries[key]
	if !ok {
		c.miss()
		return nil, false
	}

	if entry.expired(c.now()) {
		delete(c.entries, key)
		if err := c.persist(ctx); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("failed to persist lazy eviction")
		}
		c.miss()
		c.evicted(1)
		return nil, false
	}

	c.hit()
	return entry.Data, true
}

// Remove deletes the entry for key. Removing an absent key is a no-op.
func (c *Cache) Remove(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load(ctx)

	if _, ok := c.entries[key]; !ok {
		return nil
	}
	delete(c.entries, key)
	return c.persist(ctx)
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loaded = true
	c.entries = make(map[string]*Entry)
	return c.persist(ctx)
}

// SweepExpired evicts all expired entries in one pass and reports how many
// were removed. Housekeeping only; lazy eviction alone keeps reads correct.
func (c *Cache) SweepExpired(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load(ctx)

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	c.evicted(removed)
	return removed, c.persist(ctx)
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load(ctx)
	return len(c.entries)
}

// load populates the in-memory map from the persistent store once. A
// missing or unparseable collection degrades to an empty cache rather than
// surfacing an error to callers on a cold start.
func (c *Cache) load(ctx context.Context) {
	if c.loaded {
		return
	}
	c.loaded = true

	data, err := c.store.ReadCollection(ctx, storage.CollectionCache)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read cache collection, starting empty")
		return
	}
	if len(data) == 0 {
		return
	}

	var entries map[string]*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn().Err(err).Msg("cache collection is corrupt, starting empty")
		return
	}
	c.entries = entries
}

func (c *Cache) persist(ctx context.Context) error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return err
	}
	return c.store.WriteCollection(ctx, storage.CollectionCache, data)
}

func (c *Cache) hit() {
	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}

func (c *Cache) evicted(n int) {
	if c.metrics != nil {
		c.metrics.CacheEvictions.Add(float64(n))
	}
}
