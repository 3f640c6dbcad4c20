package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/memohai/storefront/internal/logger"
	"github.com/memohai/storefront/internal/reference"
)

// Snapshot is an immutable view of one catalog scope with its compiled matcher.
type Snapshot struct {
	Category string
	Products []Product
	Matcher  *reference.Matcher
	LoadedAt time.Time
	byID     map[int64]Product
}

// NewSnapshot compiles products into a snapshot. products must not be mutated afterwards.
func NewSnapshot(category string, products []Product, loadedAt time.Time) *Snapshot {
	byID := make(map[int64]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &Snapshot{
		Category: category,
		Products: products,
		Matcher:  reference.Compile(Items(products)),
		LoadedAt: loadedAt,
		byID:     byID,
	}
}

// Resolve runs the reference resolver against this snapshot.
func (s *Snapshot) Resolve(raw string) reference.Result {
	if s == nil {
		return (*reference.Matcher)(nil).Resolve(raw)
	}
	return s.Matcher.Resolve(raw)
}

// Lookup returns the snapshot's products for ids, in order, dropping unknown ids.
func (s *Snapshot) Lookup(ids []int64) []Product {
	if s == nil {
		return []Product{}
	}
	return orderByIDs(s.Products, ids)
}

// Has reports whether the snapshot contains id.
func (s *Snapshot) Has(id int64) bool {
	if s == nil {
		return false
	}
	_, ok := s.byID[id]
	return ok
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLookupObserver reports every Get as a hit or a miss.
func WithLookupObserver(fn func(hit bool)) CacheOption {
	return func(c *Cache) { c.observe = fn }
}

// WithLoadTimeout bounds a single store read. Defaults to DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

// WithClock overrides time.Now for LoadedAt stamps.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// DefaultLoadTimeout bounds a shared snapshot load.
const DefaultLoadTimeout = 30 * time.Second

// Cache keeps recently used catalog snapshots, one per category scope, for a fixed TTL.
// Concurrent misses for the same scope share a single store read. The read is detached
// from the caller's cancellation, since other callers may be waiting on it.
type Cache struct {
	store       Store
	entries     *expirable.LRU[string, *Snapshot]
	group       singleflight.Group
	mu          sync.Mutex // orders Add against Invalidate
	generation  atomic.Uint64
	logger      *slog.Logger
	now         func() time.Time
	observe     func(hit bool)
	loadTimeout time.Duration
}

// NewCache builds a cache holding at most size scopes, each for ttl.
func NewCache(log *slog.Logger, store Store, size int, ttl time.Duration, opts ...CacheOption) *Cache {
	if size <= 0 {
		size = 1
	}
	c := &Cache{
		store:       store,
		entries:     expirable.NewLRU[string, *Snapshot](size, nil, ttl),
		logger:      logger.OrDiscard(log).With(slog.String("service", "catalog_cache")),
		now:         time.Now,
		loadTimeout: DefaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached snapshot for category, loading it on a miss.
func (c *Cache) Get(ctx context.Context, category string) (*Snapshot, error) {
	if snap, ok := c.entries.Get(category); ok {
		c.report(true)
		return snap, nil
	}
	c.report(false)
	return c.load(ctx, category)
}

// Refresh reloads category from the store and replaces the cached snapshot.
func (c *Cache) Refresh(ctx context.Context, category string) (*Snapshot, error) {
	return c.load(ctx, category)
}

// Scopes lists the categories currently cached.
func (c *Cache) Scopes() []string {
	return c.entries.Keys()
}

// Invalidate drops every cached snapshot. Loads already in flight still answer their
// callers but are not cached.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.generation.Add(1)
	n := c.entries.Len()
	c.entries.Purge()
	c.mu.Unlock()
	c.logger.Info("catalog cache invalidated", slog.Int("scopes", n))
}

// Len reports how many scopes are cached.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) load(ctx context.Context, category string) (*Snapshot, error) {
	gen := c.generation.Load()
	key := strconv.FormatUint(gen, 10) + "/" + category
	v, err, _ := c.group.Do(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		started := c.now()
		products, err := c.store.Snapshot(loadCtx, category)
		if err != nil {
			return nil, fmt.Errorf("load catalog snapshot: %w", err)
		}
		snap := NewSnapshot(category, products, c.now())
		c.mu.Lock()
		current := c.generation.Load() == gen
		if current {
			c.entries.Add(category, snap)
		}
		c.mu.Unlock()
		if !current {
			c.logger.Debug("catalog snapshot discarded after invalidation", slog.String("category", category))
			return snap, nil
		}
		c.logger.Debug("catalog snapshot loaded",
			slog.String("category", category),
			slog.Int("products", len(products)),
			slog.Int("matchable", snap.Matcher.Len()),
			slog.Duration("took", c.now().Sub(started)),
		)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (c *Cache) report(hit bool) {
	if c.observe != nil {
		c.observe(hit)
	}
}
