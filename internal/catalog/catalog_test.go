package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-process Store that counts snapshot reads.
type memStore struct {
	mu        sync.Mutex
	products  []Product
	snapshots atomic.Int32
	err       error
	delay     time.Duration
	// gate, when set, holds every Snapshot until it is closed
	gate chan struct{}
}

func (m *memStore) Snapshot(ctx context.Context, category string) ([]Product, error) {
	m.snapshots.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.gate != nil {
		<-m.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []Product{}
	for _, p := range m.products {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) Get(ctx context.Context, id int64) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

func (m *memStore) GetMany(ctx context.Context, ids []int64) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return orderByIDs(m.products, ids), nil
}

func (m *memStore) set(products []Product) {
	m.mu.Lock()
	m.products = products
	m.mu.Unlock()
}

var sampleProducts = []Product{
	{ID: 1, Name: "Mouse Wireless", Category: "elektronik", PriceCents: 15000000, Currency: "IDR", Stock: 4},
	{ID: 2, Name: "Keyboard Mekanik", Category: "elektronik", PriceCents: 65000000, Currency: "IDR", Stock: 2},
	{ID: 5, Name: "Kaos Oversize Hitam", Category: "fashion", PriceCents: 9900000, Currency: "IDR", Stock: 10},
}

func TestOrderByIDs(t *testing.T) {
	t.Parallel()

	got := orderByIDs(sampleProducts, []int64{5, 99, 1, 5})
	require.Len(t, got, 2)
	assert.Equal(t, int64(5), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
	assert.Equal(t, []Product{}, orderByIDs(sampleProducts, nil))
}

func TestItems(t *testing.T) {
	t.Parallel()

	items := Items(sampleProducts)
	require.Len(t, items, 3)
	assert.Equal(t, int64(2), items[1].ID)
	assert.Equal(t, "Keyboard Mekanik", items[1].Name)
}

func TestSnapshotResolveAndLookup(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot("", sampleProducts, time.Unix(0, 0))
	res := snap.Resolve("Coba **Mouse Wireless** dan kaos oversize hitam")

	assert.Equal(t, []int64{1, 5}, res.ReferencedIDs)
	assert.Equal(t, "Coba **Mouse Wireless** dan kaos oversize hitam", res.DisplayText)
	assert.True(t, snap.Has(2))
	assert.False(t, snap.Has(3))

	found := snap.Lookup([]int64{5, 3, 1})
	require.Len(t, found, 2)
	assert.Equal(t, "Kaos Oversize Hitam", found[0].Name)

	var empty *Snapshot
	assert.Equal(t, []Product{}, empty.Lookup([]int64{1}))
	assert.Equal(t, "x", empty.Resolve("x [ID:1]").DisplayText)
}

func TestCacheGetHitsAfterFirstLoad(t *testing.T) {
	t.Parallel()

	store := &memStore{products: sampleProducts}
	var hits, misses atomic.Int32
	cache := NewCache(nil, store, 4, time.Minute, WithLookupObserver(func(hit bool) {
		if hit {
			hits.Add(1)
		} else {
			misses.Add(1)
		}
	}))

	ctx := context.Background()
	first, err := cache.Get(ctx, "")
	require.NoError(t, err)
	second, err := cache.Get(ctx, "")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), store.snapshots.Load())
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, int32(1), misses.Load())
	assert.Equal(t, 3, first.Matcher.Len())
}

func TestCacheScopesByCategory(t *testing.T) {
	t.Parallel()

	store := &memStore{products: sampleProducts}
	cache := NewCache(nil, store, 4, time.Minute)

	fashion, err := cache.Get(context.Background(), "fashion")
	require.NoError(t, err)
	require.Len(t, fashion.Products, 1)
	assert.Equal(t, []int64{}, fashion.Resolve("Mouse Wireless").ReferencedIDs)

	all, err := cache.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all.Products, 3)
	assert.ElementsMatch(t, []string{"fashion", ""}, cache.Scopes())
}

func TestCacheExpires(t *testing.T) {
	t.Parallel()

	store := &memStore{products: sampleProducts}
	cache := NewCache(nil, store, 2, 20*time.Millisecond)

	_, err := cache.Get(context.Background(), "")
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = cache.Get(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, int32(2), store.snapshots.Load())
}

func TestCacheInvalidateAndRefresh(t *testing.T) {
	t.Parallel()

	store := &memStore{products: sampleProducts[:1]}
	cache := NewCache(nil, store, 2, time.Hour)
	ctx := context.Background()

	snap, err := cache.Get(ctx, "")
	require.NoError(t, err)
	require.Len(t, snap.Products, 1)

	store.set(sampleProducts)
	stale, err := cache.Get(ctx, "")
	require.NoError(t, err)
	assert.Len(t, stale.Products, 1)

	cache.Invalidate()
	assert.Equal(t, 0, cache.Len())
	fresh, err := cache.Get(ctx, "")
	require.NoError(t, err)
	assert.Len(t, fresh.Products, 3)

	store.set(sampleProducts[:2])
	refreshed, err := cache.Refresh(ctx, "")
	require.NoError(t, err)
	assert.Len(t, refreshed.Products, 2)
	again, err := cache.Get(ctx, "")
	require.NoError(t, err)
	assert.Same(t, refreshed, again)
}

func TestCacheStoreErrorIsNotCached(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	store := &memStore{products: sampleProducts, err: boom}
	cache := NewCache(nil, store, 2, time.Hour)

	_, err := cache.Get(context.Background(), "")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	snap, err := cache.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, snap.Products, 3)
}

func TestCacheConcurrentMissesShareLoad(t *testing.T) {
	t.Parallel()

	store := &memStore{products: sampleProducts, delay: 50 * time.Millisecond}
	cache := NewCache(nil, store, 2, time.Hour)

	var wg sync.WaitGroup
	snaps := make([]*Snapshot, 8)
	for i := range snaps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := cache.Get(context.Background(), "")
			assert.NoError(t, err)
			snaps[i] = snap
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.snapshots.Load())
	for _, snap := range snaps {
		assert.Same(t, snaps[0], snap)
	}
}

func waitForReads(t *testing.T, store *memStore, n int32) {
	t.Helper()
	require.Eventually(t, func() bool { return store.snapshots.Load() >= n }, time.Second, time.Millisecond)
}

func TestCacheLoadSurvivesFirstCallerCancel(t *testing.T) {
	t.Parallel()

	store := &memStore{products: sampleProducts, gate: make(chan struct{})}
	cache := NewCache(nil, store, 2, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx, "")
		first <- err
	}()
	waitForReads(t, store, 1)

	second := make(chan error, 1)
	go func() {
		_, err := cache.Get(context.Background(), "")
		second <- err
	}()

	cancel()
	close(store.gate)

	require.NoError(t, <-first)
	require.NoError(t, <-second)
	assert.Equal(t, int32(1), store.snapshots.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestCacheInvalidateDuringLoadIsNotUndone(t *testing.T) {
	t.Parallel()

	store := &memStore{products: sampleProducts, gate: make(chan struct{})}
	cache := NewCache(nil, store, 2, time.Hour)

	done := make(chan *Snapshot, 1)
	go func() {
		snap, err := cache.Get(context.Background(), "")
		assert.NoError(t, err)
		done <- snap
	}()
	waitForReads(t, store, 1)

	cache.Invalidate()
	close(store.gate)

	stale := <-done
	require.NotNil(t, stale)
	assert.Equal(t, 0, cache.Len())

	fresh, err := cache.Get(context.Background(), "")
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.Equal(t, int32(2), store.snapshots.Load())
}
