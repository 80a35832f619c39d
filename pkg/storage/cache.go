package storage

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vjranagit/drought/pkg/observability"
	"github.com/vjranagit/drought/pkg/table"
)

// TableCache is an LRU cache of decoded tables with a time-to-live
type TableCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
	cache    map[string]*cacheEntry
	lru      *list.List
	now      func() time.Time
}

type cacheEntry struct {
	key       string
	table     *table.Table
	timestamp time.Time
	element   *list.Element
}

// NewTableCache creates a cache. A zero ttl never expires entries.
func NewTableCache(capacity int, ttl time.Duration) *TableCache {
	return &TableCache{
		capacity: capacity,
		ttl:      ttl,
		cache:    make(map[string]*cacheEntry),
		lru:      list.New(),
		now:      time.Now,
	}
}

// Get retrieves a cached table
func (c *TableCache) Get(key string) (*table.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.timestamp) > c.ttl {
		c.removeLocked(key)
		return nil, false
	}
	c.lru.MoveToFront(entry.element)
	return entry.table, true
}

// Put stores a table, evicting the least recently used entry when full
func (c *TableCache) Put(key string, t *table.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.cache[key]; ok {
		entry.table = t
		entry.timestamp = c.now()
		c.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{key: key, table: t, timestamp: c.now()}
	entry.element = c.lru.PushFront(entry)
	c.cache[key] = entry

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeLocked(oldest.Value.(*cacheEntry).key)
		}
	}
}

// Remove drops key from the cache
func (c *TableCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// removeLocked removes an entry from the cache (must hold lock)
func (c *TableCache) removeLocked(key string) {
	if entry, ok := c.cache[key]; ok {
		c.lru.Remove(entry.element)
		delete(c.cache, key)
	}
}

// Size returns the current number of entries
func (c *TableCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// CachedStore wraps a Store with a read-through table cache
type CachedStore struct {
	store  Store
	cache  *TableCache
	log    logrus.FieldLogger
	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// NewCachedStore creates a cached store wrapper
func NewCachedStore(store Store, capacity int, ttl time.Duration, log logrus.FieldLogger) *CachedStore {
	return &CachedStore{
		store: store,
		cache: NewTableCache(capacity, ttl),
		log:   log.WithField("component", "table_cache"),
	}
}

// Save writes through and refreshes the cached copy
func (cs *CachedStore) Save(ctx context.Context, key string, t *table.Table) error {
	if err := cs.store.Save(ctx, key, t); err != nil {
		cs.cache.Remove(key)
		return err
	}
	cs.cache.Put(key, t)
	return nil
}

// Load serves from cache before reading the underlying store
func (cs *CachedStore) Load(ctx context.Context, key string) (*table.Table, error) {
	if t, ok := cs.cache.Get(key); ok {
		cs.record(true)
		return t, nil
	}
	cs.record(false)

	t, err := cs.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	cs.cache.Put(key, t)
	cs.log.WithField("key", key).Debug("Table cached")
	return t, nil
}

// Keys passes through to the underlying store
func (cs *CachedStore) Keys(ctx context.Context) ([]string, error) {
	return cs.store.Keys(ctx)
}

// Delete removes key from the store and the cache
func (cs *CachedStore) Delete(ctx context.Context, key string) error {
	cs.cache.Remove(key)
	return cs.store.Delete(ctx, key)
}

// Close closes the underlying store
func (cs *CachedStore) Close() error {
	return cs.store.Close()
}

func (cs *CachedStore) record(hit bool) {
	cs.mu.Lock()
	if hit {
		cs.hits++
	} else {
		cs.misses++
	}
	cs.mu.Unlock()
	observability.RecordStoreCache(hit)
}

// HitRate returns the cache hit rate as a percentage
func (cs *CachedStore) HitRate() float64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	total := cs.hits + cs.misses
	if total == 0 {
		return 0.0
	}
	return float64(cs.hits) / float64(total) * 100.0
}
