// Package cache keeps the last known value of every object a query
// touched. Values are written only on transport notifications and read
// by every resolver sharing the cache.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultSize = 1 << 16

// Reader is a consistent snapshot of the cache, valid inside View
type Reader interface {
	// Get returns the cached value; ok is false for absent entries,
	// while a cached nil is a present null
	Get(id string) (value any, ok bool)
	Has(id string) bool
}

// Cache is an id → value map bounded by an LRU. Eviction makes an
// entry absent, exactly as if it was never delivered. Put is the only
// writer and excludes all the readers.
type Cache struct {
	entries *lru.Cache[string, any]
	lock    sync.RWMutex
}

func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, any](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

func (c *Cache) Put(id string, value any) {
	c.lock.Lock()
	c.entries.Add(id, value)
	c.lock.Unlock()
}

func (c *Cache) Delete(id string) {
	c.lock.Lock()
	c.entries.Remove(id)
	c.lock.Unlock()
}

// View runs a read pass; no Put may interleave with it
func (c *Cache) View(fn func(r Reader)) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	fn(reader{c.entries})
}

func (c *Cache) Get(id string) (value any, ok bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.entries.Get(id)
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) Purge() {
	c.lock.Lock()
	c.entries.Purge()
	c.lock.Unlock()
}

type reader struct {
	entries *lru.Cache[string, any]
}

func (r reader) Get(id string) (any, bool) {
	return r.entries.Get(id)
}

func (r reader) Has(id string) bool {
	return r.entries.Contains(id)
}
