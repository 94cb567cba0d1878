// Package modelcache provides a process-wide, capacity-bounded cache for
// expensive resources such as loaded ASR models. Eviction is least recently
// used; evicted values are released through a callback before being dropped.
package modelcache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// Loader produces the value for a missing key.
type Loader[T any] func(ctx context.Context, key string) (T, error)

// Releaser frees an evicted value.
type Releaser[T any] func(value T)

type entry[T any] struct {
	key   string
	value T
}

// Cache is safe for concurrent use. Concurrent Gets for the same missing
// key are serialized so the loader runs at most once per key.
type Cache[T any] struct {
	mu       sync.RWMutex
	capacity int
	load     Loader[T]
	release  Releaser[T]
	entries  map[string]*list.Element
	order    *list.List
}

// New builds a cache holding at most capacity values. release may be nil
// when values need no teardown.
func New[T any](capacity int, load Loader[T], release Releaser[T]) (*Cache[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("modelcache: capacity must be at least 1, got %d", capacity)
	}
	if load == nil {
		return nil, fmt.Errorf("modelcache: loader required")
	}
	return &Cache[T]{
		capacity: capacity,
		load:     load,
		release:  release,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}, nil
}

// Get returns the cached value for key, loading it on first use. The fast
// path takes only a read lock; the load path re-checks under the write lock
// so a racing Get cannot trigger a second load.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, error) {
	c.mu.RLock()
	if element, ok := c.entries[key]; ok {
		value := element.Value.(*entry[T]).value
		c.mu.RUnlock()
		c.touch(key)
		return value, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if element, ok := c.entries[key]; ok {
		c.order.MoveToFront(element)
		return element.Value.(*entry[T]).value, nil
	}

	value, err := c.load(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}

	c.entries[key] = c.order.PushFront(&entry[T]{key: key, value: value})
	for c.order.Len() > c.capacity {
		c.evictOldest()
	}
	return value, nil
}

// Len reports the number of cached values.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Purge releases and drops every cached value.
func (c *Cache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.order.Len() > 0 {
		c.evictOldest()
	}
}

func (c *Cache[T]) touch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if element, ok := c.entries[key]; ok {
		c.order.MoveToFront(element)
	}
}

// evictOldest must be called with the write lock held.
func (c *Cache[T]) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	evicted := oldest.Value.(*entry[T])
	c.order.Remove(oldest)
	delete(c.entries, evicted.key)
	if c.release != nil {
		c.release(evicted.value)
	}
}
