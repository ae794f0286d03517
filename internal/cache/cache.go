// Package cache implements the bounded artifact cache backing compilations,
// semantic models, and other derived analysis products.
//
// Entries are keyed by artifact key and guarded by a version string: a lookup
// only hits when the stored version equals the requested one, so a stale
// entry behaves exactly like a miss and is dropped on contact. Expensive
// builds are deduplicated per (key, version) so concurrent requesters share
// one build and one result.
//
// Memory is bounded by a byte budget. Admission evicts least-recently-used
// entries until the new artifact fits; artifacts larger than the budget (or
// the per-entry cap) are returned to the caller but never cached.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"

	"github.com/jward/arbor/internal/fault"
)

const defaultMaxEntries = 4096

type entry[V any] struct {
	value   V
	size    int64
	version string
}

// BuildFunc produces an artifact and reports its approximate size in bytes.
type BuildFunc[V any] func(ctx context.Context) (V, int64, error)

// Cache is a size-budgeted, version-checked LRU artifact cache.
// It is safe for concurrent use.
type Cache[V any] struct {
	mu     sync.Mutex
	lru    *simplelru.LRU[string, *entry[V]]
	total  int64
	budget int64
	// maxEntry caps a single artifact. Zero means "budget is the cap".
	maxEntry int64
	flight   singleflight.Group
	logger   *log.Logger
}

// New creates a cache with the given byte budget and per-entry cap.
func New[V any](budget, maxEntry int64, logger *log.Logger) (*Cache[V], error) {
	if budget <= 0 {
		return nil, fmt.Errorf("cache budget must be positive, got %d", budget)
	}
	if maxEntry <= 0 || maxEntry > budget {
		maxEntry = budget
	}
	c := &Cache[V]{budget: budget, maxEntry: maxEntry, logger: logger}
	lru, err := simplelru.NewLRU(defaultMaxEntries, func(key string, e *entry[V]) {
		c.total -= e.size
	})
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}
	c.lru = lru
	return c, nil
}

// GetOrBuild returns the cached artifact for key if its stored version
// matches version, building it otherwise. Concurrent calls for the same
// (key, version) share a single build; a build error is delivered to every
// waiter and nothing is cached.
func (c *Cache[V]) GetOrBuild(ctx context.Context, key, version string, build BuildFunc[V]) (V, error) {
	c.mu.Lock()
	if e, ok := c.lru.Get(key); ok {
		if e.version == version {
			v := e.value
			c.mu.Unlock()
			return v, nil
		}
		// Stale under the current version: indistinguishable from a miss.
		c.lru.Remove(key)
	}
	c.mu.Unlock()

	// Version participates in the flight key so a caller arriving after a
	// version bump never joins a build for the old version.
	flightKey := key + "@" + version
	v, err, _ := c.flight.Do(flightKey, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, fault.Wrap(fault.CodeCancelled, err, "build of %s cancelled", key)
		}
		value, size, err := build(ctx)
		if err != nil {
			return nil, err
		}
		c.admit(key, version, value, size)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Get returns the cached artifact for key when its version matches.
func (c *Cache[V]) Get(key, version string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.lru.Get(key); ok && e.version == version {
		return e.value, true
	}
	var zero V
	return zero, false
}

func (c *Cache[V]) admit(key, version string, value V, size int64) {
	if size < 0 {
		size = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if size > c.maxEntry || size > c.budget {
		if c.logger != nil {
			c.logger.Warn("artifact exceeds cache capacity, not cached",
				"key", key, "size", size, "budget", c.budget,
				"code", fault.CodeCapacityExceeded)
		}
		return
	}
	// Replacing an entry releases its bytes through the eviction callback.
	c.lru.Remove(key)
	for c.total+size > c.budget {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
	c.lru.Add(key, &entry[V]{value: value, size: size, version: version})
	c.total += size
}

// Invalidate removes the entry for key, if present.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// InvalidateFunc removes every entry whose key satisfies pred.
func (c *Cache[V]) InvalidateFunc(pred func(key string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.lru.Keys() {
		if pred(key) {
			c.lru.Remove(key)
		}
	}
}

// InvalidatePrefix removes every entry whose key starts with prefix.
func (c *Cache[V]) InvalidatePrefix(prefix string) {
	c.InvalidateFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// TotalSize returns the summed size of cached entries in bytes.
func (c *Cache[V]) TotalSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Reset drops every entry.
func (c *Cache[V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.total = 0
}
