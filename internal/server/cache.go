package server

import (
	"sync"
	"time"

	"github.com/openjab/jab-cli/internal/model"
)

// cacheKey identifies one snapshot scope.
type cacheKey struct {
	Window string
	Depth  int
}

type cacheEntry struct {
	element   model.Element
	timestamp time.Time
}

// snapshotCache is a TTL cache for accessible-tree snapshots. Agents often
// issue a read followed immediately by a find or click on the same window;
// the cache spares the bridge a second full traversal.
type snapshotCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
	ttl     time.Duration
}

// newSnapshotCache creates a cache. A ttl of 0 disables caching.
func newSnapshotCache(ttl time.Duration) *snapshotCache {
	return &snapshotCache{
		entries: make(map[cacheKey]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached snapshot for the key when it is within TTL.
func (c *snapshotCache) Get(key cacheKey) (model.Element, bool) {
	if c.ttl == 0 {
		return model.Element{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Since(entry.timestamp) >= c.ttl {
		return model.Element{}, false
	}
	return entry.element, true
}

// Put stores a snapshot.
func (c *snapshotCache) Put(key cacheKey, el model.Element) {
	if c.ttl == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{element: el, timestamp: time.Now()}
}

// InvalidateWindow removes all entries for the given window. Write actions
// call this: the tree they just changed must not be served stale.
func (c *snapshotCache) InvalidateWindow(window string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.Window == window {
			delete(c.entries, k)
		}
	}
}

// InvalidateAll clears the cache.
func (c *snapshotCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}
