// Package ramcache is the byte-bounded LRU cache of decoded pixel tiles
// held in host RAM, the fastest and smallest of the three cache tiers.
package ramcache

import (
	"errors"
	"sync"

	"github.com/vellumview/tilecore/internal/lru"
	"github.com/vellumview/tilecore/pixmap"
	"github.com/vellumview/tilecore/tile"
)

// ErrTooLarge is returned by Put when a single tile's byte size exceeds the
// cache's configured limit; no amount of eviction could make it fit.
var ErrTooLarge = errors.New("ramcache: tile exceeds cache limit")

// Stats is a point-in-time snapshot of cache occupancy.
type Stats struct {
	Entries   int
	Bytes     int64
	Limit     int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type entry struct {
	buf  *pixmap.Buffer
	node *lru.Node[tile.ID]
}

// Cache is a byte-bounded, thread-safe LRU over Cached Pixel Tiles keyed by
// tile.ID, kept structured rather than pre-hashed — a RAM entry always has
// its full ID beside it so the compositor never needs to reverse a hash.
// All mutating operations serialize through a single mutex; TryGet never
// blocks.
type Cache struct {
	mu        sync.Mutex
	entries   map[tile.ID]*entry
	order     *lru.List[tile.ID]
	bytes     int64
	limit     int64
	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a RAM tile cache capped at limitBytes.
func New(limitBytes int64) *Cache {
	return &Cache{
		entries: make(map[tile.ID]*entry),
		order:   lru.New[tile.ID](),
		limit:   limitBytes,
	}
}

// Put inserts or replaces the pixel buffer for id, evicting LRU entries
// until the cache fits. If buf alone is larger than the cache's limit, the
// insert is rejected with ErrTooLarge and the cache is left unchanged.
func (c *Cache) Put(id tile.ID, buf *pixmap.Buffer) error {
	size := int64(len(buf.Bytes()))
	c.mu.Lock()
	defer c.mu.Unlock()

	if size > c.limit {
		return ErrTooLarge
	}

	if old, ok := c.entries[id]; ok {
		c.bytes -= int64(len(old.buf.Bytes()))
		c.order.Remove(old.node)
		delete(c.entries, id)
	}

	for c.bytes+size > c.limit {
		evictID, ok := c.order.PopBack()
		if !ok {
			break
		}
		if e, ok := c.entries[evictID]; ok {
			c.bytes -= int64(len(e.buf.Bytes()))
			delete(c.entries, evictID)
			c.evictions++
		}
	}

	node := c.order.PushFront(id)
	c.entries[id] = &entry{buf: buf, node: node}
	c.bytes += size
	return nil
}

// Get retrieves the pixel buffer for id, marking it most recently used.
// Blocks on the cache lock if contended.
func (c *Cache) Get(id tile.ID) (*pixmap.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(id)
}

// TryGet is the non-blocking variant of Get: if the cache lock is
// currently held by another goroutine, it returns immediately with
// (nil, false) rather than waiting. Intended for callers on the UI thread
// that must never stall.
func (c *Cache) TryGet(id tile.ID) (*pixmap.Buffer, bool) {
	if !c.mu.TryLock() {
		return nil, false
	}
	defer c.mu.Unlock()
	return c.getLocked(id)
}

func (c *Cache) getLocked(id tile.ID) (*pixmap.Buffer, bool) {
	e, ok := c.entries[id]
	if !ok {
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(e.node)
	c.hits++
	return e.buf, true
}

// Contains reports whether id is present, without affecting LRU order or
// hit/miss counters.
func (c *Cache) Contains(id tile.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// Remove evicts id if present, reporting whether it was found.
func (c *Cache) Remove(id tile.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return false
	}
	c.bytes -= int64(len(e.buf.Bytes()))
	c.order.Remove(e.node)
	delete(c.entries, id)
	return true
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[tile.ID]*entry)
	c.order.Clear()
	c.bytes = 0
}

// SetLimit changes the byte cap, evicting LRU entries immediately if the
// new limit is smaller than current usage.
func (c *Cache) SetLimit(limitBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = limitBytes
	for c.bytes > c.limit {
		evictID, ok := c.order.PopBack()
		if !ok {
			break
		}
		if e, ok := c.entries[evictID]; ok {
			c.bytes -= int64(len(e.buf.Bytes()))
			delete(c.entries, evictID)
			c.evictions++
		}
	}
}

// Stats returns a snapshot of cache occupancy and counters. It serializes
// through the same lock as mutating operations but its work is O(1), so it
// never blocks an insert for longer than a struct copy.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.entries),
		Bytes:     c.bytes,
		Limit:     c.limit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
