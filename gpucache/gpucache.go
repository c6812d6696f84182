// Package gpucache is the VRAM-bounded LRU cache of uploaded GPU textures,
// the middle tier between the RAM pixel cache and the persistent disk
// cache. Texture handles are opaque to this package — it never
// creates, binds, or destroys a GPU resource, only tracks ownership and
// eviction order; the host backend (Metal/Vulkan/D3D/whatever `gogpu`
// target is active) owns the handle's lifetime.
package gpucache

import (
	"errors"
	"sync"

	"github.com/vellumview/tilecore/internal/lru"
	"github.com/vellumview/tilecore/tile"
)

// ErrTooLarge is returned by Put when a single texture's VRAM estimate
// exceeds the cache's configured limit.
var ErrTooLarge = errors.New("gpucache: texture exceeds VRAM limit")

// Texture is a cached GPU texture: an opaque handle plus the metadata the
// cache needs for eviction accounting and quality-biased eviction. Handle
// is typically a platform texture object; callers downcast it with a type
// assertion, mirroring the host's own texture type.
type Texture struct {
	Handle    any
	Width     int
	Height    int
	VRAMBytes int64
	Profile   tile.Profile
}

// Stats is a point-in-time snapshot of VRAM occupancy.
type Stats struct {
	Textures  int
	VRAMUsed  int64
	VRAMLimit int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits / (hits + misses), or 0 if there have been no
// lookups yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// VRAMUtilization returns VRAMUsed / VRAMLimit, or 0 if the limit is 0.
func (s Stats) VRAMUtilization() float64 {
	if s.VRAMLimit == 0 {
		return 0
	}
	return float64(s.VRAMUsed) / float64(s.VRAMLimit)
}

type entry struct {
	tex  Texture
	node *lru.Node[tile.ID]
}

// Cache is a thread-safe, VRAM-bounded LRU over Cached GPU Textures keyed
// by tile.ID. It adds quality-biased eviction on top of plain LRU: Put
// accepts a preferredEvictProfile, and eviction first looks for the
// oldest entry matching that profile before falling back to pure LRU.
type Cache struct {
	mu        sync.Mutex
	entries   map[tile.ID]*entry
	order     *lru.List[tile.ID]
	used      int64
	limit     int64
	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a GPU texture cache capped at limitBytes of VRAM.
func New(limitBytes int64) *Cache {
	return &Cache{
		entries: make(map[tile.ID]*entry),
		order:   lru.New[tile.ID](),
		limit:   limitBytes,
	}
}

// Put inserts or replaces the texture for id. If eviction is needed to
// make room, the cache first evicts the oldest entry whose profile
// equals preferredEvictProfile; if no such entry exists, it falls back to
// plain LRU order. Put never partially inserts: if the texture alone
// exceeds the limit, it returns ErrTooLarge and the cache is unchanged.
func (c *Cache) Put(id tile.ID, tex Texture, preferredEvictProfile tile.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tex.VRAMBytes > c.limit {
		return ErrTooLarge
	}

	if old, ok := c.entries[id]; ok {
		c.used -= old.tex.VRAMBytes
		c.order.Remove(old.node)
		delete(c.entries, id)
	}

	c.evictToFit(tex.VRAMBytes, preferredEvictProfile)

	node := c.order.PushFront(id)
	c.entries[id] = &entry{tex: tex, node: node}
	c.used += tex.VRAMBytes
	return nil
}

// evictToFit evicts entries, preferring ones matching preferredProfile,
// until adding size more bytes would fit within the limit. Caller must
// hold c.mu.
func (c *Cache) evictToFit(size int64, preferredProfile tile.Profile) {
	for c.used+size > c.limit {
		victim, ok := c.order.PopBackMatching(func(k tile.ID) bool {
			e := c.entries[k]
			return e != nil && e.tex.Profile == preferredProfile
		})
		if !ok {
			victim, ok = c.order.PopBack()
			if !ok {
				return
			}
		}
		if e, ok := c.entries[victim]; ok {
			c.used -= e.tex.VRAMBytes
			delete(c.entries, victim)
			c.evictions++
		}
	}
}

// Get retrieves the texture for id, marking it most recently used.
func (c *Cache) Get(id tile.ID) (Texture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(id)
}

// TryGet is the non-blocking variant of Get.
func (c *Cache) TryGet(id tile.ID) (Texture, bool) {
	if !c.mu.TryLock() {
		return Texture{}, false
	}
	defer c.mu.Unlock()
	return c.getLocked(id)
}

func (c *Cache) getLocked(id tile.ID) (Texture, bool) {
	e, ok := c.entries[id]
	if !ok {
		c.misses++
		return Texture{}, false
	}
	c.order.MoveToFront(e.node)
	c.hits++
	return e.tex, true
}

// HandleAs type-asserts a texture handle to T, mirroring the host's own
// texture type (e.g. a Metal or Vulkan texture object).
func HandleAs[T any](tex Texture) (T, bool) {
	v, ok := tex.Handle.(T)
	return v, ok
}

// Contains reports whether id is present without affecting LRU order.
func (c *Cache) Contains(id tile.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// Remove evicts id if present, returning its texture.
func (c *Cache) Remove(id tile.ID) (Texture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return Texture{}, false
	}
	c.used -= e.tex.VRAMBytes
	c.order.Remove(e.node)
	delete(c.entries, id)
	return e.tex, true
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[tile.ID]*entry)
	c.order.Clear()
	c.used = 0
}

// SetVRAMLimit changes the VRAM cap. If the new limit is below current
// usage, LRU entries are evicted until usage fits, before returning.
func (c *Cache) SetVRAMLimit(limitBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = limitBytes
	for c.used > c.limit {
		victim, ok := c.order.PopBack()
		if !ok {
			break
		}
		if e, ok := c.entries[victim]; ok {
			c.used -= e.tex.VRAMBytes
			delete(c.entries, victim)
			c.evictions++
		}
	}
}

// Stats returns a snapshot of cache occupancy and counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Textures:  len(c.entries),
		VRAMUsed:  c.used,
		VRAMLimit: c.limit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
