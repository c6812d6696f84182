// Package diskcache is the persistent, largest tile cache tier: pixel
// tiles written to files under a cache directory, surviving process
// restarts. The directory itself is the source of truth — the
// in-memory index is rebuilt by scanning it at startup, never loaded from
// a separate manifest file that could drift out of sync.
package diskcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vellumview/tilecore/internal/lru"
	"github.com/vellumview/tilecore/pixmap"
)

// headerSize is the fixed size of the blob header written before every
// tile's pixel bytes.
const headerSize = 16

// FormatRGBA8 is the only blob format this cache currently writes: 8 bits
// per channel, straight alpha, row-major, matching the canonical pixel order used throughout the module.
const FormatRGBA8 = 0

// ErrTooLarge is returned by Put when a tile's blob (header + pixels)
// exceeds the cache's configured byte limit.
var ErrTooLarge = errors.New("diskcache: blob exceeds cache limit")

// ErrNotFound names the absent-key condition. Get, TryGet and Remove
// report an absent key through their boolean result and do not return it.
var ErrNotFound = errors.New("diskcache: key not found")

// Stats is a point-in-time snapshot of disk cache occupancy.
type Stats struct {
	Entries   int
	Bytes     int64
	Limit     int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type indexEntry struct {
	path string
	size int64
	node *lru.Node[uint64]
}

// Cache is a thread-safe, byte-bounded LRU of pixel tiles persisted to
// files under Dir. Keys are tile.ID.CacheKey() values; the cache itself
// doesn't need the structured ID, only the stable hash.
type Cache struct {
	mu         sync.Mutex
	dir        string
	limit      int64
	index      map[uint64]*indexEntry
	order      *lru.List[uint64]
	used       int64
	hits       uint64
	misses     uint64
	evictions  uint64
	tmpCounter atomic.Uint64
}

// Open creates or attaches to a disk cache rooted at dir, capped at
// limitBytes. It scans the directory, drops any blob whose size doesn't
// match its own header-declared dimensions, and if the remaining total
// exceeds limitBytes, evicts the oldest entries (by file modification
// time) until it fits.
func Open(dir string, limitBytes int64) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diskcache: create dir: %w", err)
	}
	c := &Cache{
		dir:   dir,
		limit: limitBytes,
		index: make(map[uint64]*indexEntry),
		order: lru.New[uint64](),
	}
	if err := c.scan(); err != nil {
		return nil, err
	}
	return c, nil
}

type scannedEntry struct {
	key     uint64
	path    string
	size    int64
	modTime time.Time
}

func (c *Cache) scan() error {
	var found []scannedEntry
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tile") {
			return nil
		}
		name := strings.TrimSuffix(d.Name(), ".tile")
		key, parseErr := strconv.ParseUint(name, 16, 64)
		if parseErr != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		hdr, ok := readHeader(path)
		if !ok || !blobSizeMatches(hdr, info.Size()) {
			_ = os.Remove(path)
			return nil
		}
		found = append(found, scannedEntry{key: key, path: path, size: info.Size(), modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return fmt.Errorf("diskcache: scan: %w", err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].modTime.Before(found[j].modTime) })

	for _, e := range found {
		node := c.order.PushFront(e.key)
		c.index[e.key] = &indexEntry{path: e.path, size: e.size, node: node}
		c.used += e.size
	}

	for c.used > c.limit {
		victim, ok := c.order.PopBack()
		if !ok {
			break
		}
		e := c.index[victim]
		if e == nil {
			continue
		}
		_ = os.Remove(e.path)
		c.used -= e.size
		delete(c.index, victim)
		c.evictions++
	}
	return nil
}

type blobHeader struct {
	width, height, format, reserved uint32
}

func blobSizeMatches(h blobHeader, fileSize int64) bool {
	return fileSize == int64(headerSize)+int64(h.width)*int64(h.height)*4
}

func readHeader(path string) (blobHeader, bool) {
	f, err := os.Open(path)
	if err != nil {
		return blobHeader{}, false
	}
	defer f.Close()
	var buf [headerSize]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return blobHeader{}, false
	}
	return decodeHeader(buf), true
}

func decodeHeader(buf [headerSize]byte) blobHeader {
	return blobHeader{
		width:    binary.LittleEndian.Uint32(buf[0:4]),
		height:   binary.LittleEndian.Uint32(buf[4:8]),
		format:   binary.LittleEndian.Uint32(buf[8:12]),
		reserved: binary.LittleEndian.Uint32(buf[12:16]),
	}
}

func encodeHeader(h blobHeader) [headerSize]byte {
	var buf [headerSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.width)
	binary.LittleEndian.PutUint32(buf[4:8], h.height)
	binary.LittleEndian.PutUint32(buf[8:12], h.format)
	binary.LittleEndian.PutUint32(buf[12:16], h.reserved)
	return buf
}

// pathFor returns the bucketed file path for key: the first two hex
// characters of the 16-digit key form a subdirectory, keeping any single
// directory from growing unbounded.
func (c *Cache) pathFor(key uint64) string {
	hex := fmt.Sprintf("%016x", key)
	return filepath.Join(c.dir, hex[:2], hex+".tile")
}

// Put writes buf's pixels to disk under key, atomically (tmp file +
// fsync + rename), evicting LRU entries first if needed to fit within
// the byte limit.
func (c *Cache) Put(key uint64, buf *pixmap.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := buf.Bytes()
	blobSize := int64(headerSize) + int64(len(data))
	if blobSize > c.limit {
		return ErrTooLarge
	}

	if old, ok := c.index[key]; ok {
		_ = os.Remove(old.path)
		c.used -= old.size
		c.order.Remove(old.node)
		delete(c.index, key)
	}

	for c.used+blobSize > c.limit {
		victim, ok := c.order.PopBack()
		if !ok {
			break
		}
		e := c.index[victim]
		if e == nil {
			continue
		}
		_ = os.Remove(e.path)
		c.used -= e.size
		delete(c.index, victim)
		c.evictions++
	}

	path := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("diskcache: mkdir: %w", err)
	}
	if err := c.writeAtomic(path, buf, data); err != nil {
		return err
	}

	node := c.order.PushFront(key)
	c.index[key] = &indexEntry{path: path, size: blobSize, node: node}
	c.used += blobSize
	return nil
}

func (c *Cache) writeAtomic(path string, buf *pixmap.Buffer, data []byte) error {
	tmp := fmt.Sprintf("%s.tmp-%d-%d", path, os.Getpid(), c.tmpCounter.Add(1))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("diskcache: create tmp: %w", err)
	}
	hdr := encodeHeader(blobHeader{width: uint32(buf.Width()), height: uint32(buf.Height()), format: FormatRGBA8})
	if _, err := f.Write(hdr[:]); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("diskcache: write header: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("diskcache: write data: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("diskcache: fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("diskcache: close tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("diskcache: rename: %w", err)
	}
	return nil
}

// Get reads the tile for key from disk, marking it most recently used.
// A blob whose declared dimensions don't match its file size is treated
// as corrupt: it's dropped from the index (and removed from disk) and
// Get reports a miss.
func (c *Cache) Get(key uint64) (*pixmap.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

// TryGet is the non-blocking variant of Get.
func (c *Cache) TryGet(key uint64) (*pixmap.Buffer, bool) {
	if !c.mu.TryLock() {
		return nil, false
	}
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache) getLocked(key uint64) (*pixmap.Buffer, bool) {
	e, ok := c.index[key]
	if !ok {
		c.misses++
		return nil, false
	}

	f, err := os.Open(e.path)
	if err != nil {
		c.dropCorrupt(key, e)
		c.misses++
		return nil, false
	}
	defer f.Close()

	var hdrBuf [headerSize]byte
	if _, err := io.ReadFull(f, hdrBuf[:]); err != nil {
		c.dropCorrupt(key, e)
		c.misses++
		return nil, false
	}
	hdr := decodeHeader(hdrBuf)
	want := int64(headerSize) + int64(hdr.width)*int64(hdr.height)*4
	if want != e.size {
		c.dropCorrupt(key, e)
		c.misses++
		return nil, false
	}

	data := make([]byte, int(hdr.width)*int(hdr.height)*4)
	if _, err := io.ReadFull(f, data); err != nil {
		c.dropCorrupt(key, e)
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(e.node)
	c.hits++
	return pixmap.FromBytes(int(hdr.width), int(hdr.height), data), true
}

// dropCorrupt removes a blob that failed validation on read, updating the
// index and byte accounting. Caller must hold c.mu.
func (c *Cache) dropCorrupt(key uint64, e *indexEntry) {
	_ = os.Remove(e.path)
	c.used -= e.size
	c.order.Remove(e.node)
	delete(c.index, key)
}

// Contains reports whether key has an entry in the index, without
// touching LRU order or validating the blob on disk.
func (c *Cache) Contains(key uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[key]
	return ok
}

// Remove deletes key's blob from disk and the index.
func (c *Cache) Remove(key uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.index[key]
	if !ok {
		return false
	}
	_ = os.Remove(e.path)
	c.used -= e.size
	c.order.Remove(e.node)
	delete(c.index, key)
	return true
}

// Clear deletes every blob tracked by the cache and empties the index.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.index {
		_ = os.Remove(e.path)
	}
	c.index = make(map[uint64]*indexEntry)
	c.order.Clear()
	c.used = 0
}

// SetLimit changes the byte cap, evicting LRU entries immediately if the
// new limit is smaller than current usage.
func (c *Cache) SetLimit(limitBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = limitBytes
	for c.used > c.limit {
		victim, ok := c.order.PopBack()
		if !ok {
			break
		}
		e := c.index[victim]
		if e == nil {
			continue
		}
		_ = os.Remove(e.path)
		c.used -= e.size
		delete(c.index, victim)
		c.evictions++
	}
}

// Stats returns a snapshot of cache occupancy and counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.index),
		Bytes:     c.used,
		Limit:     c.limit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
