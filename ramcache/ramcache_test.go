package ramcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vellumview/tilecore/pixmap"
	"github.com/vellumview/tilecore/tile"
)

func tileBuf(w, h int) *pixmap.Buffer { return pixmap.New(w, h) }

func idFor(page uint16, x, y int32) tile.ID {
	id, _ := tile.New(page, tile.Coordinate{X: x, Y: y}, 20, tile.Rotate0, tile.Crisp, 4)
	return id
}

func TestPutGetRoundTrip(t *testing.T) {
	c := New(1 << 20)
	id := idFor(0, 0, 0)
	buf := tileBuf(256, 256)
	require.NoError(t, c.Put(id, buf))

	got, ok := c.Get(id)
	require.True(t, ok)
	require.Same(t, buf, got)
}

func TestGetMissOnUnknownID(t *testing.T) {
	c := New(1 << 20)
	_, ok := c.Get(idFor(9, 9, 9))
	require.False(t, ok)
}

func TestPutRejectsOversizedTile(t *testing.T) {
	c := New(100)
	err := c.Put(idFor(0, 0, 0), tileBuf(256, 256))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestEvictsLRUOrderOnOverflow(t *testing.T) {
	tileBytes := int64(len(tileBuf(256, 256).Bytes()))
	c := New(tileBytes * 2)

	a, b, d := idFor(0, 0, 0), idFor(0, 1, 0), idFor(0, 2, 0)
	require.NoError(t, c.Put(a, tileBuf(256, 256)))
	require.NoError(t, c.Put(b, tileBuf(256, 256)))

	// Touch a so b becomes the LRU victim.
	_, _ = c.Get(a)
	require.NoError(t, c.Put(d, tileBuf(256, 256)))

	require.True(t, c.Contains(a))
	require.False(t, c.Contains(b))
	require.True(t, c.Contains(d))
}

func TestRemoveAndClear(t *testing.T) {
	c := New(1 << 20)
	id := idFor(0, 0, 0)
	require.NoError(t, c.Put(id, tileBuf(256, 256)))

	require.True(t, c.Remove(id))
	require.False(t, c.Remove(id))
	require.False(t, c.Contains(id))

	require.NoError(t, c.Put(id, tileBuf(256, 256)))
	c.Clear()
	require.Equal(t, 0, c.Stats().Entries)
}

func TestSetLimitEvictsDownToFit(t *testing.T) {
	tileBytes := int64(len(tileBuf(256, 256).Bytes()))
	c := New(tileBytes * 3)
	a, b := idFor(0, 0, 0), idFor(0, 1, 0)
	require.NoError(t, c.Put(a, tileBuf(256, 256)))
	require.NoError(t, c.Put(b, tileBuf(256, 256)))

	c.SetLimit(tileBytes)
	stats := c.Stats()
	require.LessOrEqual(t, stats.Bytes, tileBytes)
	require.False(t, c.Contains(a), "oldest entry should be evicted first")
	require.True(t, c.Contains(b))
}

func TestStatsTracksHitsAndMisses(t *testing.T) {
	c := New(1 << 20)
	id := idFor(0, 0, 0)
	require.NoError(t, c.Put(id, tileBuf(256, 256)))

	_, _ = c.Get(id)
	_, _ = c.Get(idFor(1, 1, 1))

	s := c.Stats()
	require.Equal(t, uint64(1), s.Hits)
	require.Equal(t, uint64(1), s.Misses)
}

func TestTryGetNonBlockingUnderContention(t *testing.T) {
	c := New(1 << 20)
	id := idFor(0, 0, 0)
	require.NoError(t, c.Put(id, tileBuf(256, 256)))

	c.mu.Lock()
	var wg sync.WaitGroup
	wg.Add(1)
	var ok bool
	go func() {
		defer wg.Done()
		_, ok = c.TryGet(id)
	}()
	wg.Wait()
	c.mu.Unlock()

	require.False(t, ok, "TryGet must not block while the lock is held")
}

func TestTryGetSucceedsWhenUncontended(t *testing.T) {
	c := New(1 << 20)
	id := idFor(0, 0, 0)
	require.NoError(t, c.Put(id, tileBuf(256, 256)))

	got, ok := c.TryGet(id)
	require.True(t, ok)
	require.NotNil(t, got)
}
