package gpucache

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vellumview/tilecore/tile"
)

type mockHandle struct{ id int }

func idFor(x, y int32, profile tile.Profile) tile.ID {
	id, _ := tile.New(0, tile.Coordinate{X: x, Y: y}, 20, tile.Rotate0, profile, 4)
	return id
}

const texBytes = int64(256 * 256 * 4)

func TestPutGetRoundTrip(t *testing.T) {
	c := New(1 << 20)
	id := idFor(0, 0, tile.Crisp)
	tex := Texture{Handle: mockHandle{id: 42}, Width: 256, Height: 256, VRAMBytes: texBytes, Profile: tile.Crisp}
	require.NoError(t, c.Put(id, tex, tile.Preview))

	got, ok := c.Get(id)
	require.True(t, ok)
	h, ok := HandleAs[mockHandle](got)
	require.True(t, ok)
	require.Equal(t, 42, h.id)
}

func TestPutRejectsOversizedTexture(t *testing.T) {
	c := New(100)
	err := c.Put(idFor(0, 0, tile.Crisp), Texture{VRAMBytes: texBytes}, tile.Preview)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestQualityBiasedEvictionPrefersMatchingProfile(t *testing.T) {
	c := New(texBytes * 2)

	previewID := idFor(0, 0, tile.Preview)
	crispID := idFor(1, 0, tile.Crisp)
	require.NoError(t, c.Put(previewID, Texture{VRAMBytes: texBytes, Profile: tile.Preview}, tile.Preview))
	require.NoError(t, c.Put(crispID, Texture{VRAMBytes: texBytes, Profile: tile.Crisp}, tile.Preview))

	// Touch the preview tile so it is MORE recently used than the crisp
	// tile. Plain LRU would evict the crisp tile next, but quality-biased
	// eviction must still prefer evicting the Preview entry.
	_, _ = c.Get(previewID)

	newCrisp := idFor(2, 0, tile.Crisp)
	require.NoError(t, c.Put(newCrisp, Texture{VRAMBytes: texBytes, Profile: tile.Crisp}, tile.Preview))

	require.False(t, c.Contains(previewID), "preview tile should be evicted despite being more recently used")
	require.True(t, c.Contains(crispID))
	require.True(t, c.Contains(newCrisp))
}

func TestEvictionFallsBackToLRUWhenNoProfileMatch(t *testing.T) {
	c := New(texBytes * 2)

	a := idFor(0, 0, tile.Crisp)
	b := idFor(1, 0, tile.Crisp)
	require.NoError(t, c.Put(a, Texture{VRAMBytes: texBytes, Profile: tile.Crisp}, tile.Preview))
	require.NoError(t, c.Put(b, Texture{VRAMBytes: texBytes, Profile: tile.Crisp}, tile.Preview))

	// No Preview-profile entries exist; eviction must fall back to LRU
	// and evict `a` (the least recently used).
	d := idFor(2, 0, tile.Crisp)
	require.NoError(t, c.Put(d, Texture{VRAMBytes: texBytes, Profile: tile.Crisp}, tile.Preview))

	require.False(t, c.Contains(a))
	require.True(t, c.Contains(b))
	require.True(t, c.Contains(d))
}

func TestRemoveAndClear(t *testing.T) {
	c := New(1 << 20)
	id := idFor(0, 0, tile.Crisp)
	require.NoError(t, c.Put(id, Texture{VRAMBytes: texBytes}, tile.Preview))

	_, ok := c.Remove(id)
	require.True(t, ok)
	require.False(t, c.Contains(id))

	require.NoError(t, c.Put(id, Texture{VRAMBytes: texBytes}, tile.Preview))
	c.Clear()
	require.Equal(t, 0, c.Stats().Textures)
	require.Equal(t, int64(0), c.Stats().VRAMUsed)
}

func TestSetVRAMLimitEvictsDownToFit(t *testing.T) {
	c := New(texBytes * 3)
	a := idFor(0, 0, tile.Crisp)
	b := idFor(1, 0, tile.Crisp)
	require.NoError(t, c.Put(a, Texture{VRAMBytes: texBytes}, tile.Preview))
	require.NoError(t, c.Put(b, Texture{VRAMBytes: texBytes}, tile.Preview))

	c.SetVRAMLimit(texBytes)
	require.LessOrEqual(t, c.Stats().VRAMUsed, texBytes)
}

func TestStatsHitRateAndUtilization(t *testing.T) {
	c := New(1 << 20)
	id := idFor(0, 0, tile.Crisp)
	require.NoError(t, c.Put(id, Texture{VRAMBytes: 512 * 1024}, tile.Preview))

	_, _ = c.Get(id)
	_, _ = c.Get(idFor(9, 9, tile.Crisp))

	s := c.Stats()
	require.InDelta(t, 0.5, s.HitRate(), 0.01)
	require.InDelta(t, 0.5, s.VRAMUtilization(), 0.01)
}

func TestTryGetNonBlockingOnMiss(t *testing.T) {
	c := New(1 << 20)
	_, ok := c.TryGet(idFor(1, 1, tile.Crisp))
	require.False(t, ok)
}
