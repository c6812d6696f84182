package viewport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vellumview/tilecore/scheduler"
	"github.com/vellumview/tilecore/tile"
)

func tileAt(page uint16, x, y int32, zoomBucket uint32) tile.ID {
	id, err := tile.New(page, tile.Coordinate{X: x, Y: y}, zoomBucket, tile.Rotate0, tile.Crisp, 0)
	if err != nil {
		panic(err)
	}
	return id
}

func TestNewHasDefaultMargin(t *testing.T) {
	vp := New(0, 0, 0, 800, 600, tile.BucketZoom(100))
	require.Equal(t, uint32(DefaultMarginTiles), vp.MarginTiles)
}

func TestWithMarginTilesOverrides(t *testing.T) {
	vp := New(0, 0, 0, 800, 600, tile.BucketZoom(100)).WithMarginTiles(2)
	require.Equal(t, uint32(2), vp.MarginTiles)
}

func TestVisibleTileAtOrigin(t *testing.T) {
	vp := New(0, 0, 0, 800, 600, tile.BucketZoom(100))

	require.Equal(t, scheduler.PriorityVisible, PriorityForTile(tileAt(0, 0, 0, tile.BucketZoom(100)), vp))
	require.Equal(t, scheduler.PriorityVisible, PriorityForTile(tileAt(0, 1, 0, tile.BucketZoom(100)), vp))
	require.Equal(t, scheduler.PriorityVisible, PriorityForTile(tileAt(0, 0, 1, tile.BucketZoom(100)), vp))
}

func TestMarginTileAroundOffsetViewport(t *testing.T) {
	vp := New(0, 256, 256, 800, 600, tile.BucketZoom(100))

	require.Equal(t, scheduler.PriorityMargin, PriorityForTile(tileAt(0, 0, 0, tile.BucketZoom(100)), vp))
	require.Equal(t, scheduler.PriorityMargin, PriorityForTile(tileAt(0, 5, 0, tile.BucketZoom(100)), vp))
}

func TestAdjacentPagePriority(t *testing.T) {
	vp := New(5, 0, 0, 800, 600, tile.BucketZoom(100))

	require.Equal(t, scheduler.PriorityAdjacent, PriorityForTile(tileAt(4, 0, 0, tile.BucketZoom(100)), vp))
	require.Equal(t, scheduler.PriorityAdjacent, PriorityForTile(tileAt(6, 0, 0, tile.BucketZoom(100)), vp))
	require.Equal(t, scheduler.PriorityThumbnails, PriorityForTile(tileAt(10, 0, 0, tile.BucketZoom(100)), vp))
}

func TestDifferentZoomBucketIsThumbnails(t *testing.T) {
	vp := New(0, 0, 0, 800, 600, tile.BucketZoom(100))
	require.Equal(t, scheduler.PriorityThumbnails, PriorityForTile(tileAt(0, 0, 0, tile.BucketZoom(200)), vp))
}

func TestZoomedViewportVisibleAndMargin(t *testing.T) {
	vp := New(0, 0, 0, 800, 600, tile.BucketZoom(200))

	// At 200% zoom, tile edge in page coords is 128px.
	require.Equal(t, scheduler.PriorityVisible, PriorityForTile(tileAt(0, 0, 0, tile.BucketZoom(200)), vp))
	require.Equal(t, scheduler.PriorityVisible, PriorityForTile(tileAt(0, 6, 0, tile.BucketZoom(200)), vp))
	require.Equal(t, scheduler.PriorityMargin, PriorityForTile(tileAt(0, 7, 0, tile.BucketZoom(200)), vp))
}

func TestViewportOffsetOverlap(t *testing.T) {
	vp := New(0, 500, 300, 800, 600, tile.BucketZoom(100))

	// Tile (0,0) spans 0-256, viewport starts at 500; margin reaches back
	// to 500-3*256=-268 with the default margin, so it overlaps.
	require.Equal(t, scheduler.PriorityMargin, PriorityForTile(tileAt(0, 0, 0, tile.BucketZoom(100)), vp))

	// Tile (2,1) spans 512-768 x 256-512, overlapping the 500-1300 x
	// 300-900 viewport directly.
	require.Equal(t, scheduler.PriorityVisible, PriorityForTile(tileAt(0, 2, 1, tile.BucketZoom(100)), vp))
}

func TestThumbnailPriority(t *testing.T) {
	require.Equal(t, scheduler.PriorityMargin, PriorityForThumbnail(5, 5))
	require.Equal(t, scheduler.PriorityAdjacent, PriorityForThumbnail(4, 5))
	require.Equal(t, scheduler.PriorityAdjacent, PriorityForThumbnail(6, 5))
	require.Equal(t, scheduler.PriorityThumbnails, PriorityForThumbnail(10, 5))
}

func TestOCRPriorityAlwaysLowest(t *testing.T) {
	require.Equal(t, scheduler.PriorityOcr, PriorityForOCR(0))
	require.Equal(t, scheduler.PriorityOcr, PriorityForOCR(10))
}

func TestAdjacentPageWrapsAtZero(t *testing.T) {
	// Page 0's "previous" page wraps to 65535, matching the Rust
	// prototype's u16 wrapping_sub semantics; it should not be treated
	// as adjacent to any real page index.
	require.Equal(t, scheduler.PriorityThumbnails, PriorityForThumbnail(65535, 0))
	require.Equal(t, scheduler.PriorityAdjacent, PriorityForThumbnail(1, 0))
}
