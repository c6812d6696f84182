// Package viewport translates viewport geometry into scheduling priorities.
// It holds no cache or scheduler state of its own: every
// function here is pure, taking a Viewport snapshot and a tile identity and
// returning the scheduler.Priority that tile's render job should carry.
package viewport

import (
	"github.com/vellumview/tilecore/scheduler"
	"github.com/vellumview/tilecore/tile"
)

// Viewport is the current on-screen window into a page, in page-pixel
// coordinates at the viewport's own zoom level.
type Viewport struct {
	PageIndex   uint16
	ZoomBucket  uint32
	X, Y        float64
	Width       float64
	Height      float64
	MarginTiles uint32
}

// DefaultMarginTiles is the margin ring width used when a Viewport doesn't
// set one explicitly (3 tile rows/columns, enough to prefetch ahead of a
// smooth scroll without over-rendering).
const DefaultMarginTiles = 3

// New builds a Viewport with DefaultMarginTiles.
func New(pageIndex uint16, x, y, width, height float64, zoomBucket uint32) Viewport {
	return Viewport{
		PageIndex:   pageIndex,
		ZoomBucket:  zoomBucket,
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		MarginTiles: DefaultMarginTiles,
	}
}

// WithMarginTiles returns a copy of v with MarginTiles overridden.
func (v Viewport) WithMarginTiles(n uint32) Viewport {
	v.MarginTiles = n
	return v
}

type rect struct {
	x0, y0, x1, y1 float64
}

func (r rect) intersects(o rect) bool {
	return r.x1 > o.x0 && r.x0 < o.x1 && r.y1 > o.y0 && r.y0 < o.y1
}

// PriorityForTile computes the scheduling priority for rendering the tile
// identified by id against the current viewport:
//
//  1. A tile on a different page or zoom bucket is Adjacent if the page is
//     within one of the viewport's page, else Thumbnails.
//  2. A same-page, same-zoom tile that intersects the viewport rectangle is
//     Visible.
//  3. Else, if it intersects the viewport expanded by MarginTiles scaled
//     tile edges in every direction, it is Margin.
//  4. Else Thumbnails.
func PriorityForTile(id tile.ID, vp Viewport) scheduler.Priority {
	if id.PageIndex != vp.PageIndex || id.ZoomBucket != vp.ZoomBucket {
		if isAdjacentPage(id.PageIndex, vp.PageIndex) {
			return scheduler.PriorityAdjacent
		}
		return scheduler.PriorityThumbnails
	}

	scale := bucketScale(vp.ZoomBucket)
	scaledEdge := float64(tile.Edge) / scale

	tx0 := float64(id.Coord.X) * scaledEdge
	ty0 := float64(id.Coord.Y) * scaledEdge
	tileRect := rect{tx0, ty0, tx0 + scaledEdge, ty0 + scaledEdge}

	viewRect := rect{vp.X, vp.Y, vp.X + vp.Width, vp.Y + vp.Height}
	if tileRect.intersects(viewRect) {
		return scheduler.PriorityVisible
	}

	margin := scaledEdge * float64(vp.MarginTiles)
	marginRect := rect{
		vp.X - margin, vp.Y - margin,
		vp.X + vp.Width + margin, vp.Y + vp.Height + margin,
	}
	if tileRect.intersects(marginRect) {
		return scheduler.PriorityMargin
	}

	return scheduler.PriorityThumbnails
}

// PriorityForThumbnail computes the priority for a page's thumbnail job:
// Margin for the current page, Adjacent within one page, Thumbnails
// otherwise.
func PriorityForThumbnail(pageIndex, viewportPageIndex uint16) scheduler.Priority {
	if pageIndex == viewportPageIndex {
		return scheduler.PriorityMargin
	}
	if isAdjacentPage(pageIndex, viewportPageIndex) {
		return scheduler.PriorityAdjacent
	}
	return scheduler.PriorityThumbnails
}

// PriorityForOCR is always the lowest priority: OCR runs only when the
// scheduler would otherwise be idle.
func PriorityForOCR(uint16) scheduler.Priority {
	return scheduler.PriorityOcr
}

func isAdjacentPage(pageIndex, viewportPageIndex uint16) bool {
	d := int(pageIndex) - int(viewportPageIndex)
	return d == 1 || d == -1
}

// bucketScale converts a zoom bucket (tile.BucketZoom output) back to a
// linear scale factor, inverse of tile.BucketZoom's rounding.
func bucketScale(zoomBucket uint32) float64 {
	const bucketWidth = 5
	percent := zoomBucket * bucketWidth
	if percent == 0 {
		percent = bucketWidth
	}
	return float64(percent) / 100.0
}
