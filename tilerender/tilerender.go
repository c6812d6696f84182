// Package tilerender drives the external PDF engine to produce tile
// pixmaps: grid geometry, per-tile rasterization, and the Preview/Crisp
// fidelity split. It is the single place in the module that converts the
// PDF engine's native BGRA byte order into the canonical RGBA
// pixmap.Buffer layout.
package tilerender

import (
	"context"
	"fmt"

	xdraw "golang.org/x/image/draw"

	"github.com/vellumview/tilecore/pixmap"
	"github.com/vellumview/tilecore/tile"
)

// PreviewDivisor is the linear downscale factor applied to a tile's pixel
// dimensions when rendering at tile.Preview profile.
const PreviewDivisor = 2

// TextSpan is one run of extracted text with its bounding box in page
// points, as returned by Page.ExtractTextSpans.
type TextSpan struct {
	Text string
	X, Y float64
	W, H float64
}

// PDFEngine opens documents from a path or in-memory bytes.
type PDFEngine interface {
	Open(ctx context.Context, path string) (Document, error)
	FromBytes(ctx context.Context, data []byte) (Document, error)
}

// Document is an open PDF document.
type Document interface {
	PageCount() int
	Page(i int) (Page, error)
}

// Page is a single page of a Document.
type Page interface {
	// RenderRGBA rasterizes the full page at the given pixel dimensions.
	// Despite the name, the engine returns BGRA byte order; bgraToRGBA
	// converts it at the tilerender boundary.
	RenderRGBA(ctx context.Context, widthPx, heightPx int) ([]byte, error)
	ExtractText(ctx context.Context) (string, error)
	ExtractTextSpans(ctx context.Context) ([]TextSpan, error)
	// SizePoints returns the page's native dimensions in PDF points at
	// rotation 0, the unit CalculateTileGrid and RenderPageTiles expect.
	SizePoints(ctx context.Context) (widthPts, heightPts float64, err error)
}

// RenderedTile is one tile's pixel data, tagged with its identity.
type RenderedTile struct {
	ID  tile.ID
	Buf *pixmap.Buffer
}

// CalculateTileGrid derives the (columns, rows) grid for a page of the
// given size in PDF points at the given zoom percentage. Thin wrapper over
// tile.CalculateGrid so callers working in this package don't need to
// import tile directly for the common case.
func CalculateTileGrid(pageWidthPts, pageHeightPts float64, zoomPercent uint32) (cols, rows int, err error) {
	return tile.CalculateGrid(pageWidthPts, pageHeightPts, zoomPercent)
}

// RenderPageTiles rasterizes every tile in the page's grid at the given
// zoom, rotation and profile. It renders the full page once at the
// profile-adjusted pixel dimensions, then carves out each tile's
// subregion. Rotation is the caller's responsibility to have
// already applied via the page dimensions passed in; this function does
// not rotate pixels itself.
//
// Fails fast: any PDF engine error aborts and returns no tiles, never a
// partial list.
func RenderPageTiles(ctx context.Context, page Page, pageIndex uint16, pageWidthPts, pageHeightPts float64, zoomPercent uint32, rotation tile.Rotation, profile tile.Profile, dprBucket uint16) ([]RenderedTile, error) {
	cols, rows, err := tile.CalculateGrid(pageWidthPts, pageHeightPts, zoomPercent)
	if err != nil {
		return nil, err
	}

	scale := float64(zoomPercent) / 100.0
	fullWidth := int(pageWidthPts * scale)
	fullHeight := int(pageHeightPts * scale)

	renderWidth, renderHeight := fullWidth, fullHeight
	if profile == tile.Preview {
		renderWidth = divCeil(fullWidth, PreviewDivisor)
		renderHeight = divCeil(fullHeight, PreviewDivisor)
	}

	raw, err := page.RenderRGBA(ctx, renderWidth, renderHeight)
	if err != nil {
		return nil, fmt.Errorf("tilerender: render page %d: %w", pageIndex, err)
	}
	if len(raw) != renderWidth*renderHeight*4 {
		return nil, fmt.Errorf("tilerender: page %d: engine returned %d bytes, want %d", pageIndex, len(raw), renderWidth*renderHeight*4)
	}
	rendered := bgraToRGBA(renderWidth, renderHeight, raw)

	// Preview tiles are carved at a proportionally smaller edge so their
	// byte footprint (and RAM/GPU cache cost) stays ~1/PreviewDivisor^2
	// of Crisp, rather than rendering full-size and discarding detail.
	tileEdge := tile.Edge
	previewEdge := tileEdge
	if profile == tile.Preview {
		previewEdge = divCeil(tileEdge, PreviewDivisor)
	}

	zoomBucket := tile.BucketZoom(zoomPercent)
	tiles := make([]RenderedTile, 0, cols*rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var buf *pixmap.Buffer
			if profile == tile.Preview {
				buf = pixmap.SubRegion(rendered, x*previewEdge, y*previewEdge, previewEdge, previewEdge)
			} else {
				buf = pixmap.SubRegion(rendered, x*tileEdge, y*tileEdge, tileEdge, tileEdge)
			}

			id, err := tile.New(pageIndex, tile.Coordinate{X: int32(x), Y: int32(y)}, zoomBucket, rotation, profile, dprBucket)
			if err != nil {
				return nil, err
			}
			tiles = append(tiles, RenderedTile{ID: id, Buf: buf})
		}
	}
	return tiles, nil
}

// bgraToRGBA converts a BGRA byte buffer (the PDF engine's native output)
// into a pixmap.Buffer in canonical RGBA order. This is the module's one
// and only BGRA/RGBA conversion boundary.
func bgraToRGBA(width, height int, bgra []byte) *pixmap.Buffer {
	out := make([]byte, len(bgra))
	for i := 0; i+3 < len(bgra); i += 4 {
		out[i+0] = bgra[i+2]
		out[i+1] = bgra[i+1]
		out[i+2] = bgra[i+0]
		out[i+3] = bgra[i+3]
	}
	return pixmap.FromBytes(width, height, out)
}

func divCeil(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// RenderThumbnail produces a small strip-view thumbnail for a page by
// downscaling an already-rendered full-page raster, avoiding a second PDF
// engine invocation for GenerateThumbnail jobs. The longer edge is
// scaled to maxEdgePx; the other edge keeps the source aspect ratio.
func RenderThumbnail(full *pixmap.Buffer, maxEdgePx int) *pixmap.Buffer {
	w, h := full.Width(), full.Height()
	if w <= 0 || h <= 0 || maxEdgePx <= 0 {
		return pixmap.New(0, 0)
	}

	dstW, dstH := w, h
	if w >= h {
		dstW = maxEdgePx
		dstH = divCeil(h*maxEdgePx, w)
	} else {
		dstH = maxEdgePx
		dstW = divCeil(w*maxEdgePx, h)
	}
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := pixmap.New(dstW, dstH)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), full, full.Bounds(), xdraw.Src, nil)
	return dst
}
