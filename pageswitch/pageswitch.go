// Package pageswitch implements the page-switch fast path: try the cache,
// render a preview on miss, and fire prefetch for adjacent pages. It is
// the first stop for a user-driven page change and is built to never
// block the UI thread on the cache check.
package pageswitch

import (
	"context"
	"errors"
	"time"

	"github.com/vellumview/tilecore/diskcache"
	"github.com/vellumview/tilecore/ramcache"
	"github.com/vellumview/tilecore/scheduler"
	"github.com/vellumview/tilecore/tile"
	"github.com/vellumview/tilecore/tilerender"
	"github.com/vellumview/tilecore/viewport"
)

// ErrInvalidPageIndex is returned when the requested page index is out of
// range for the document.
var ErrInvalidPageIndex = errors.New("pageswitch: page index out of range")

// PageSwitchResult bundles everything a page switch produced.
type PageSwitchResult struct {
	DocumentID  string
	PageIndex   uint16
	Tiles       []tilerender.RenderedTile
	PageWidth   float64
	PageHeight  float64
	Zoom        uint32
	Rotation    tile.Rotation
	FromCache   bool
	IsPreview   bool
	ElapsedTime time.Duration
}

// PageSwitcher owns the collaborators needed to answer a page switch:
// the RAM and disk cache tiers it checks before rendering, and (if set) a
// scheduler to fire prefetch jobs for neighboring pages.
type PageSwitcher struct {
	RAM   *ramcache.Cache
	Disk  *diskcache.Cache
	Sched *scheduler.JobScheduler

	// VP, if set, has its PageIndex updated on every successful switch,
	// so the viewport prioritizer and compositor immediately see the
	// new current page.
	VP *viewport.Viewport

	// DPRBucket is the device pixel ratio bucket tiles are keyed under
	// for this switcher's display.
	DPRBucket uint16
}

// New builds a PageSwitcher. Sched and vp may be nil to disable prefetch
// and viewport tracking respectively.
func New(ram *ramcache.Cache, disk *diskcache.Cache, sched *scheduler.JobScheduler, vp *viewport.Viewport, dprBucket uint16) *PageSwitcher {
	return &PageSwitcher{RAM: ram, Disk: disk, Sched: sched, VP: vp, DPRBucket: dprBucket}
}

// SwitchToPage validates the page index, tries the cache at Crisp
// profile, and on any miss renders a Preview pass instead, firing
// adjacent-page prefetch before returning.
func (s *PageSwitcher) SwitchToPage(ctx context.Context, docID string, doc tilerender.Document, pageIndex uint16, zoomPercent uint32, rotation tile.Rotation) (PageSwitchResult, error) {
	return s.switchTo(ctx, docID, doc, pageIndex, zoomPercent, rotation, tile.Preview)
}

// UpgradeToCrisp performs the same flow with Profile=Crisp on both the
// cache check and the fallback render, and always marks the result
// non-preview.
func (s *PageSwitcher) UpgradeToCrisp(ctx context.Context, docID string, doc tilerender.Document, pageIndex uint16, zoomPercent uint32, rotation tile.Rotation) (PageSwitchResult, error) {
	result, err := s.switchTo(ctx, docID, doc, pageIndex, zoomPercent, rotation, tile.Crisp)
	if err != nil {
		return result, err
	}
	result.IsPreview = false
	return result, nil
}

// switchTo always checks the cache at Crisp profile, regardless of the
// caller's render profile, and on a miss renders at
// renderProfile — Preview for a plain page switch, Crisp for an explicit
// upgrade.
func (s *PageSwitcher) switchTo(ctx context.Context, docID string, doc tilerender.Document, pageIndex uint16, zoomPercent uint32, rotation tile.Rotation, renderProfile tile.Profile) (PageSwitchResult, error) {
	start := time.Now()

	if int(pageIndex) >= doc.PageCount() {
		return PageSwitchResult{}, ErrInvalidPageIndex
	}

	page, err := doc.Page(int(pageIndex))
	if err != nil {
		return PageSwitchResult{}, err
	}
	pageWidth, pageHeight, err := page.SizePoints(ctx)
	if err != nil {
		return PageSwitchResult{}, err
	}

	if s.VP != nil {
		s.VP.PageIndex = pageIndex
	}

	if cached, ok := s.tryCache(pageIndex, pageWidth, pageHeight, zoomPercent, rotation, tile.Crisp); ok {
		s.firePrefetch(doc, pageIndex, zoomPercent, rotation)
		return PageSwitchResult{
			DocumentID: docID, PageIndex: pageIndex, Tiles: cached,
			PageWidth: pageWidth, PageHeight: pageHeight, Zoom: zoomPercent, Rotation: rotation,
			FromCache: true, IsPreview: false, ElapsedTime: time.Since(start),
		}, nil
	}

	tiles, err := tilerender.RenderPageTiles(ctx, page, pageIndex, pageWidth, pageHeight, zoomPercent, rotation, renderProfile, s.DPRBucket)
	if err != nil {
		return PageSwitchResult{}, err
	}
	for _, t := range tiles {
		s.insert(t)
	}

	s.firePrefetch(doc, pageIndex, zoomPercent, rotation)

	return PageSwitchResult{
		DocumentID: docID, PageIndex: pageIndex, Tiles: tiles,
		PageWidth: pageWidth, PageHeight: pageHeight, Zoom: zoomPercent, Rotation: rotation,
		FromCache: false, IsPreview: renderProfile == tile.Preview, ElapsedTime: time.Since(start),
	}, nil
}

// tryCache attempts to assemble every tile in the page's grid from the RAM
// then disk tier, without blocking. It returns ok=false the moment any
// tile misses both tiers.
func (s *PageSwitcher) tryCache(pageIndex uint16, pageWidth, pageHeight float64, zoomPercent uint32, rotation tile.Rotation, profile tile.Profile) ([]tilerender.RenderedTile, bool) {
	cols, rows, err := tile.CalculateGrid(pageWidth, pageHeight, zoomPercent)
	if err != nil {
		return nil, false
	}
	zoomBucket := tile.BucketZoom(zoomPercent)

	tiles := make([]tilerender.RenderedTile, 0, cols*rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			id, err := tile.New(pageIndex, tile.Coordinate{X: int32(x), Y: int32(y)}, zoomBucket, rotation, profile, s.DPRBucket)
			if err != nil {
				return nil, false
			}

			if buf, ok := s.RAM.TryGet(id); ok {
				tiles = append(tiles, tilerender.RenderedTile{ID: id, Buf: buf})
				continue
			}
			if s.Disk != nil {
				if buf, ok := s.Disk.TryGet(id.CacheKey()); ok {
					s.RAM.Put(id, buf)
					tiles = append(tiles, tilerender.RenderedTile{ID: id, Buf: buf})
					continue
				}
			}
			return nil, false
		}
	}
	return tiles, true
}

func (s *PageSwitcher) insert(t tilerender.RenderedTile) {
	_ = s.RAM.Put(t.ID, t.Buf)
	if s.Disk != nil {
		_ = s.Disk.Put(t.ID.CacheKey(), t.Buf)
	}
}

// firePrefetch submits Preview RenderTile jobs at Adjacent priority for
// every tile on pageIndex±1 not already cached in RAM or disk. Clamped
// at document bounds; no-op without a scheduler.
func (s *PageSwitcher) firePrefetch(doc tilerender.Document, pageIndex uint16, zoomPercent uint32, rotation tile.Rotation) {
	if s.Sched == nil {
		return
	}

	for _, delta := range [2]int{-1, 1} {
		neighbor := int(pageIndex) + delta
		if neighbor < 0 || neighbor >= doc.PageCount() {
			continue
		}
		s.prefetchPage(doc, uint16(neighbor), zoomPercent, rotation)
	}
}

func (s *PageSwitcher) prefetchPage(doc tilerender.Document, pageIndex uint16, zoomPercent uint32, rotation tile.Rotation) {
	page, err := doc.Page(int(pageIndex))
	if err != nil {
		return
	}
	pageWidth, pageHeight, err := page.SizePoints(context.Background())
	if err != nil {
		return
	}
	cols, rows, err := tile.CalculateGrid(pageWidth, pageHeight, zoomPercent)
	if err != nil {
		return
	}
	zoomBucket := tile.BucketZoom(zoomPercent)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			id, err := tile.New(pageIndex, tile.Coordinate{X: int32(x), Y: int32(y)}, zoomBucket, rotation, tile.Preview, s.DPRBucket)
			if err != nil {
				continue
			}
			if s.RAM.Contains(id) {
				continue
			}
			if s.Disk != nil && s.Disk.Contains(id.CacheKey()) {
				continue
			}
			s.Sched.Submit(scheduler.PriorityAdjacent, scheduler.Type{
				Kind: scheduler.KindRenderTile,
				RenderTile: scheduler.RenderTileParams{
					PageIndex: pageIndex,
					TileX:     uint32(x),
					TileY:     uint32(y),
					ZoomLevel: zoomPercent,
					Rotation:  uint16(rotation),
					IsPreview: true,
				},
			})
		}
	}
}
