// Package upgrader schedules the Preview-to-Crisp progressive upgrade
// path: once a Preview tile lands in the GPU cache for a tile the
// viewport currently considers Visible, queue a Crisp render for the same
// tile at a priority just below Visible, and swap the GPU cache entry when
// the Crisp texture arrives.
package upgrader

import (
	"sync/atomic"

	"github.com/vellumview/tilecore/budget"
	"github.com/vellumview/tilecore/gpucache"
	"github.com/vellumview/tilecore/scheduler"
	"github.com/vellumview/tilecore/tile"
	"github.com/vellumview/tilecore/viewport"
)

// Stats reports upgrader telemetry.
type Stats struct {
	Suppressed uint64
}

// Upgrader wires worker completions to Crisp re-render jobs.
type Upgrader struct {
	sched   *scheduler.JobScheduler
	gpu     *gpucache.Cache
	monitor *budget.Monitor

	suppressed atomic.Uint64
}

// New builds an Upgrader. monitor may be nil to disable Hot/Critical
// suppression (pressure is then always treated as Normal).
func New(sched *scheduler.JobScheduler, gpu *gpucache.Cache, monitor *budget.Monitor) *Upgrader {
	return &Upgrader{sched: sched, gpu: gpu, monitor: monitor}
}

// OnPreviewLanded is called after a Preview tile's texture has been
// inserted into the GPU cache. If the tile is within the current
// viewport's Visible set, it schedules a Crisp render for the identical
// tile coordinates at PriorityMargin (one step below Visible, so it
// upgrades promptly without preempting tiles newly entering view). While
// memory pressure is Hot or Critical, scheduling is suppressed and the
// suppression counter is incremented instead.
//
// zoomPercent is the true zoom percentage the tile was rendered at — id's
// own ZoomBucket is quantized for cache-key purposes and must not be
// passed to RenderTileParams.ZoomLevel, which every other job producer
// treats as the exact percentage.
func (u *Upgrader) OnPreviewLanded(id tile.ID, vp viewport.Viewport, zoomPercent uint32) {
	if id.Profile != tile.Preview {
		return
	}
	if viewport.PriorityForTile(id, vp) != scheduler.PriorityVisible {
		return
	}
	if u.isPressureSuppressed() {
		u.suppressed.Add(1)
		return
	}

	u.sched.Submit(scheduler.PriorityMargin, scheduler.Type{
		Kind: scheduler.KindRenderTile,
		RenderTile: scheduler.RenderTileParams{
			PageIndex: id.PageIndex,
			TileX:     uint32(id.Coord.X),
			TileY:     uint32(id.Coord.Y),
			ZoomLevel: zoomPercent,
			Rotation:  uint16(id.Rotation),
			IsPreview: false,
		},
	})
}

// OnCrispArrived is called once a Crisp texture for id has finished
// rendering. It removes the matching Preview entry (same page, coordinate,
// zoom, rotation and DPR bucket) before inserting the Crisp texture, so
// the quality-biased eviction in gpucache.Cache.Put never has to choose
// between the two itself.
func (u *Upgrader) OnCrispArrived(id tile.ID, tex gpucache.Texture) error {
	if id.Profile != tile.Crisp {
		return nil
	}

	previewID := id
	previewID.Profile = tile.Preview
	u.gpu.Remove(previewID)

	return u.gpu.Put(id, tex, tile.Preview)
}

func (u *Upgrader) isPressureSuppressed() bool {
	if u.monitor == nil {
		return false
	}
	switch u.monitor.State() {
	case budget.Hot, budget.Critical:
		return true
	default:
		return false
	}
}

// Stats returns the current suppression telemetry.
func (u *Upgrader) Stats() Stats {
	return Stats{Suppressed: u.suppressed.Load()}
}
