package upgrader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vellumview/tilecore/budget"
	"github.com/vellumview/tilecore/gpucache"
	"github.com/vellumview/tilecore/scheduler"
	"github.com/vellumview/tilecore/tile"
	"github.com/vellumview/tilecore/viewport"
)

func visibleTile(t *testing.T) (tile.ID, viewport.Viewport) {
	t.Helper()
	zoomBucket := tile.BucketZoom(100)
	id, err := tile.New(0, tile.Coordinate{X: 0, Y: 0}, zoomBucket, tile.Rotate0, tile.Preview, 0)
	require.NoError(t, err)
	vp := viewport.New(0, 0, 0, 800, 600, zoomBucket)
	return id, vp
}

func TestOnPreviewLandedSchedulesCrispAtMarginPriority(t *testing.T) {
	sched := scheduler.NewJobScheduler()
	u := New(sched, gpucache.New(64<<20), nil)
	id, vp := visibleTile(t)

	u.OnPreviewLanded(id, vp, 100)

	jobs := sched.PendingJobsList()
	require.Len(t, jobs, 1)
	require.Equal(t, scheduler.PriorityMargin, jobs[0].Priority)
	require.Equal(t, scheduler.KindRenderTile, jobs[0].Type.Kind)
	require.False(t, jobs[0].Type.RenderTile.IsPreview)
	require.Equal(t, uint32(100), jobs[0].Type.RenderTile.ZoomLevel)
}

func TestOnPreviewLandedPassesThroughExactZoomPercentNotBucket(t *testing.T) {
	sched := scheduler.NewJobScheduler()
	u := New(sched, gpucache.New(64<<20), nil)
	id, vp := visibleTile(t)

	// 137 buckets to a different value than the raw percent; the scheduled
	// job must still carry the exact percent, not tile.BucketZoom(137).
	u.OnPreviewLanded(id, vp, 137)

	jobs := sched.PendingJobsList()
	require.Len(t, jobs, 1)
	require.Equal(t, uint32(137), jobs[0].Type.RenderTile.ZoomLevel)
}

func TestOnPreviewLandedIgnoresNonPreviewTiles(t *testing.T) {
	sched := scheduler.NewJobScheduler()
	u := New(sched, gpucache.New(64<<20), nil)
	zoomBucket := tile.BucketZoom(100)
	id, err := tile.New(0, tile.Coordinate{X: 0, Y: 0}, zoomBucket, tile.Rotate0, tile.Crisp, 0)
	require.NoError(t, err)
	vp := viewport.New(0, 0, 0, 800, 600, zoomBucket)

	u.OnPreviewLanded(id, vp, 100)
	require.Equal(t, 0, sched.Len())
}

func TestOnPreviewLandedIgnoresNonVisibleTiles(t *testing.T) {
	sched := scheduler.NewJobScheduler()
	u := New(sched, gpucache.New(64<<20), nil)
	zoomBucket := tile.BucketZoom(100)
	// Page 7 is not the viewport's current page (0) nor adjacent.
	id, err := tile.New(7, tile.Coordinate{X: 0, Y: 0}, zoomBucket, tile.Rotate0, tile.Preview, 0)
	require.NoError(t, err)
	vp := viewport.New(0, 0, 0, 800, 600, zoomBucket)

	u.OnPreviewLanded(id, vp, 100)
	require.Equal(t, 0, sched.Len())
}

func TestOnPreviewLandedSuppressedUnderHotPressure(t *testing.T) {
	sched := scheduler.NewJobScheduler()
	monitor := budget.NewMonitor(budget.Split{Total: 100})
	monitor.Sample(90, 0, 0) // 90% utilization -> Hot
	require.Equal(t, budget.Hot, monitor.State())

	u := New(sched, gpucache.New(64<<20), monitor)
	id, vp := visibleTile(t)

	u.OnPreviewLanded(id, vp, 100)
	require.Equal(t, 0, sched.Len())
	require.Equal(t, uint64(1), u.Stats().Suppressed)
}

func TestOnPreviewLandedSuppressedUnderCriticalPressure(t *testing.T) {
	sched := scheduler.NewJobScheduler()
	monitor := budget.NewMonitor(budget.Split{Total: 100})
	monitor.Sample(99, 0, 0)
	require.Equal(t, budget.Critical, monitor.State())

	u := New(sched, gpucache.New(64<<20), monitor)
	id, vp := visibleTile(t)

	u.OnPreviewLanded(id, vp, 100)
	require.Equal(t, 0, sched.Len())
	require.Equal(t, uint64(1), u.Stats().Suppressed)
}

func TestOnPreviewLandedNotSuppressedUnderNormalPressure(t *testing.T) {
	sched := scheduler.NewJobScheduler()
	monitor := budget.NewMonitor(budget.Split{Total: 100})
	monitor.Sample(10, 0, 0)
	require.Equal(t, budget.Normal, monitor.State())

	u := New(sched, gpucache.New(64<<20), monitor)
	id, vp := visibleTile(t)

	u.OnPreviewLanded(id, vp, 100)
	require.Equal(t, 1, sched.Len())
	require.Equal(t, uint64(0), u.Stats().Suppressed)
}

func TestOnCrispArrivedReplacesMatchingPreviewEntry(t *testing.T) {
	gpu := gpucache.New(64 << 20)
	zoomBucket := tile.BucketZoom(100)
	previewID, err := tile.New(0, tile.Coordinate{X: 0, Y: 0}, zoomBucket, tile.Rotate0, tile.Preview, 0)
	require.NoError(t, err)
	require.NoError(t, gpu.Put(previewID, gpucache.Texture{VRAMBytes: 1024, Profile: tile.Preview}, tile.Preview))

	u := New(scheduler.NewJobScheduler(), gpu, nil)
	crispID := previewID
	crispID.Profile = tile.Crisp

	err = u.OnCrispArrived(crispID, gpucache.Texture{VRAMBytes: 4096, Profile: tile.Crisp})
	require.NoError(t, err)

	require.False(t, gpu.Contains(previewID))
	require.True(t, gpu.Contains(crispID))
}

func TestOnCrispArrivedIgnoresNonCrispTextures(t *testing.T) {
	gpu := gpucache.New(64 << 20)
	u := New(scheduler.NewJobScheduler(), gpu, nil)
	zoomBucket := tile.BucketZoom(100)
	previewID, err := tile.New(0, tile.Coordinate{X: 0, Y: 0}, zoomBucket, tile.Rotate0, tile.Preview, 0)
	require.NoError(t, err)

	require.NoError(t, u.OnCrispArrived(previewID, gpucache.Texture{}))
	require.False(t, gpu.Contains(previewID))
}
