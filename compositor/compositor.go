// Package compositor owns the retained scene graph and rebuilds it from a
// per-frame Viewport plus non-blocking cache reads. It never
// renders a tile itself and never blocks the UI thread: all GPU cache
// lookups go through TryGet, and a miss is simply omitted from the Tiles
// layer rather than placeholdered — the scheduler will eventually populate
// it and a later frame will pick it up.
package compositor

import (
	"github.com/vellumview/tilecore/compositor/scenegraph"
	"github.com/vellumview/tilecore/gpucache"
	"github.com/vellumview/tilecore/scheduler"
	"github.com/vellumview/tilecore/tile"
	"github.com/vellumview/tilecore/viewport"
)

// Compositor rebuilds a scenegraph.Scene from viewport changes and
// collaborator-pushed annotations/guides/labels. Only the UI thread may
// call its methods: the scene graph is not shared across threads.
type Compositor struct {
	scene   *scenegraph.Scene
	gpu     *gpucache.Cache
	lastVP  viewport.Viewport
	hasLast bool

	// Rotation and DPRBucket identify the current document's render
	// parameters beyond what a Viewport carries; the compositor needs
	// them to form a full tile.ID for GPU cache lookups.
	Rotation  tile.Rotation
	DPRBucket uint16
}

// New creates a Compositor with an empty four-layer scene, reading
// textures from gpu.
func New(gpu *gpucache.Cache) *Compositor {
	return &Compositor{scene: scenegraph.NewScene(), gpu: gpu}
}

// Scene returns the current retained scene, for the host renderer to walk.
func (c *Compositor) Scene() *scenegraph.Scene {
	return c.scene
}

// Update runs per-frame change detection against vp and, if it differs
// from the last observed viewport, rebuilds the Tiles layer. It reports
// whether a rebuild happened ("dirty"); callers skip re-walking the scene
// when it returns false.
func (c *Compositor) Update(vp viewport.Viewport) bool {
	if c.hasLast && c.lastVP == vp {
		return false
	}
	c.lastVP = vp
	c.hasLast = true
	c.rebuildTiles(vp)
	return true
}

// rebuildTiles computes the visible tile set for vp, queries the GPU cache
// non-blockingly for each (preferring a Crisp texture over a Preview one),
// and emits a fresh Tiles layer node containing one TexturedQuad per hit.
// Misses are omitted, not placeholdered.
func (c *Compositor) rebuildTiles(vp viewport.Viewport) {
	node := scenegraph.NewNode(scenegraph.Identity())

	cols, rows := visibleTileRange(vp)
	for ty := rows.y0; ty <= rows.y1; ty++ {
		for tx := cols.x0; tx <= cols.x1; tx++ {
			coord := tile.Coordinate{X: tx, Y: ty}
			id := tile.ID{
				PageIndex:  vp.PageIndex,
				Coord:      coord,
				ZoomBucket: vp.ZoomBucket,
				Rotation:   c.Rotation,
				DPRBucket:  c.DPRBucket,
			}
			if viewport.PriorityForTile(id, vp) != scheduler.PriorityVisible {
				continue
			}

			tex, hitProfile, ok := c.lookupBestAvailable(id)
			if !ok {
				continue
			}
			id.Profile = hitProfile
			node.AddPrimitive(tileQuadPrimitive(id, tex, vp))
		}
	}

	c.scene.SetLayer(scenegraph.LayerTiles, node)
}

// lookupBestAvailable tries the Crisp texture for id first, falling back
// to Preview; both lookups are non-blocking.
func (c *Compositor) lookupBestAvailable(id tile.ID) (gpucache.Texture, tile.Profile, bool) {
	id.Profile = tile.Crisp
	if tex, ok := c.gpu.TryGet(id); ok {
		return tex, tile.Crisp, true
	}
	id.Profile = tile.Preview
	if tex, ok := c.gpu.TryGet(id); ok {
		return tex, tile.Preview, true
	}
	return gpucache.Texture{}, 0, false
}

// AddAnnotation appends an annotation primitive to the Annotations layer
// outside the per-frame rebuild.
func (c *Compositor) AddAnnotation(p scenegraph.Primitive) {
	c.scene.Layer(scenegraph.LayerAnnotations).AddPrimitive(p)
}

// AddGuide appends a guide primitive to the Guides layer.
func (c *Compositor) AddGuide(p scenegraph.Primitive) {
	c.scene.Layer(scenegraph.LayerGuides).AddPrimitive(p)
}

// AddLabel appends a pre-measured label primitive to the Labels layer.
func (c *Compositor) AddLabel(p scenegraph.Primitive) {
	c.scene.Layer(scenegraph.LayerLabels).AddPrimitive(p)
}

// InvalidateAll discards all retained state and forces the next Update to
// rebuild from scratch, regardless of whether the viewport changed. A host
// calls it from the InvalidationHook it passes to persistence.Recover.
func (c *Compositor) InvalidateAll() {
	c.scene = scenegraph.NewScene()
	c.hasLast = false
}

type tileRange struct{ x0, y0, x1, y1 int32 }

// visibleTileRange computes the tile coordinate range covering the
// viewport rectangle expanded by its margin, so rebuildTiles only has to
// consider tiles that could plausibly be Visible priority.
func visibleTileRange(vp viewport.Viewport) (cols, rows tileRange) {
	scale := bucketPercent(vp.ZoomBucket) / 100.0
	if scale <= 0 {
		return tileRange{}, tileRange{}
	}
	scaledEdge := float64(tile.Edge) / scale
	margin := scaledEdge * float64(vp.MarginTiles)

	x0 := int32((vp.X - margin) / scaledEdge)
	y0 := int32((vp.Y - margin) / scaledEdge)
	x1 := int32((vp.X + vp.Width + margin) / scaledEdge)
	y1 := int32((vp.Y + vp.Height + margin) / scaledEdge)
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	r := tileRange{x0, y0, x1, y1}
	return r, r
}

func bucketPercent(zoomBucket uint32) float64 {
	const bucketWidth = 5
	percent := zoomBucket * bucketWidth
	if percent == 0 {
		percent = bucketWidth
	}
	return float64(percent)
}

// tileQuadPrimitive builds the screen-space TexturedQuad for a cache hit,
// applying screen = page * (zoom/100) - viewport_origin.
// Tiles are emitted at their cached pixel dimensions without re-scaling:
// cache keys are bucketed by zoom so the cached dimensions already match.
func tileQuadPrimitive(id tile.ID, tex gpucache.Texture, vp viewport.Viewport) scenegraph.Primitive {
	scale := bucketPercent(vp.ZoomBucket) / 100.0
	pageX := float64(id.Coord.X) * float64(tile.Edge)
	pageY := float64(id.Coord.Y) * float64(tile.Edge)

	transform := scenegraph.Translate(-vp.X, -vp.Y).Multiply(scenegraph.Scale(scale, scale))
	screenX, screenY := transform.TransformPoint(pageX, pageY)

	return scenegraph.Primitive{
		Kind: scenegraph.KindTexturedQuad,
		Quad: scenegraph.TexturedQuad{
			Rect: scenegraph.Rect{
				X0: screenX,
				Y0: screenY,
				X1: screenX + float64(tex.Width),
				Y1: screenY + float64(tex.Height),
			},
			TextureKey: id.CacheKey(),
		},
	}
}
