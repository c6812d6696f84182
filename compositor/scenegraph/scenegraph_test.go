package scenegraph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func approxEqual(t *testing.T, want, got float64) {
	t.Helper()
	require.Less(t, math.Abs(want-got), 1e-9)
}

func TestIdentityTransformIsNoOp(t *testing.T) {
	x, y := Identity().TransformPoint(3, 4)
	approxEqual(t, 3, x)
	approxEqual(t, 4, y)
}

func TestTranslateThenScaleMatchesScreenSpaceFormula(t *testing.T) {
	// screen = page * (zoom/100) - viewport_origin, translate-then-scale
	// order.
	zoom := 150.0
	originX, originY := 20.0, 30.0
	transform := Translate(-originX, -originY).Multiply(Scale(zoom/100, zoom/100))

	x, y := transform.TransformPoint(100, 200)
	approxEqual(t, 100*(zoom/100)-originX, x)
	approxEqual(t, 200*(zoom/100)-originY, y)
}

func TestMultiplyAppliesRightOperandFirst(t *testing.T) {
	m := Translate(10, 0).Multiply(Scale(2, 2))
	x, y := m.TransformPoint(1, 0)
	approxEqual(t, 12, x)
	approxEqual(t, 0, y)
}

func TestIsIdentity(t *testing.T) {
	require.True(t, Identity().IsIdentity())
	require.False(t, Translate(1, 0).IsIdentity())
}

func TestNodeWalkAccumulatesTransformDepthFirst(t *testing.T) {
	root := NewNode(Translate(10, 0))
	root.AddPrimitive(Primitive{Kind: KindRectangle, Rect: Rectangle{Rect: Rect{}}})

	child := NewNode(Translate(0, 5))
	child.AddPrimitive(Primitive{Kind: KindLine, Line: Line{}})
	root.AddChild(child)

	var seen []Affine
	root.Walk(func(accumulated Affine, p Primitive) {
		seen = append(seen, accumulated)
	})

	require.Len(t, seen, 2)
	x0, y0 := seen[0].TransformPoint(0, 0)
	approxEqual(t, 10, x0)
	approxEqual(t, 0, y0)

	x1, y1 := seen[1].TransformPoint(0, 0)
	approxEqual(t, 10, x1)
	approxEqual(t, 5, y1)
}

func TestNewSceneHasFourLayersInFixedOrder(t *testing.T) {
	s := NewScene()
	require.NotNil(t, s.Layer(LayerTiles))
	require.NotNil(t, s.Layer(LayerAnnotations))
	require.NotNil(t, s.Layer(LayerGuides))
	require.NotNil(t, s.Layer(LayerLabels))
}

func TestSetLayerSwapsNodeKeepingOrder(t *testing.T) {
	s := NewScene()
	fresh := NewNode(Identity())
	fresh.AddPrimitive(Primitive{Kind: KindTexturedQuad, Quad: TexturedQuad{TextureKey: 42}})

	s.SetLayer(LayerTiles, fresh)
	require.Same(t, fresh, s.Layer(LayerTiles))

	var order []Kind
	s.Walk(func(_ Affine, p Primitive) { order = append(order, p.Kind) })
	require.Equal(t, []Kind{KindTexturedQuad}, order)
}

func TestWalkVisitsLayersInOrder(t *testing.T) {
	s := NewScene()
	s.Layer(LayerTiles).AddPrimitive(Primitive{Kind: KindTexturedQuad})
	s.Layer(LayerAnnotations).AddPrimitive(Primitive{Kind: KindRectangle})
	s.Layer(LayerGuides).AddPrimitive(Primitive{Kind: KindLine})
	s.Layer(LayerLabels).AddPrimitive(Primitive{Kind: KindText})

	var order []Kind
	s.Walk(func(_ Affine, p Primitive) { order = append(order, p.Kind) })
	require.Equal(t, []Kind{KindTexturedQuad, KindRectangle, KindLine, KindText}, order)
}

func TestLayerString(t *testing.T) {
	require.Equal(t, "Tiles", LayerTiles.String())
	require.Equal(t, "Labels", LayerLabels.String())
}
