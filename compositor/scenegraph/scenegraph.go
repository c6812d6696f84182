// Package scenegraph implements the compositor's retained scene tree:
// nodes carrying an affine transform, a primitive list, and ordered
// children, shared by reference across frames. It favors a plain
// primitive tree over a path-encoding model, since this compositor only
// ever emits textured quads, rectangles, lines, and text — never vector
// paths.
package scenegraph

// Rect is an axis-aligned rectangle in whatever space its owning
// primitive is defined in (page or screen, depending on context).
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Width returns the rectangle's width.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the rectangle's height.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Kind tags which field of a Primitive is populated.
type Kind int

const (
	KindTexturedQuad Kind = iota
	KindRectangle
	KindLine
	KindText
)

// TexturedQuad references a GPU-cached texture by its tile cache key,
// placed at Rect in the node's local space. The compositor emits one of
// these per visible tile cache hit.
type TexturedQuad struct {
	Rect       Rect
	TextureKey uint64
}

// Rectangle is a filled, flat-colored rectangle primitive (RGBA 0-255).
type Rectangle struct {
	Rect       Rect
	R, G, B, A uint8
}

// Line is a straight line segment primitive.
type Line struct {
	X0, Y0, X1, Y1 float64
	R, G, B, A     uint8
	Width          float64
}

// Text is a pre-shaped text primitive: Bounds is measured once at
// emission time (compositor/labeltext), not recomputed per frame.
type Text struct {
	X, Y   float64
	Bounds Rect
	String string
}

// Primitive is a tagged variant over the four primitive kinds the host
// renderer understands.
type Primitive struct {
	Kind Kind
	Quad TexturedQuad
	Rect Rectangle
	Line Line
	Text Text
}

// Node is one element of the retained scene tree: a local transform, a
// primitive list, and ordered children. Children may be shared by
// reference across multiple frames' graphs; a rebuild swaps in a fresh
// Node rather than mutating a shared one in place.
type Node struct {
	Transform  Affine
	Primitives []Primitive
	Children   []*Node
}

// NewNode creates an empty node with the given local transform.
func NewNode(transform Affine) *Node {
	return &Node{Transform: transform}
}

// AddPrimitive appends a primitive to the node.
func (n *Node) AddPrimitive(p Primitive) {
	n.Primitives = append(n.Primitives, p)
}

// AddChild appends a child node, preserving prior child order.
func (n *Node) AddChild(c *Node) {
	n.Children = append(n.Children, c)
}

// Visitor is called once per primitive during a Walk, with the transform
// accumulated from the root down to (and including) the owning node.
type Visitor func(accumulated Affine, p Primitive)

// Walk traverses the tree depth-first in child order, invoking visit for
// every primitive with its node's accumulated transform. The host
// renderer walks the tree this way, emitting primitives per node after
// applying the accumulated transform.
func (n *Node) Walk(visit Visitor) {
	n.walk(Identity(), visit)
}

func (n *Node) walk(parent Affine, visit Visitor) {
	if n == nil {
		return
	}
	accumulated := parent.Multiply(n.Transform)
	for _, p := range n.Primitives {
		visit(accumulated, p)
	}
	for _, c := range n.Children {
		c.walk(accumulated, visit)
	}
}

// Layer identifies one of the scene's four fixed top-level layers.
type Layer int

const (
	LayerTiles Layer = iota
	LayerAnnotations
	LayerGuides
	LayerLabels
)

// String implements fmt.Stringer.
func (l Layer) String() string {
	switch l {
	case LayerTiles:
		return "Tiles"
	case LayerAnnotations:
		return "Annotations"
	case LayerGuides:
		return "Guides"
	case LayerLabels:
		return "Labels"
	default:
		return "Unknown"
	}
}

// layerCount is the fixed number of top-level layers; Scene's root always
// has exactly this many children, in Layer order.
const layerCount = 4

// Scene is the retained tree: a root node whose children are the four
// fixed layers in order. Layer draw order follows the root's children
// order implicitly.
type Scene struct {
	root *Node
}

// NewScene builds an empty scene with four empty layer nodes at identity
// transform, in fixed Tiles/Annotations/Guides/Labels order.
func NewScene() *Scene {
	root := NewNode(Identity())
	for i := 0; i < layerCount; i++ {
		root.AddChild(NewNode(Identity()))
	}
	return &Scene{root: root}
}

// Layer returns the current node for the given layer.
func (s *Scene) Layer(l Layer) *Node {
	return s.root.Children[l]
}

// SetLayer swaps in a freshly built node for the given layer, keeping its
// position in the root's child order. Rebuilding a layer means
// constructing a fresh node and swapping it in.
func (s *Scene) SetLayer(l Layer, node *Node) {
	s.root.Children[l] = node
}

// Walk traverses the whole scene depth-first, layer order first.
func (s *Scene) Walk(visit Visitor) {
	s.root.Walk(visit)
}
