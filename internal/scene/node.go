package scene

import (
	"context"
	"image"
	"image/color"
	"image/draw"
)

// Node is one drawable element of a scene's graph. The set of variants
// is closed: containers (Group) and leaf shapes, all consumed through
// this capability surface. Nodes are owned by their scene and are
// created fresh on every Reset.
//
// offset is the sub-frame time offset in seconds, non-zero only during
// motion-blur sub-renders; nodes that animate continuously may use it to
// interpolate within the frame interval.
type Node interface {
	// Key is the node's stable identifier within its scene, generated
	// via Scene.NodeName.
	Key() string

	Render(ctx context.Context, dst draw.Image, offset float64) error

	Hide()
	Show()
	Visible() bool

	// WasDirty recomputes the node's layout if it was invalidated and
	// reports whether any work happened. The driver calls it in a
	// bounded loop after every scheduling step to absorb cascading
	// invalidation.
	WasDirty() bool
}

// Group is a container node. Adding or removing children invalidates
// its layout.
type Group struct {
	key      string
	hidden   bool
	dirty    bool
	children []Node
}

// NewGroup creates an empty visible group.
func NewGroup(key string) *Group {
	return &Group{key: key}
}

func (g *Group) Key() string { return g.key }

// Add appends a child node.
func (g *Group) Add(n Node) {
	g.children = append(g.children, n)
	g.dirty = true
}

// Remove removes a child node by identity. Unknown nodes are ignored.
func (g *Group) Remove(n Node) {
	for i, c := range g.children {
		if c == n {
			g.children = append(g.children[:i], g.children[i+1:]...)
			g.dirty = true
			return
		}
	}
}

// Children returns the child list in insertion order.
func (g *Group) Children() []Node {
	return g.children
}

func (g *Group) Hide()         { g.hidden = true }
func (g *Group) Show()         { g.hidden = false }
func (g *Group) Visible() bool { return !g.hidden }

// Render draws visible children in insertion order.
func (g *Group) Render(ctx context.Context, dst draw.Image, offset float64) error {
	if g.hidden {
		return nil
	}
	for _, c := range g.children {
		if !c.Visible() {
			continue
		}
		if err := c.Render(ctx, dst, offset); err != nil {
			return err
		}
	}
	return nil
}

// WasDirty reports whether this group or any child recomputed layout.
func (g *Group) WasDirty() bool {
	dirty := g.dirty
	g.dirty = false
	for _, c := range g.children {
		if c.WasDirty() {
			dirty = true
		}
	}
	return dirty
}

// Box is a solid-color rectangle, the minimal leaf shape. Routines
// mutate its rectangle between yields to animate it.
type Box struct {
	key    string
	hidden bool
	dirty  bool
	rect   image.Rectangle
	fill   color.Color
}

// NewBox creates a visible box covering rect.
func NewBox(key string, rect image.Rectangle, fill color.Color) *Box {
	return &Box{key: key, rect: rect, fill: fill, dirty: true}
}

func (b *Box) Key() string { return b.key }

// SetRect moves or resizes the box and invalidates its layout.
func (b *Box) SetRect(r image.Rectangle) {
	b.rect = r
	b.dirty = true
}

// Rect returns the box's current rectangle.
func (b *Box) Rect() image.Rectangle { return b.rect }

func (b *Box) Hide()         { b.hidden = true }
func (b *Box) Show()         { b.hidden = false }
func (b *Box) Visible() bool { return !b.hidden }

func (b *Box) Render(_ context.Context, dst draw.Image, _ float64) error {
	if b.hidden {
		return nil
	}
	draw.Draw(dst, b.rect, image.NewUniform(b.fill), image.Point{}, draw.Over)
	return nil
}

func (b *Box) WasDirty() bool {
	dirty := b.dirty
	b.dirty = false
	return dirty
}
