package scene

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var red = color.RGBA{R: 255, A: 255}

func TestGroup_RenderOrderAndVisibility(t *testing.T) {
	g := NewGroup("root")
	bottom := NewBox("bottom", image.Rect(0, 0, 2, 2), red)
	top := NewBox("top", image.Rect(0, 0, 2, 2), color.RGBA{B: 255, A: 255})
	g.Add(bottom)
	g.Add(top)

	dst := image.NewRGBA(image.Rect(0, 0, 2, 2))
	require.NoError(t, g.Render(context.Background(), dst, 0))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, dst.RGBAAt(0, 0), "later child draws on top")

	top.Hide()
	dst = image.NewRGBA(image.Rect(0, 0, 2, 2))
	require.NoError(t, g.Render(context.Background(), dst, 0))
	assert.Equal(t, red, dst.RGBAAt(0, 0), "hidden child skipped")

	g.Hide()
	dst = image.NewRGBA(image.Rect(0, 0, 2, 2))
	require.NoError(t, g.Render(context.Background(), dst, 0))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(0, 0), "hidden group draws nothing")
}

func TestGroup_DirtyPropagation(t *testing.T) {
	g := NewGroup("root")
	box := NewBox("box", image.Rect(0, 0, 1, 1), red)
	g.Add(box)

	// Add dirtied the group, NewBox dirtied the box.
	assert.True(t, g.WasDirty())
	assert.False(t, g.WasDirty(), "settles after one pass")

	box.SetRect(image.Rect(1, 1, 2, 2))
	assert.True(t, g.WasDirty(), "child invalidation bubbles up")
	assert.False(t, g.WasDirty())

	g.Remove(box)
	assert.True(t, g.WasDirty())
	assert.Empty(t, g.Children())
}

func TestGroup_RemoveUnknownIgnored(t *testing.T) {
	g := NewGroup("root")
	g.Add(NewBox("a", image.Rectangle{}, red))
	g.WasDirty()

	g.Remove(NewBox("b", image.Rectangle{}, red))
	assert.Len(t, g.Children(), 1)
	assert.False(t, g.WasDirty())
}

func TestGroup_RenderErrorStops(t *testing.T) {
	g := NewGroup("root")
	boom := errors.New("boom")
	g.Add(&failingNode{err: boom})
	second := NewBox("after", image.Rect(0, 0, 1, 1), red)
	g.Add(second)

	dst := image.NewRGBA(image.Rect(0, 0, 1, 1))
	err := g.Render(context.Background(), dst, 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(0, 0), "nothing after the failure drew")
}

func TestSprite_ScalesImageIntoRect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			src.SetRGBA(x, y, red)
		}
	}

	sp := NewSprite("sprite", image.Rect(0, 0, 4, 4))
	sp.SetImage(src)

	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	require.NoError(t, sp.Render(context.Background(), dst, 0))
	assert.Equal(t, red, dst.RGBAAt(1, 1))
	assert.Equal(t, red, dst.RGBAAt(3, 3), "source scaled up to cover the rect")
}

func TestSprite_NoImageRendersNothing(t *testing.T) {
	sp := NewSprite("sprite", image.Rect(0, 0, 2, 2))
	dst := image.NewRGBA(image.Rect(0, 0, 2, 2))
	require.NoError(t, sp.Render(context.Background(), dst, 0))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(0, 0))
}

func TestSprite_DirtyOnMutation(t *testing.T) {
	sp := NewSprite("sprite", image.Rect(0, 0, 2, 2))
	assert.True(t, sp.WasDirty())
	assert.False(t, sp.WasDirty())

	sp.SetImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assert.True(t, sp.WasDirty())

	sp.SetRect(image.Rect(0, 0, 3, 3))
	assert.True(t, sp.WasDirty())
}

type failingNode struct {
	err error
}

func (f *failingNode) Key() string   { return "failing" }
func (f *failingNode) Hide()         {}
func (f *failingNode) Show()         {}
func (f *failingNode) Visible() bool { return true }
func (f *failingNode) WasDirty() bool {
	return false
}

func (f *failingNode) Render(_ context.Context, _ draw.Image, _ float64) error {
	return f.err
}
