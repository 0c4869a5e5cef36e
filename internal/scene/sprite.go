package scene

import (
	"context"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Sprite draws a raster image scaled into its rectangle. The image is
// typically produced by an awaited asset load; until one is set the
// sprite renders nothing.
type Sprite struct {
	key    string
	hidden bool
	dirty  bool
	rect   image.Rectangle
	img    image.Image
}

// NewSprite creates a visible sprite covering rect with no image yet.
func NewSprite(key string, rect image.Rectangle) *Sprite {
	return &Sprite{key: key, rect: rect, dirty: true}
}

func (sp *Sprite) Key() string { return sp.key }

// SetImage assigns the sprite's image and invalidates its layout.
func (sp *Sprite) SetImage(img image.Image) {
	sp.img = img
	sp.dirty = true
}

// SetRect moves or resizes the sprite and invalidates its layout.
func (sp *Sprite) SetRect(r image.Rectangle) {
	sp.rect = r
	sp.dirty = true
}

func (sp *Sprite) Hide()         { sp.hidden = true }
func (sp *Sprite) Show()         { sp.hidden = false }
func (sp *Sprite) Visible() bool { return !sp.hidden }

// Render scales the image into the sprite's rectangle. CatmullRom is
// slower than the approximate scalers but deterministic and artifact
// free, which replayable frames require.
func (sp *Sprite) Render(_ context.Context, dst draw.Image, _ float64) error {
	if sp.hidden || sp.img == nil {
		return nil
	}
	xdraw.CatmullRom.Scale(dst, sp.rect, sp.img, sp.img.Bounds(), xdraw.Over, nil)
	return nil
}

func (sp *Sprite) WasDirty() bool {
	dirty := sp.dirty
	sp.dirty = false
	return dirty
}
