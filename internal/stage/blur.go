package stage

import (
	"context"
	"fmt"
	"image"
)

// Accumulator implements multi-sample motion blur: a scene is rendered
// N times at N evenly spaced sub-frame time offsets and the samples are
// averaged into one output frame.
//
// Sub-renders are sequenced, never parallel, so accumulation order is
// deterministic given a deterministic renderer.
type Accumulator struct {
	samples int
	scratch *image.RGBA
	sum     []uint32
}

// NewAccumulator creates an accumulator for the given sample count and
// surface size in pixels. The count is clamped to a minimum of 2.
func NewAccumulator(samples int, size image.Point) *Accumulator {
	a := &Accumulator{}
	a.SetSamples(samples)
	a.Resize(size)
	return a
}

// SetSamples updates the sample count, clamped to a minimum of 2.
func (a *Accumulator) SetSamples(samples int) {
	if samples < 2 {
		samples = 2
	}
	a.samples = samples
}

// Samples returns the current sample count.
func (a *Accumulator) Samples() int { return a.samples }

// Resize reallocates the internal buffers for a new surface size.
// No-op when the size is unchanged.
func (a *Accumulator) Resize(size image.Point) {
	if a.scratch != nil && a.scratch.Bounds().Size() == size {
		return
	}
	a.scratch = image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	a.sum = make([]uint32, len(a.scratch.Pix))
}

// Render renders src at each sub-frame offset within one frame interval
// of frameSeconds and writes the per-pixel average into dst. dst must
// have the accumulator's configured size.
func (a *Accumulator) Render(ctx context.Context, src Source, dst *image.RGBA, frameSeconds float64) error {
	if len(dst.Pix) != len(a.scratch.Pix) {
		return fmt.Errorf("motion blur: destination size %v does not match accumulator size %v",
			dst.Bounds().Size(), a.scratch.Bounds().Size())
	}

	for i := range a.sum {
		a.sum[i] = 0
	}

	n := a.samples
	for i := 0; i < n; i++ {
		offset := frameSeconds * float64(i) / float64(n)
		for j := range a.scratch.Pix {
			a.scratch.Pix[j] = 0
		}
		if err := src.Render(ctx, a.scratch, offset); err != nil {
			return fmt.Errorf("motion blur sample %d/%d: %w", i+1, n, err)
		}
		for j, p := range a.scratch.Pix {
			a.sum[j] += uint32(p)
		}
	}

	un := uint32(n)
	for j := range dst.Pix {
		dst.Pix[j] = uint8((a.sum[j] + un/2) / un)
	}
	return nil
}
