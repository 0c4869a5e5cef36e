// Package stage implements the frame compositor.
//
// A Stage owns three drawing surfaces: the current scene's buffer, the
// previous scene's buffer, and the final output. Render draws both
// scenes for one frame and composites them into the final surface,
// honoring the current scene's previous-on-top flag and an optional
// background fill. All drawing into the final surface for one Render
// call is a single atomic logical step: the returned image is complete
// and remains valid until the next call.
//
// Configuration errors degrade gracefully: an unknown color space or an
// unsupported motion-blur request is logged and ignored rather than
// failing the render.
package stage

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/stagehand-io/stagehand/internal/timing"
)

// ColorSpace tags the color space the surfaces are created for.
type ColorSpace string

const (
	ColorSpaceSRGB      ColorSpace = "srgb"
	ColorSpaceDisplayP3 ColorSpace = "display-p3"
)

// Valid reports whether the color space is one the stage supports.
func (c ColorSpace) Valid() bool {
	return c == ColorSpaceSRGB || c == ColorSpaceDisplayP3
}

// Source is a renderable scene as the compositor sees it. Implemented
// by *scene.Scene; tests substitute counting doubles.
//
// offset is the sub-frame time offset in seconds used for motion-blur
// sub-renders; a plain render passes 0.
type Source interface {
	Render(ctx context.Context, dst draw.Image, offset float64) error
	Visible() bool
	Opacity() float64
	PreviousOnTop() bool
}

// Options configures a Stage. Zero-valued fields keep their current
// setting, so a caller may reconfigure just the piece that changed.
type Options struct {
	// ColorSpace selects the surface color space. Changing it
	// recreates all three surfaces.
	ColorSpace ColorSpace
	// Size is the target logical size. Surfaces are Size * Scale.
	Size image.Point
	// Scale is the resolution scale factor.
	Scale float64
	// Rate is the playback frame rate, needed to place motion-blur
	// sub-samples within the frame interval.
	Rate timing.Rate
	// MotionBlur is the sample count. Blur is active only when the
	// count is at least 2 and the runtime supports accumulation.
	MotionBlur int
	// Background is an optional fill: a hex color string such as
	// "#1a1a2e", or empty for none.
	Background string
}

// Option configures stage construction.
type Option func(*Stage)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stage) { s.logger = l }
}

// WithSupportProbe overrides the motion-blur capability probe.
// Tests use it to exercise the unsupported path.
func WithSupportProbe(probe func() bool) Option {
	return func(s *Stage) { s.supports = probe }
}

// Stage owns the drawing surfaces and composites one frame per Render
// call. Constructed once and reconfigured, not recreated, as settings
// change. Not safe for concurrent use.
type Stage struct {
	logger   *slog.Logger
	supports func() bool

	colorSpace ColorSpace
	size       image.Point
	scale      float64
	rate       timing.Rate
	background color.Color // nil means no fill
	samples    int

	final    *image.RGBA
	current  *image.RGBA
	previous *image.RGBA

	blur        *Accumulator
	blurEnabled bool
}

// New creates a Stage with default settings: sRGB, 640x360 at scale 1,
// 30fps, no background, no motion blur.
func New(opts ...Option) *Stage {
	s := &Stage{
		logger:     slog.Default(),
		supports:   CheckSupport,
		colorSpace: ColorSpaceSRGB,
		size:       image.Pt(640, 360),
		scale:      1,
		rate:       30,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.allocate()
	return s
}

// Configure applies new settings. Surfaces are recreated when the color
// space changes and resized when the logical size or scale changes. The
// motion-blur accumulator is constructed at most once and kept across
// reconfigurations; later calls resize it and update its sample count.
func (s *Stage) Configure(opts Options) {
	realloc := false

	if opts.ColorSpace != "" && opts.ColorSpace != s.colorSpace {
		if !opts.ColorSpace.Valid() {
			s.logger.Warn("unsupported color space, keeping current",
				"requested", string(opts.ColorSpace),
				"current", string(s.colorSpace))
		} else {
			s.colorSpace = opts.ColorSpace
			realloc = true
		}
	}

	if opts.Size != (image.Point{}) && opts.Size != s.size {
		if opts.Size.X <= 0 || opts.Size.Y <= 0 {
			s.logger.Warn("invalid stage size, keeping current", "requested", opts.Size.String())
		} else {
			s.size = opts.Size
			realloc = true
		}
	}
	if opts.Scale > 0 && opts.Scale != s.scale {
		s.scale = opts.Scale
		realloc = true
	}
	if opts.Rate > 0 {
		s.rate = opts.Rate
	}

	if realloc {
		s.allocate()
	}

	s.background = parseBackground(opts.Background, s.logger)

	if opts.MotionBlur > 0 {
		s.samples = opts.MotionBlur
	}
	s.configureBlur()
}

// Render produces the final composited frame for the current scene and,
// during a transition, the previous scene.
func (s *Stage) Render(ctx context.Context, current, previous Source) (*image.RGBA, error) {
	if current == nil {
		return nil, fmt.Errorf("stage: current scene is required")
	}

	previousOnTop := false
	if previous != nil {
		previousOnTop = current.PreviousOnTop()
	}

	clearSurface(s.previous)
	if previous != nil && previous.Visible() {
		if err := s.renderSource(ctx, previous, s.previous); err != nil {
			return nil, fmt.Errorf("render previous scene: %w", err)
		}
	}

	clearSurface(s.current)
	if current.Visible() {
		if err := s.renderSource(ctx, current, s.current); err != nil {
			return nil, fmt.Errorf("render current scene: %w", err)
		}
	}

	clearSurface(s.final)
	if s.background != nil {
		draw.Draw(s.final, s.final.Bounds(), image.NewUniform(s.background), image.Point{}, draw.Src)
	}

	if previousOnTop {
		s.compositeLayer(s.current, current.Opacity())
		if previous != nil {
			s.compositeLayer(s.previous, previous.Opacity())
		}
	} else {
		if previous != nil {
			s.compositeLayer(s.previous, previous.Opacity())
		}
		s.compositeLayer(s.current, current.Opacity())
	}

	return s.final, nil
}

// Final returns the final output surface. Valid until the next Render.
func (s *Stage) Final() *image.RGBA { return s.final }

// MotionBlurActive reports whether renders run through the accumulator.
func (s *Stage) MotionBlurActive() bool { return s.blurEnabled }

// SurfaceSize returns the pixel size of the surfaces (size * scale).
func (s *Stage) SurfaceSize() image.Point {
	return image.Pt(scaled(s.size.X, s.scale), scaled(s.size.Y, s.scale))
}

func (s *Stage) renderSource(ctx context.Context, src Source, dst *image.RGBA) error {
	if s.blurEnabled {
		return s.blur.Render(ctx, src, dst, s.rate.FrameDuration())
	}
	return src.Render(ctx, dst, 0)
}

func (s *Stage) compositeLayer(layer *image.RGBA, opacity float64) {
	if opacity <= 0 {
		return
	}
	if opacity >= 1 {
		draw.Draw(s.final, s.final.Bounds(), layer, image.Point{}, draw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)})
	draw.DrawMask(s.final, s.final.Bounds(), layer, image.Point{}, mask, image.Point{}, draw.Over)
}

func (s *Stage) allocate() {
	px := s.SurfaceSize()
	r := image.Rect(0, 0, px.X, px.Y)
	s.final = image.NewRGBA(r)
	s.current = image.NewRGBA(r)
	s.previous = image.NewRGBA(r)
	if s.blur != nil {
		s.blur.Resize(px)
	}
}

func (s *Stage) configureBlur() {
	enable := s.samples > 1 && s.supports()
	if !enable {
		if s.blurEnabled {
			s.logger.Debug("motion blur disabled", "samples", s.samples)
		}
		s.blurEnabled = false
		return
	}
	if s.blur == nil {
		s.blur = NewAccumulator(s.samples, s.SurfaceSize())
	} else {
		s.blur.SetSamples(s.samples)
		s.blur.Resize(s.SurfaceSize())
	}
	s.blurEnabled = true
}

func scaled(v int, scale float64) int {
	out := int(float64(v)*scale + 0.5)
	if out < 1 {
		out = 1
	}
	return out
}

func clearSurface(img *image.RGBA) {
	for i := range img.Pix {
		img.Pix[i] = 0
	}
}

// parseBackground interprets the configured background fill. Empty means
// none; an unparsable value is logged and treated as none.
func parseBackground(raw string, logger *slog.Logger) color.Color {
	if raw == "" || raw == "none" {
		return nil
	}
	c, err := colorful.Hex(raw)
	if err != nil {
		logger.Warn("invalid background color, using none", "value", raw, "error", err)
		return nil
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
