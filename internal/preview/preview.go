// Package preview renders the interactive before/after comparison frame.
//
// The original and processed halves are cut from the same decoded frame, so
// for video both sides always show the same timestamp.
package preview

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"media-filter/internal/compare"
	"media-filter/internal/filter"
	"media-filter/internal/logging"
	"media-filter/internal/media"
	"media-filter/internal/metrics"
	"media-filter/internal/session"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Quality is the JPEG quality of preview frames.
const Quality = 85

var (
	dividerColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	handleFill   = color.NRGBA{R: 255, G: 255, B: 255, A: 230}
	handleRing   = color.NRGBA{R: 32, G: 32, B: 32, A: 255}
)

// Options control a single render.
type Options struct {
	// At selects the video frame. Ignored for images.
	At time.Duration
	// MaxWidth bounds the rendered width; 0 uses the renderer default.
	MaxWidth int
}

// FrameSource decodes the source frame of an asset.
type FrameSource interface {
	Frame(ctx context.Context, asset session.Asset, at time.Duration) (image.Image, error)
}

type mediaFrames struct{}

func (mediaFrames) Frame(ctx context.Context, asset session.Asset, at time.Duration) (image.Image, error) {
	if asset.IsVideo() {
		return media.ExtractFrame(ctx, asset.Path, at)
	}
	return media.LoadImage(ctx, asset.Path)
}

// Renderer produces comparison frames.
type Renderer struct {
	maxWidth int
	frames   FrameSource
}

// NewRenderer returns a renderer that decodes with the media package.
func NewRenderer(maxWidth int) *Renderer {
	return &Renderer{maxWidth: maxWidth, frames: mediaFrames{}}
}

// NewRendererWithSource is NewRenderer with a custom frame source.
func NewRendererWithSource(maxWidth int, frames FrameSource) *Renderer {
	return &Renderer{maxWidth: maxWidth, frames: frames}
}

// Render loads the asset frame, fits it for display and composites the
// processed view over the left split percent of it.
func (r *Renderer) Render(ctx context.Context, asset session.Asset, effect filter.Effect, split float64, opts Options) (*image.NRGBA, error) {
	start := time.Now()
	kind := string(asset.Kind)

	frame, err := r.frames.Frame(ctx, asset, opts.At)
	if err != nil {
		metrics.PreviewRendersTotal.WithLabelValues(kind, "error").Inc()
		return nil, fmt.Errorf("failed to load frame for %s: %w", asset.Filename, err)
	}

	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = r.maxWidth
	}

	fitted, scale := fit(frame, maxWidth)
	out := Composite(fitted, effect.Scaled(scale), split)

	metrics.PreviewRendersTotal.WithLabelValues(kind, "success").Inc()
	metrics.PreviewRenderDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	logging.Debug("Rendered preview of %s at %dx%d (split %.1f%%) in %v",
		asset.Filename, out.Bounds().Dx(), out.Bounds().Dy(), split, time.Since(start))

	return out, nil
}

// Encode writes a rendered frame as JPEG.
func (r *Renderer) Encode(w io.Writer, img image.Image) error {
	return media.EncodeJPEG(w, img, Quality)
}

func fit(img image.Image, maxWidth int) (*image.NRGBA, float64) {
	w := img.Bounds().Dx()
	if maxWidth <= 0 || w <= maxWidth {
		return imaging.Clone(img), 1
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos), float64(maxWidth) / float64(w)
}

// Composite returns frame with effect applied to the columns left of the
// split boundary, a 1px divider on the boundary and a circular drag handle
// centred on it. frame is not modified.
func Composite(frame image.Image, effect filter.Effect, split float64) *image.NRGBA {
	base := imaging.Clone(frame)
	b := base.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return base
	}

	boundary := compare.BoundaryAt(w, split)
	if boundary > 0 {
		processed := effect.Apply(base)
		rect := image.Rect(0, 0, boundary, h)
		draw.Draw(base, rect, processed, image.Point{}, draw.Src)
	}

	x := boundary
	if x >= w {
		x = w - 1
	}
	draw.Draw(base, image.Rect(x, 0, x+1, h), image.NewUniform(dividerColor), image.Point{}, draw.Src)

	drawHandle(base, image.Pt(x, h/2), HandleRadius(w, h))
	return base
}

// HandleRadius sizes the drag handle relative to the frame.
func HandleRadius(w, h int) int {
	short := w
	if h < short {
		short = h
	}
	r := short / 24
	if r < 4 {
		r = 4
	}
	return r
}

func drawHandle(dst *image.NRGBA, center image.Point, radius int) {
	outer := &circle{center: center, radius: radius}
	inner := &circle{center: center, radius: radius - 2}
	draw.DrawMask(dst, outer.Bounds(), image.NewUniform(handleRing), image.Point{}, outer, outer.Bounds().Min, draw.Over)
	if inner.radius > 0 {
		draw.DrawMask(dst, inner.Bounds(), image.NewUniform(handleFill), image.Point{}, inner, inner.Bounds().Min, draw.Over)
	}
}

// circle is an alpha mask of a filled disc.
type circle struct {
	center image.Point
	radius int
}

func (c *circle) ColorModel() color.Model { return color.AlphaModel }

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(c.center.X-c.radius, c.center.Y-c.radius, c.center.X+c.radius+1, c.center.Y+c.radius+1)
}

func (c *circle) At(x, y int) color.Color {
	dx, dy := x-c.center.X, y-c.center.Y
	if dx*dx+dy*dy <= c.radius*c.radius {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}
