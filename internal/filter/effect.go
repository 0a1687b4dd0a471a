package filter

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Operation names.
const (
	OpGrayscale  = "grayscale"
	OpBrightness = "brightness"
	OpContrast   = "contrast"
	OpSharpen    = "sharpen"
	OpBlur       = "blur"
)

// Operation is one named step of an Effect.
type Operation struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Effect is the ordered composition derived from Parameters.
type Effect struct {
	Operations []Operation `json:"operations"`
}

// ComputeEffect maps parameters to an Effect. It is pure and total; callers
// clamp at the input boundary, not here.
func ComputeEffect(p Parameters) Effect {
	ops := []Operation{
		{Name: OpGrayscale, Amount: 100, Unit: "%"},
		{Name: OpBrightness, Amount: p.Brightness, Unit: "%"},
		{Name: OpContrast, Amount: p.Contrast, Unit: "%"},
	}

	switch {
	case p.Sharpness > 0:
		ops = append(ops, Operation{Name: OpSharpen, Amount: p.Sharpness / 20, Unit: "sigma"})
	case p.Sharpness < 0:
		ops = append(ops, Operation{Name: OpBlur, Amount: -p.Sharpness / 10, Unit: "px"})
	default:
		ops = append(ops, Operation{Name: OpSharpen, Amount: 0, Unit: "sigma"})
	}

	return Effect{Operations: ops}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSS renders the effect as a CSS filter value. Sharpen has no CSS primitive
// and is omitted; see CSSExact.
func (e Effect) CSS() string {
	parts := make([]string, 0, len(e.Operations))
	for _, op := range e.Operations {
		switch op.Name {
		case OpGrayscale, OpBrightness, OpContrast:
			parts = append(parts, op.Name+"("+formatAmount(op.Amount)+"%)")
		case OpBlur:
			parts = append(parts, "blur("+formatAmount(op.Amount)+"px)")
		}
	}
	return strings.Join(parts, " ")
}

// CSSExact reports whether CSS() reproduces the raster rendition.
func (e Effect) CSSExact() bool {
	for _, op := range e.Operations {
		if op.Name == OpSharpen && op.Amount > 0 {
			return false
		}
	}
	return true
}

// String returns the canonical textual form used for logging and equality checks.
func (e Effect) String() string {
	parts := make([]string, 0, len(e.Operations))
	for _, op := range e.Operations {
		parts = append(parts, op.Name+"("+formatAmount(op.Amount)+op.Unit+")")
	}
	return strings.Join(parts, " ")
}

// FFmpegFilter renders the effect as an ffmpeg -vf filter chain. Luma
// modulation uses the same math as the CSS brightness and contrast functions,
// so the chain works on full-range (0-255) luma like the raster path and
// returns to limited-range yuv420p at the end.
func (e Effect) FFmpegFilter() string {
	var (
		chain      []string
		brightness = 1.0
		contrast   = 1.0
		fullRange  bool
	)

	flushLut := func() {
		if brightness == 1 && contrast == 1 {
			return
		}
		expr := fmt.Sprintf("clip((clip(val*%s,0,255)-127.5)*%s+127.5,0,255)",
			formatAmount(brightness), formatAmount(contrast))
		chain = append(chain, "lutyuv=y='"+expr+"'")
		brightness, contrast = 1, 1
	}

	for _, op := range e.Operations {
		switch op.Name {
		case OpGrayscale:
			chain = append(chain, "scale=out_range=full", "format=gray", "format=yuvj420p")
			fullRange = true
		case OpBrightness:
			if contrast != 1 {
				flushLut()
			}
			brightness = op.Amount / 100
		case OpContrast:
			contrast = op.Amount / 100
		case OpSharpen:
			flushLut()
			if op.Amount > 0 {
				size := unsharpMatrix(op.Amount)
				chain = append(chain, fmt.Sprintf("unsharp=%d:%d:1.0:%d:%d:0", size, size, size, size))
			}
		case OpBlur:
			flushLut()
			if op.Amount > 0 {
				chain = append(chain, "gblur=sigma="+formatAmount(op.Amount))
			}
		}
	}
	flushLut()
	if fullRange {
		chain = append(chain, "scale=out_range=limited", "format=yuv420p")
	}

	return strings.Join(chain, ",")
}

// unsharpMatrix picks an odd kernel size covering three sigma, within the
// [3,23] range ffmpeg's unsharp accepts.
func unsharpMatrix(sigma float64) int {
	size := 2*int(math.Ceil(3*sigma)) + 1
	if size < 3 {
		size = 3
	}
	if size > 23 {
		size = 23
	}
	return size
}

// Apply renders the effect onto img and returns a new image with the same
// bounds size. Identity steps are skipped, so the default effect is exactly
// imaging.Grayscale.
func (e Effect) Apply(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for _, op := range e.Operations {
		switch op.Name {
		case OpGrayscale:
			if op.Amount > 0 {
				out = imaging.Grayscale(out)
			}
		case OpBrightness:
			if op.Amount != 100 {
				f := op.Amount / 100
				out = imaging.AdjustFunc(out, func(c color.NRGBA) color.NRGBA {
					return mapRGB(c, func(v float64) float64 { return v * f })
				})
			}
		case OpContrast:
			if op.Amount != 100 {
				f := op.Amount / 100
				out = imaging.AdjustFunc(out, func(c color.NRGBA) color.NRGBA {
					return mapRGB(c, func(v float64) float64 { return (v-127.5)*f + 127.5 })
				})
			}
		case OpSharpen:
			if op.Amount > 0 {
				out = imaging.Sharpen(out, op.Amount)
			}
		case OpBlur:
			if op.Amount > 0 {
				out = imaging.Blur(out, op.Amount)
			}
		}
	}
	return out
}

func mapRGB(c color.NRGBA, fn func(float64) float64) color.NRGBA {
	c.R = clampUint8(fn(float64(c.R)))
	c.G = clampUint8(fn(float64(c.G)))
	c.B = clampUint8(fn(float64(c.B)))
	return c
}

func clampUint8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Scaled returns a copy whose spatial operations (sharpen, blur) are scaled by
// factor. Renderers working on a resized frame use it so that the kernel
// covers the same share of the picture as at native resolution.
func (e Effect) Scaled(factor float64) Effect {
	ops := make([]Operation, len(e.Operations))
	copy(ops, e.Operations)
	for i := range ops {
		if ops[i].Name == OpSharpen || ops[i].Name == OpBlur {
			ops[i].Amount *= factor
		}
	}
	return Effect{Operations: ops}
}
