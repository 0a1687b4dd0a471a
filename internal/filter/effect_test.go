package filter

import (
	"image"
	"image/color"
	"reflect"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func operationNames(e Effect) []string {
	names := make([]string, 0, len(e.Operations))
	for _, op := range e.Operations {
		names = append(names, op.Name)
	}
	return names
}

func TestComputeEffectOrder(t *testing.T) {
	tests := []struct {
		name      string
		sharpness float64
		want      []string
		lastAmt   float64
	}{
		{"zero sharpness", 0, []string{OpGrayscale, OpBrightness, OpContrast, OpSharpen}, 0},
		{"positive sharpness", 40, []string{OpGrayscale, OpBrightness, OpContrast, OpSharpen}, 2},
		{"negative sharpness", -50, []string{OpGrayscale, OpBrightness, OpContrast, OpBlur}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ComputeEffect(Parameters{Brightness: 110, Contrast: 90, Sharpness: tt.sharpness})
			if got := operationNames(e); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("operations = %v, want %v", got, tt.want)
			}
			if got := e.Operations[3].Amount; got != tt.lastAmt {
				t.Errorf("sharpness proxy amount = %v, want %v", got, tt.lastAmt)
			}
			if e.Operations[0].Amount != 100 {
				t.Errorf("grayscale amount = %v, want 100", e.Operations[0].Amount)
			}
		})
	}
}

func TestComputeEffectDeterministic(t *testing.T) {
	for _, p := range []Parameters{
		Defaults(),
		{Brightness: 0, Contrast: 200, Sharpness: -100},
		{Brightness: 133.3, Contrast: 66.6, Sharpness: 12.5},
	} {
		a, b := ComputeEffect(p), ComputeEffect(p)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("ComputeEffect(%+v) not deterministic: %v vs %v", p, a, b)
		}
		if a.String() != b.String() || a.CSS() != b.CSS() || a.FFmpegFilter() != b.FFmpegFilter() {
			t.Errorf("renditions of %+v differ between calls", p)
		}
	}
}

func TestComputeEffectNoAccumulation(t *testing.T) {
	first := ComputeEffect(Parameters{Brightness: 150, Contrast: 100, Sharpness: 0})
	_ = ComputeEffect(Parameters{Brightness: 50, Contrast: 50, Sharpness: 80})
	again := ComputeEffect(Parameters{Brightness: 150, Contrast: 100, Sharpness: 0})
	if first.String() != again.String() {
		t.Errorf("effect changed across edits: %q vs %q", first, again)
	}
}

func TestEffectCSS(t *testing.T) {
	tests := []struct {
		params    Parameters
		want      string
		wantExact bool
	}{
		{Defaults(), "grayscale(100%) brightness(100%) contrast(100%)", true},
		{Parameters{Brightness: 120, Contrast: 80, Sharpness: -30}, "grayscale(100%) brightness(120%) contrast(80%) blur(3px)", true},
		{Parameters{Brightness: 100, Contrast: 100, Sharpness: 20}, "grayscale(100%) brightness(100%) contrast(100%)", false},
		{Parameters{Brightness: 99.5, Contrast: 100, Sharpness: 0}, "grayscale(100%) brightness(99.5%) contrast(100%)", true},
	}

	for _, tt := range tests {
		e := ComputeEffect(tt.params)
		if got := e.CSS(); got != tt.want {
			t.Errorf("CSS(%+v) = %q, want %q", tt.params, got, tt.want)
		}
		if got := e.CSSExact(); got != tt.wantExact {
			t.Errorf("CSSExact(%+v) = %v, want %v", tt.params, got, tt.wantExact)
		}
	}
}

func TestEffectFFmpegFilter(t *testing.T) {
	tests := []struct {
		name   string
		params Parameters
		want   string
	}{
		{
			name:   "defaults are grayscale only",
			params: Defaults(),
			want:   "scale=out_range=full,format=gray,format=yuvj420p,scale=out_range=limited,format=yuv420p",
		},
		{
			name:   "brightness and contrast share one lut",
			params: Parameters{Brightness: 120, Contrast: 50, Sharpness: 0},
			want:   "scale=out_range=full,format=gray,format=yuvj420p,lutyuv=y='clip((clip(val*1.2,0,255)-127.5)*0.5+127.5,0,255)',scale=out_range=limited,format=yuv420p",
		},
		{
			name:   "sharpen after modulation",
			params: Parameters{Brightness: 100, Contrast: 150, Sharpness: 20},
			want:   "scale=out_range=full,format=gray,format=yuvj420p,lutyuv=y='clip((clip(val*1,0,255)-127.5)*1.5+127.5,0,255)',unsharp=7:7:1.0:7:7:0,scale=out_range=limited,format=yuv420p",
		},
		{
			name:   "blur for negative sharpness",
			params: Parameters{Brightness: 100, Contrast: 100, Sharpness: -25},
			want:   "scale=out_range=full,format=gray,format=yuvj420p,gblur=sigma=2.5,scale=out_range=limited,format=yuv420p",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeEffect(tt.params).FFmpegFilter(); got != tt.want {
				t.Errorf("FFmpegFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFFmpegFilterModulatesFullRangeLuma(t *testing.T) {
	chain := ComputeEffect(Parameters{Brightness: 180, Contrast: 160, Sharpness: 0}).FFmpegFilter()

	full := strings.Index(chain, "scale=out_range=full")
	lut := strings.Index(chain, "lutyuv=")
	limited := strings.Index(chain, "scale=out_range=limited")
	if full < 0 || lut < 0 || limited < 0 {
		t.Fatalf("chain %q is missing a range conversion or the lut", chain)
	}
	if !(full < lut && lut < limited) {
		t.Errorf("lut must run on full-range luma: %q", chain)
	}
	if !strings.HasSuffix(chain, "format=yuv420p") {
		t.Errorf("chain %q does not end in yuv420p", chain)
	}
}

func TestUnsharpMatrixBounds(t *testing.T) {
	tests := map[float64]int{
		0.05: 3,
		1:    7,
		5:    23,
		50:   23,
	}
	for sigma, want := range tests {
		if got := unsharpMatrix(sigma); got != want {
			t.Errorf("unsharpMatrix(%v) = %d, want %d", sigma, got, want)
		}
	}
}

func TestApplyDefaultIsGrayscale(t *testing.T) {
	src := testImage(32, 24)
	got := ComputeEffect(Defaults()).Apply(src)
	want := imaging.Grayscale(src)

	if !reflect.DeepEqual(got.Pix, want.Pix) {
		t.Error("default effect differs from plain grayscale conversion")
	}
}

func TestApplyProducesGray(t *testing.T) {
	src := testImage(16, 16)
	out := ComputeEffect(Parameters{Brightness: 130, Contrast: 70, Sharpness: 40}).Apply(src)

	if out.Bounds().Dx() != 16 || out.Bounds().Dy() != 16 {
		t.Fatalf("Apply changed size to %v", out.Bounds())
	}
	for i := 0; i < len(out.Pix); i += 4 {
		r, g, b := out.Pix[i], out.Pix[i+1], out.Pix[i+2]
		if r != g || g != b {
			t.Fatalf("pixel %d not gray: %d,%d,%d", i/4, r, g, b)
		}
	}
}

func TestApplyBrightnessContrastMath(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 100, B: 100, A: 255})

	tests := []struct {
		params Parameters
		want   uint8
	}{
		{Parameters{Brightness: 150, Contrast: 100}, 150},
		{Parameters{Brightness: 0, Contrast: 100}, 0},
		{Parameters{Brightness: 300, Contrast: 100}, 255},
		{Parameters{Brightness: 100, Contrast: 0}, 128},
		{Parameters{Brightness: 100, Contrast: 200}, 73},
		{Parameters{Brightness: 200, Contrast: 200}, 255},
	}

	for _, tt := range tests {
		out := ComputeEffect(tt.params).Apply(src)
		if got := out.Pix[0]; got != tt.want {
			t.Errorf("Apply(%+v) luma = %d, want %d", tt.params, got, tt.want)
		}
		if out.Pix[3] != 255 {
			t.Errorf("Apply(%+v) changed alpha to %d", tt.params, out.Pix[3])
		}
	}
}

func TestApplyDoesNotMutateSource(t *testing.T) {
	src := testImage(8, 8)
	before := append([]uint8(nil), src.Pix...)
	ComputeEffect(Parameters{Brightness: 180, Contrast: 40, Sharpness: -60}).Apply(src)
	if !reflect.DeepEqual(before, src.Pix) {
		t.Error("Apply mutated its input")
	}
}

func TestEffectString(t *testing.T) {
	got := ComputeEffect(Parameters{Brightness: 110, Contrast: 95, Sharpness: -20}).String()
	for _, part := range []string{"grayscale(100%)", "brightness(110%)", "contrast(95%)", "blur(2px)"} {
		if !strings.Contains(got, part) {
			t.Errorf("String() = %q, missing %q", got, part)
		}
	}
}

func TestEffectScaled(t *testing.T) {
	e := ComputeEffect(Parameters{Brightness: 120, Contrast: 80, Sharpness: -40})
	half := e.Scaled(0.5)

	if half.Operations[1].Amount != 120 || half.Operations[2].Amount != 80 {
		t.Errorf("Scaled changed tonal operations: %v", half)
	}
	if half.Operations[3].Amount != 2 {
		t.Errorf("scaled blur = %v, want 2", half.Operations[3].Amount)
	}
	if e.Operations[3].Amount != 4 {
		t.Errorf("Scaled mutated the receiver: %v", e)
	}
}
