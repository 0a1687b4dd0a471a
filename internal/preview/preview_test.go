package preview

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"media-filter/internal/filter"
	"media-filter/internal/mediatypes"
	"media-filter/internal/session"
)

func colorFrame(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: uint8(x * 3), B: 40, A: 255})
		}
	}
	return img
}

type fakeFrames struct {
	img    image.Image
	err    error
	lastAt time.Duration
}

func (f *fakeFrames) Frame(_ context.Context, _ session.Asset, at time.Duration) (image.Image, error) {
	f.lastAt = at
	return f.img, f.err
}

func isGray(c color.NRGBA) bool {
	return c.R == c.G && c.G == c.B
}

func TestCompositeSplit(t *testing.T) {
	frame := colorFrame(64, 32)
	effect := filter.ComputeEffect(filter.Parameters{Brightness: 110, Contrast: 90})
	processed := effect.Apply(frame)

	tests := []struct {
		name          string
		split         float64
		divider       int
		processedCols []int
		originalCols  []int
	}{
		{"half", 50, 32, []int{0, 10, 31}, []int{33, 50, 63}},
		{"all original", 0, 0, nil, []int{1, 20, 63}},
		{"all processed", 100, 63, []int{0, 20, 62}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Composite(frame, effect, tt.split)
			if out.Bounds() != frame.Bounds() {
				t.Fatalf("bounds = %v, want %v", out.Bounds(), frame.Bounds())
			}

			if got := out.NRGBAAt(tt.divider, 0); got != dividerColor {
				t.Errorf("divider at x=%d = %v, want %v", tt.divider, got, dividerColor)
			}
			for _, x := range tt.processedCols {
				if got, want := out.NRGBAAt(x, 0), processed.NRGBAAt(x, 0); got != want {
					t.Errorf("x=%d: got %v, want processed %v", x, got, want)
				}
			}
			for _, x := range tt.originalCols {
				if got, want := out.NRGBAAt(x, 0), frame.NRGBAAt(x, 0); got != want {
					t.Errorf("x=%d: got %v, want original %v", x, got, want)
				}
			}
		})
	}
}

func TestCompositeDoesNotModifyFrame(t *testing.T) {
	frame := colorFrame(16, 16)
	before := append([]uint8(nil), frame.Pix...)
	Composite(frame, filter.ComputeEffect(filter.Defaults()), 50)
	if !bytes.Equal(before, frame.Pix) {
		t.Error("Composite modified its input frame")
	}
}

func TestCompositeDrawsHandle(t *testing.T) {
	frame := colorFrame(96, 96)
	out := Composite(frame, filter.ComputeEffect(filter.Defaults()), 50)

	r := HandleRadius(96, 96)
	center := out.NRGBAAt(48, 48)
	if center.R < 200 || !isGray(center) {
		t.Errorf("handle centre = %v, want light fill", center)
	}
	// Just outside the ring on the original side.
	outside := out.NRGBAAt(48+r+2, 48)
	if outside != frame.NRGBAAt(48+r+2, 48) {
		t.Errorf("pixel outside handle modified: %v", outside)
	}
}

func TestHandleRadius(t *testing.T) {
	tests := []struct{ w, h, want int }{
		{64, 32, 4},
		{480, 240, 10},
		{1920, 1080, 45},
	}
	for _, tt := range tests {
		if got := HandleRadius(tt.w, tt.h); got != tt.want {
			t.Errorf("HandleRadius(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestRenderFitsToMaxWidth(t *testing.T) {
	src := &fakeFrames{img: colorFrame(200, 100)}
	r := NewRendererWithSource(100, src)
	asset := session.Asset{Kind: mediatypes.KindImage, Filename: "a.png"}

	out, err := r.Render(context.Background(), asset, filter.ComputeEffect(filter.Defaults()), 50, Options{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 50 {
		t.Errorf("rendered size = %v, want 100x50", out.Bounds())
	}

	out, err = r.Render(context.Background(), asset, filter.ComputeEffect(filter.Defaults()), 50, Options{MaxWidth: 400})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out.Bounds().Dx() != 200 {
		t.Errorf("frame narrower than MaxWidth was resized to %d", out.Bounds().Dx())
	}
}

func TestRenderVideoUsesRequestedTime(t *testing.T) {
	src := &fakeFrames{img: colorFrame(32, 32)}
	r := NewRendererWithSource(0, src)
	asset := session.Asset{Kind: mediatypes.KindVideo, Filename: "clip.mp4"}

	if _, err := r.Render(context.Background(), asset, filter.ComputeEffect(filter.Defaults()), 50, Options{At: 3 * time.Second}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if src.lastAt != 3*time.Second {
		t.Errorf("frame requested at %v, want 3s", src.lastAt)
	}
}

func TestRenderFrameError(t *testing.T) {
	wantErr := errors.New("decode failed")
	r := NewRendererWithSource(0, &fakeFrames{err: wantErr})

	_, err := r.Render(context.Background(), session.Asset{Kind: mediatypes.KindImage}, filter.ComputeEffect(filter.Defaults()), 50, Options{})
	if !errors.Is(err, wantErr) {
		t.Errorf("Render() error = %v, want %v", err, wantErr)
	}
}

func TestEncode(t *testing.T) {
	r := NewRenderer(0)
	var buf bytes.Buffer
	if err := r.Encode(&buf, colorFrame(8, 8)); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, err := jpeg.Decode(&buf); err != nil {
		t.Errorf("Encode() did not produce a JPEG: %v", err)
	}
}
