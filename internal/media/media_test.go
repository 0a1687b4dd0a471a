package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"media-filter/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return path
}

// installMockTool writes an executable script named tool into a temp dir
// and puts that dir first on PATH.
func installMockTool(t *testing.T, tool, script string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, tool), []byte(script), 0o755); err != nil {
		t.Fatalf("failed to create mock %s: %v", tool, err)
	}
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}

func TestGetImageDimensions(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), "dims.png", 24, 10)

	dims, err := GetImageDimensions(path)
	if err != nil {
		t.Fatalf("GetImageDimensions() error = %v", err)
	}
	if dims.Width != 24 || dims.Height != 10 {
		t.Errorf("GetImageDimensions() = %dx%d, want 24x10", dims.Width, dims.Height)
	}

	if _, err := GetImageDimensions(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadImage(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), "load.png", 16, 12)

	img, err := LoadImage(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 12 {
		t.Errorf("LoadImage() bounds = %v, want 16x12", b)
	}
}

func TestLoadImageAllDecodersFail(t *testing.T) {
	installMockTool(t, "ffmpeg", "#!/bin/bash\necho 'invalid data' >&2\nexit 1\n")

	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadImage(context.Background(), path); err == nil {
		t.Error("expected error for undecodable file")
	}
}

func TestLoadImageFFmpegFallback(t *testing.T) {
	fixture := writeTestPNG(t, t.TempDir(), "fixture.png", 9, 7)
	installMockTool(t, "ffmpeg", "#!/bin/bash\ncat '"+fixture+"'\n")

	path := filepath.Join(t.TempDir(), "exotic.heic")
	if err := os.WriteFile(path, []byte("opaque container"), 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := LoadImage(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 9 || b.Dy() != 7 {
		t.Errorf("bounds = %v, want 9x7", b)
	}
}

func TestJPEGBytesDeterministic(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 251)
	}

	a, err := JPEGBytes(img, ExportQuality)
	if err != nil {
		t.Fatalf("JPEGBytes() error = %v", err)
	}
	b, err := JPEGBytes(img, ExportQuality)
	if err != nil {
		t.Fatalf("JPEGBytes() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding the same pixels twice produced different bytes")
	}
	if len(a) < 2 || a[0] != 0xFF || a[1] != 0xD8 {
		t.Error("output is not a JPEG stream")
	}
}

func TestExtractFrame(t *testing.T) {
	fixture := writeTestPNG(t, t.TempDir(), "frame.png", 20, 10)
	installMockTool(t, "ffmpeg", "#!/bin/bash\ncat '"+fixture+"'\n")

	img, err := ExtractFrame(context.Background(), "/fake/video.mp4", 2*time.Second)
	if err != nil {
		t.Fatalf("ExtractFrame() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("bounds = %v, want 20x10", b)
	}
}

func TestExtractFrameFallsBackToFirstFrame(t *testing.T) {
	fixture := writeTestPNG(t, t.TempDir(), "frame.png", 6, 6)
	script := `#!/bin/bash
for arg in "$@"; do
  if [ "$arg" = "-ss" ]; then
    echo "seek failed" >&2
    exit 1
  fi
done
cat '` + fixture + `'
`
	installMockTool(t, "ffmpeg", script)

	img, err := ExtractFrame(context.Background(), "/fake/video.mp4", 90*time.Second)
	if err != nil {
		t.Fatalf("ExtractFrame() error = %v", err)
	}
	if img.Bounds().Dx() != 6 {
		t.Errorf("unexpected frame width %d", img.Bounds().Dx())
	}
}

func TestExtractFrameNoOutput(t *testing.T) {
	installMockTool(t, "ffmpeg", "#!/bin/bash\nexit 0\n")

	if _, err := ExtractFrame(context.Background(), "/fake/video.mp4", 0); err == nil {
		t.Error("expected error when ffmpeg produces no output")
	}
}

func TestFormatOffset(t *testing.T) {
	tests := map[time.Duration]string{
		0:                       "0.000",
		1500 * time.Millisecond: "1.500",
		2 * time.Minute:         "120.000",
	}
	for in, want := range tests {
		if got := formatOffset(in); got != want {
			t.Errorf("formatOffset(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestProbeVideo(t *testing.T) {
	installMockTool(t, "ffprobe", `#!/bin/bash
echo '{"streams":[{"codec_type":"audio","codec_name":"aac"},{"codec_type":"video","codec_name":"h264","width":1280,"height":720}],"format":{"duration":"12.5"}}'
`)

	info, err := ProbeVideo(context.Background(), "/fake/video.mp4")
	if err != nil {
		t.Fatalf("ProbeVideo() error = %v", err)
	}
	if info.Duration != 12.5 || info.Codec != "h264" || info.Width != 1280 || info.Height != 720 {
		t.Errorf("ProbeVideo() = %+v", info)
	}
}

func TestProbeVideoError(t *testing.T) {
	installMockTool(t, "ffprobe", "#!/bin/bash\nexit 1\n")

	if _, err := ProbeVideo(context.Background(), "/fake/video.mp4"); err == nil {
		t.Error("expected error from failing ffprobe")
	}
}

func TestVipsLogSettings(t *testing.T) {
	tests := []struct {
		level logging.LogLevel
		want  vips.LogLevel
	}{
		{logging.LevelDebug, vips.LogLevelInfo},
		{logging.LevelInfo, vips.LogLevelWarning},
		{logging.LevelWarn, vips.LogLevelError},
		{logging.LevelError, vips.LogLevelCritical},
	}

	for _, tt := range tests {
		got, handler := vipsLogSettings(tt.level)
		if got != tt.want {
			t.Errorf("vipsLogSettings(%v) threshold = %v, want %v", tt.level, got, tt.want)
		}
		if handler == nil {
			t.Fatalf("vipsLogSettings(%v) returned nil handler", tt.level)
		}
		handler("VIPS", vips.LogLevelWarning, "test message")
	}
}

func TestLoadImageWithVipsUnavailable(t *testing.T) {
	if IsVipsAvailable() {
		t.Skip("libvips initialized in this process")
	}
	if _, err := LoadImageWithVips("/fake/image.heic"); err == nil {
		t.Error("expected error when libvips is not initialized")
	}
}
