package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"

	"media-filter/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

// ExportQuality is the JPEG quality used for exported stills.
const ExportQuality = 95

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// LoadImage decodes the image at path at native resolution.
func LoadImage(ctx context.Context, path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	logging.Debug("imaging.Open failed for %s: %v, trying fallback decoders", path, err)

	if IsVipsAvailable() {
		img, vipsErr := LoadImageWithVips(path)
		if vipsErr == nil {
			return img, nil
		}
		logging.Debug("vips decode failed for %s: %v", path, vipsErr)
	}

	img, ffErr := decodeWithFFmpeg(ctx, path)
	if ffErr != nil {
		return nil, fmt.Errorf("all image decode methods failed for %s: %w", path, err)
	}
	return img, nil
}

func decodeWithFFmpeg(ctx context.Context, path string) (image.Image, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	return runFrameCommand(ctx, path,
		"-v", "error",
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
}

// EncodeJPEG writes img as JPEG at the given quality.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

// JPEGBytes is EncodeJPEG into a new buffer.
func JPEGBytes(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, img, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
