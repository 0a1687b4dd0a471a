package media

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"media-filter/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsLogSettings maps the application log level to the libvips threshold
// and routes libvips messages through the application logger.
func vipsLogSettings(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	threshold := vips.LogLevelWarning
	switch level {
	case logging.LevelDebug:
		threshold = vips.LogLevelInfo
	case logging.LevelWarn:
		threshold = vips.LogLevelError
	case logging.LevelError:
		threshold = vips.LogLevelCritical
	}

	handler := func(domain string, l vips.LogLevel, msg string) {
		// Lower values are more severe in libvips.
		if l > threshold {
			return
		}
		switch {
		case l <= vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case l == vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}
	return threshold, handler
}

// InitVips initializes the libvips library
// This should be called once at startup
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	threshold, handler := vipsLogSettings(logging.GetLevel())
	vips.LoggingSettings(handler, threshold)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// LoadImageWithVips decodes path with libvips at native resolution. The
// result passes through a lossless PNG round trip so callers get a plain
// image.Image.
func LoadImageWithVips(path string) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		logging.Debug("vips auto-rotate failed for %s: %v", filepath.Base(path), err)
	}

	pngBytes, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}

	logging.Debug("Vips decoded %s: %dx%d", filepath.Base(path), img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}
