package transcoder

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"media-filter/internal/mediatypes"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// SanitizeFilename reduces name to a safe base name made of letters, digits,
// dots, dashes and underscores.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	clean = strings.TrimLeft(clean, ".")
	if clean == "" || clean == "_" {
		return "upload"
	}
	return clean
}

// UniqueName prefixes the sanitized name with a nanosecond timestamp and a
// random suffix so concurrent jobs never share an output path.
func UniqueName(name string) string {
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixNano(), uuid.NewString()[:8], SanitizeFilename(name))
}

// OutputName is the file name a job writes for an upload called filename.
// Videos are always MP4. Images keep their extension when it can be encoded,
// otherwise they become JPEG.
func OutputName(filename string, kind mediatypes.Kind) string {
	stem := mediatypes.Stem(filename)
	if stem == "" {
		stem = "upload"
	}

	if kind == mediatypes.KindVideo {
		return stem + ".mp4"
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, err := imaging.FormatFromExtension(ext); err != nil || ext == "" {
		return stem + ".jpg"
	}
	return stem + ext
}
