package mediatypes

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"
)

// Kind is the declared media kind of an upload.
type Kind string

const (
	// KindImage is a still image (mime type image/*).
	KindImage Kind = "image"
	// KindVideo is a video (mime type video/*).
	KindVideo Kind = "video"
	// KindUnsupported is anything else.
	KindUnsupported Kind = "unsupported"
)

// Error taxonomy shared by the transcode service, the export engine and the
// HTTP layer. Callers classify with errors.Is.
var (
	// ErrNoFileProvided indicates the request carried no file.
	ErrNoFileProvided = errors.New("no file provided")

	// ErrUnsupportedMediaType indicates a mime type that is neither image/* nor video/*.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrInvalidParameter indicates a non-numeric or non-finite filter value.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrProcessingFailure indicates the underlying image or video tool failed.
	ErrProcessingFailure = errors.New("processing failure")
)

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
	".avif": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// KindFromMIME dispatches on the mime type prefix. Parameters such as
// "; charset=" are ignored and the comparison is case-insensitive.
func KindFromMIME(mimeType string) Kind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	default:
		return KindUnsupported
	}
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mt, ok := MimeTypes[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// KindFromExtension classifies a file name by its extension. Matching is
// case-insensitive.
func KindFromExtension(filename string) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case ImageExtensions[ext]:
		return KindImage
	case VideoExtensions[ext]:
		return KindVideo
	default:
		return KindUnsupported
	}
}

// ResolveMIME returns the declared mime type, falling back to the filename
// extension when the client sent none or the generic octet-stream type. Only
// supported image and video extensions are trusted for the fallback.
func ResolveMIME(declared, filename string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if KindFromExtension(filename) == KindUnsupported {
		return "application/octet-stream"
	}
	return GetMimeType(strings.ToLower(filepath.Ext(filename)))
}

// Stem returns the filename without directory and extension.
func Stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
