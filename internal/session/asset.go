package session

import (
	"media-filter/internal/mediatypes"
)

// Asset is one uploaded file. It is immutable once created.
type Asset struct {
	ID       string          `json:"id"`
	Kind     mediatypes.Kind `json:"kind"`
	Filename string          `json:"filename"`
	MimeType string          `json:"mimeType"`
	Size     int64           `json:"size"`
	Path     string          `json:"-"`

	// Width, Height and Duration are filled in when the file could be probed.
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// IsVideo reports whether the asset is a video.
func (a Asset) IsVideo() bool {
	return a.Kind == mediatypes.KindVideo
}
