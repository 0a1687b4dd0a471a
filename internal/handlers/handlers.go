package handlers

import (
	"time"

	"media-filter/internal/database"
	"media-filter/internal/export"
	"media-filter/internal/filter"
	"media-filter/internal/notify"
	"media-filter/internal/preview"
	"media-filter/internal/session"
	"media-filter/internal/startup"
	"media-filter/internal/transcoder"
)

// Handlers holds the collaborators shared by all HTTP handlers.
type Handlers struct {
	db         *database.Database
	transcoder *transcoder.Transcoder
	sessions   *session.Manager
	hub        *notify.Hub
	renderer   *preview.Renderer
	exporter   *export.Engine
	profile    filter.Profile
	uploadDir  string
	maxUpload  int64
	startTime  time.Time
}

// New wires the handlers. hub may be nil when push notifications are off.
func New(db *database.Database, trans *transcoder.Transcoder, sessions *session.Manager, hub *notify.Hub, config *startup.Config) *Handlers {
	return &Handlers{
		db:         db,
		transcoder: trans,
		sessions:   sessions,
		hub:        hub,
		renderer:   preview.NewRenderer(config.PreviewMaxWidth),
		exporter:   export.NewEngine(trans),
		profile:    config.Profile,
		uploadDir:  config.UploadDir,
		maxUpload:  config.MaxUploadBytes,
		startTime:  time.Now(),
	}
}
