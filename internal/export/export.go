// Package export produces downloadable files that reproduce the preview.
//
// Images are re-derived from the current parameters at full resolution on
// every export; preview pixels are never reused. Videos are never rasterized
// here: an export hands off the server-processed file, or triggers a
// transcode and waits for it, or fails with ErrExportNotReady.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"media-filter/internal/filesystem"
	"media-filter/internal/filter"
	"media-filter/internal/logging"
	"media-filter/internal/media"
	"media-filter/internal/mediatypes"
	"media-filter/internal/metrics"
	"media-filter/internal/session"
	"media-filter/internal/transcoder"
)

// ErrExportNotReady is returned for a video that has no processed file yet.
var ErrExportNotReady = errors.New("export not ready: video has not been processed with the current filters")

// Artifact is one export result. Exactly one of Data and Path is set.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	Path        string
	ModTime     time.Time

	// Processed is set when this export ran a new transcode.
	Processed *session.Processed

	mu     sync.Mutex
	closed bool
}

// Close releases the in-memory payload. It is safe to call more than once.
func (a *Artifact) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Data = nil
	a.closed = true
}

// Closed reports whether Close was called.
func (a *Artifact) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Processor runs server-side transcodes.
type Processor interface {
	Process(ctx context.Context, req transcoder.Request) (*transcoder.Result, error)
}

// VideoOptions control video exports.
type VideoOptions struct {
	// Transcode triggers and awaits a transcode when no processed file exists.
	Transcode bool
}

// Engine builds export artifacts.
type Engine struct {
	processor Processor
	decode    func(ctx context.Context, path string) (image.Image, error)
}

// NewEngine returns an engine. processor may be nil, in which case video
// exports only hand off existing results.
func NewEngine(processor Processor) *Engine {
	return &Engine{processor: processor, decode: media.LoadImage}
}

// ImageFilename is the download name of an exported image.
func ImageFilename(original string) string {
	return "processed_" + mediatypes.Stem(original) + ".jpg"
}

// VideoFilename is the download name of an exported video.
func VideoFilename(original string) string {
	return "processed_" + mediatypes.Stem(original) + ".mp4"
}

// ToProcessed converts a transcode result for asset into a session result.
func ToProcessed(res *transcoder.Result, asset session.Asset) session.Processed {
	return session.Processed{
		JobID:       res.JobID,
		AssetID:     asset.ID,
		Path:        res.OutputPath,
		URL:         res.PublicURL,
		Params:      res.Params,
		CompletedAt: time.Now().UTC(),
	}
}

func observe(kind, status string, start time.Time) {
	metrics.ExportsTotal.WithLabelValues(kind, status).Inc()
	metrics.ExportDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// ExportImage decodes the asset at full resolution, applies the effect for
// params and encodes it as JPEG. The same inputs always give the same bytes.
func (e *Engine) ExportImage(ctx context.Context, asset session.Asset, params filter.Parameters) (*Artifact, error) {
	start := time.Now()
	kind := string(mediatypes.KindImage)

	if err := params.Validate(); err != nil {
		observe(kind, "error", start)
		return nil, err
	}

	src, err := e.decode(ctx, asset.Path)
	if err != nil {
		observe(kind, "error", start)
		logging.Error("Export decode failed for %s: %v", asset.Filename, err)
		return nil, fmt.Errorf("%w: image could not be decoded", mediatypes.ErrProcessingFailure)
	}

	out := filter.ComputeEffect(params).Apply(src)
	data, err := media.JPEGBytes(out, media.ExportQuality)
	if err != nil {
		observe(kind, "error", start)
		logging.Error("Export encode failed for %s: %v", asset.Filename, err)
		return nil, fmt.Errorf("%w: image could not be encoded", mediatypes.ErrProcessingFailure)
	}

	observe(kind, "success", start)
	logging.Debug("Exported %s (%dx%d, %d bytes)", asset.Filename, out.Bounds().Dx(), out.Bounds().Dy(), len(data))

	return &Artifact{
		Filename:    ImageFilename(asset.Filename),
		ContentType: "image/jpeg",
		Data:        data,
		ModTime:     time.Now().UTC(),
	}, nil
}

// ExportVideo hands off processed when it is set and its file still exists.
// Otherwise it transcodes when opts.Transcode is set, or returns
// ErrExportNotReady. The unfiltered original is never returned.
func (e *Engine) ExportVideo(ctx context.Context, asset session.Asset, params filter.Parameters, processed *session.Processed, opts VideoOptions) (*Artifact, error) {
	start := time.Now()
	kind := string(mediatypes.KindVideo)

	if processed != nil && processed.Path != "" {
		if info, err := filesystem.Stat(processed.Path, filesystem.DefaultRetryConfig()); err == nil && info.Size() > 0 {
			observe(kind, "success", start)
			return &Artifact{
				Filename:    VideoFilename(asset.Filename),
				ContentType: "video/mp4",
				Path:        processed.Path,
				ModTime:     info.ModTime(),
			}, nil
		}
		logging.Warn("Processed file for %s is gone: %s", asset.Filename, processed.Path)
	}

	if !opts.Transcode || e.processor == nil {
		observe(kind, "not_ready", start)
		return nil, ErrExportNotReady
	}

	res, err := e.processor.Process(ctx, transcoder.Request{
		Filename:  asset.Filename,
		MimeType:  asset.MimeType,
		InputPath: asset.Path,
		Size:      asset.Size,
		Params:    params,
	})
	if err != nil {
		observe(kind, "error", start)
		return nil, err
	}

	p := ToProcessed(res, asset)
	observe(kind, "success", start)
	return &Artifact{
		Filename:    VideoFilename(asset.Filename),
		ContentType: "video/mp4",
		Path:        res.OutputPath,
		ModTime:     p.CompletedAt,
		Processed:   &p,
	}, nil
}

// Export dispatches on the session's asset kind. A transcode triggered by
// the export is stored on the session. If the asset was replaced while it ran
// the export fails with session.ErrStaleResult.
func (e *Engine) Export(ctx context.Context, s *session.Session, opts VideoOptions) (*Artifact, error) {
	asset := s.Asset()
	params := s.Params()

	switch asset.Kind {
	case mediatypes.KindImage:
		return e.ExportImage(ctx, asset, params)
	case mediatypes.KindVideo:
		var processed *session.Processed
		if p, ok := s.Processed(); ok {
			processed = &p
		}
		art, err := e.ExportVideo(ctx, asset, params, processed, opts)
		if err != nil {
			return nil, err
		}
		if art.Processed != nil {
			if err := s.SetProcessed(*art.Processed); err != nil {
				if errors.Is(err, session.ErrStaleResult) {
					return nil, err
				}
				logging.Warn("Could not store processed result on session %s: %v", s.ID, err)
			}
		}
		return art, nil
	default:
		return nil, mediatypes.ErrUnsupportedMediaType
	}
}
