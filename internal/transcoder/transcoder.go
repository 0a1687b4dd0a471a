package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"media-filter/internal/database"
	"media-filter/internal/filesystem"
	"media-filter/internal/filter"
	"media-filter/internal/logging"
	"media-filter/internal/media"
	"media-filter/internal/mediatypes"
	"media-filter/internal/metrics"

	"github.com/disintegration/imaging"
)

// Recorder persists upload records. *database.Database satisfies it.
type Recorder interface {
	CreateUpload(ctx context.Context, u *database.Upload) (int64, error)
	SetProcessedPath(ctx context.Context, id int64, processedPath string) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

// Publisher receives best-effort completion notices for videos.
type Publisher interface {
	ProcessedVideo(jobID, videoURL string)
}

// Config controls where output goes and how it is addressed.
type Config struct {
	OutputDir    string
	PublicPrefix string
	Enabled      bool
}

// Result is returned for a completed job.
type Result struct {
	JobID        string            `json:"jobId"`
	RecordID     int64             `json:"recordId,omitempty"`
	Kind         mediatypes.Kind   `json:"kind"`
	OriginalPath string            `json:"originalPath"`
	OutputPath   string            `json:"-"`
	PublicURL    string            `json:"processedPath"`
	Params       filter.Parameters `json:"params"`
	Duration     time.Duration     `json:"-"`
}

// Transcoder runs processing jobs.
type Transcoder struct {
	outputDir    string
	publicPrefix string
	enabled      bool
	recorder     Recorder
	publisher    Publisher

	processes map[string]*exec.Cmd
	processMu sync.Mutex
}

// New creates a Transcoder. recorder and publisher may be nil.
func New(cfg Config, recorder Recorder, publisher Publisher) *Transcoder {
	prefix := cfg.PublicPrefix
	if prefix == "" {
		prefix = "/uploads/"
	}
	return &Transcoder{
		outputDir:    cfg.OutputDir,
		publicPrefix: prefix,
		enabled:      cfg.Enabled,
		recorder:     recorder,
		publisher:    publisher,
		processes:    make(map[string]*exec.Cmd),
	}
}

// IsEnabled returns whether processing is enabled.
func (t *Transcoder) IsEnabled() bool {
	return t.enabled
}

// OutputDir returns the directory processed files are written to.
func (t *Transcoder) OutputDir() string {
	return t.outputDir
}

// PublicURL returns the URL a processed file is served under.
func (t *Transcoder) PublicURL(outputPath string) string {
	return strings.TrimSuffix(t.publicPrefix, "/") + "/" + filepath.Base(outputPath)
}

// Validate checks a request without touching storage and returns its kind.
func Validate(req Request) (mediatypes.Kind, error) {
	if req.InputPath == "" {
		return mediatypes.KindUnsupported, mediatypes.ErrNoFileProvided
	}
	info, err := filesystem.Stat(req.InputPath, filesystem.DefaultRetryConfig())
	if err != nil || info.IsDir() {
		return mediatypes.KindUnsupported, mediatypes.ErrNoFileProvided
	}

	kind := mediatypes.KindFromMIME(req.MimeType)
	if kind == mediatypes.KindUnsupported {
		return kind, fmt.Errorf("%w: %q", mediatypes.ErrUnsupportedMediaType, req.MimeType)
	}

	if err := req.Params.Validate(); err != nil {
		return kind, err
	}
	return kind, nil
}

func processingError(msg string) error {
	return fmt.Errorf("%w: %s", mediatypes.ErrProcessingFailure, msg)
}

// Process runs req to completion. Validation errors are returned before any
// record or file is created. Processing continues even if ctx is cancelled
// after the call starts; only the values carried by ctx are used.
func (t *Transcoder) Process(ctx context.Context, req Request) (*Result, error) {
	job := newJob(req)

	kind, err := Validate(req)
	if err != nil {
		return nil, job.fail(err)
	}
	job.Kind = kind
	if err := job.transition(StateValidated); err != nil {
		return nil, err
	}

	if !t.enabled {
		return nil, job.fail(processingError("processing disabled: output directory not writable"))
	}

	ctx = context.WithoutCancel(ctx)
	label := string(kind)

	if t.recorder != nil {
		id, err := t.recorder.CreateUpload(ctx, &database.Upload{
			Filename: req.Filename,
			Path:     req.InputPath,
			MimeType: req.MimeType,
			Size:     req.Size,
		})
		if err != nil {
			logging.Error("Failed to record upload %s: %v", req.Filename, err)
			metrics.TranscoderJobsTotal.WithLabelValues(label, "failed").Inc()
			return nil, job.fail(processingError("could not record upload"))
		}
		job.RecordID = id
	}

	if err := job.transition(StateProcessing); err != nil {
		return nil, err
	}

	metrics.TranscoderJobsInProgress.Inc()
	defer metrics.TranscoderJobsInProgress.Dec()
	start := time.Now()

	job.OutputPath = filepath.Join(t.outputDir, UniqueName(OutputName(req.Filename, kind)))
	logging.Info("Processing %s %s (job %s)", kind, req.Filename, job.ID)

	if kind == mediatypes.KindVideo {
		err = t.processVideo(ctx, job)
	} else {
		err = t.processImage(ctx, job)
	}

	if err == nil && t.recorder != nil && job.RecordID != 0 {
		if recErr := t.recorder.SetProcessedPath(ctx, job.RecordID, job.OutputPath); recErr != nil {
			logging.Error("Failed to record processed path for job %s: %v", job.ID, recErr)
			err = processingError("could not record processed file")
		}
	}

	elapsed := time.Since(start)
	metrics.TranscoderJobDuration.WithLabelValues(label).Observe(elapsed.Seconds())

	if err != nil {
		t.abandon(ctx, job, err)
		metrics.TranscoderJobsTotal.WithLabelValues(label, "failed").Inc()
		return nil, job.fail(err)
	}

	if err := job.transition(StateCompleted); err != nil {
		return nil, err
	}
	metrics.TranscoderJobsTotal.WithLabelValues(label, "completed").Inc()

	result := &Result{
		JobID:        job.ID,
		RecordID:     job.RecordID,
		Kind:         kind,
		OriginalPath: req.InputPath,
		OutputPath:   job.OutputPath,
		PublicURL:    t.PublicURL(job.OutputPath),
		Params:       req.Params,
		Duration:     elapsed,
	}

	logging.Info("Processed %s in %v -> %s", req.Filename, elapsed.Round(time.Millisecond), result.PublicURL)

	if kind == mediatypes.KindVideo && t.publisher != nil {
		t.publisher.ProcessedVideo(job.ID, result.PublicURL)
	}

	return result, nil
}

// abandon removes any partial output and marks the record failed.
func (t *Transcoder) abandon(ctx context.Context, job *Job, cause error) {
	if job.OutputPath != "" {
		if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
			logging.Warn("Failed to remove partial output %s: %v", job.OutputPath, err)
		}
	}
	if t.recorder != nil && job.RecordID != 0 {
		if err := t.recorder.MarkFailed(ctx, job.RecordID, cause.Error()); err != nil {
			logging.Warn("Failed to mark upload %d failed: %v", job.RecordID, err)
		}
	}
	logging.Error("Job %s failed: %v", job.ID, cause)
}

func (t *Transcoder) processImage(ctx context.Context, job *Job) error {
	img, err := media.LoadImage(ctx, job.Request.InputPath)
	if err != nil {
		logging.Error("Image decode failed for %s: %v", job.Request.InputPath, err)
		return processingError("image could not be decoded")
	}

	out := filter.ComputeEffect(job.Request.Params).Apply(img)
	if err := imaging.Save(out, job.OutputPath, imaging.JPEGQuality(media.ExportQuality)); err != nil {
		logging.Error("Image encode failed for %s: %v", job.OutputPath, err)
		return processingError("image could not be written")
	}
	return nil
}

// videoArgs builds the FFmpeg command line for a video job.
func videoArgs(input, output string, effect filter.Effect) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vf", effect.FFmpegFilter(),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		output,
	}
}

func (t *Transcoder) processVideo(ctx context.Context, job *Job) error {
	effect := filter.ComputeEffect(job.Request.Params)
	cmd := exec.CommandContext(ctx, "ffmpeg", videoArgs(job.Request.InputPath, job.OutputPath, effect)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	t.processMu.Lock()
	t.processes[job.ID] = cmd
	t.processMu.Unlock()

	defer func() {
		t.processMu.Lock()
		delete(t.processes, job.ID)
		t.processMu.Unlock()
	}()

	logging.Debug("ffmpeg %s", strings.Join(cmd.Args[1:], " "))

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logging.Error("FFmpeg stderr for job %s: %s", job.ID, strings.TrimSpace(stderr.String()))
			return processingError("ffmpeg transcoding failed")
		}
		logging.Error("FFmpeg could not run for job %s: %v", job.ID, err)
		return processingError("ffmpeg unavailable")
	}

	info, err := os.Stat(job.OutputPath)
	if err != nil || info.Size() == 0 {
		return processingError("ffmpeg produced no output")
	}
	metrics.TranscoderOutputBytes.Add(float64(info.Size()))
	return nil
}

// Active returns the number of running FFmpeg processes.
func (t *Transcoder) Active() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}

// Cleanup stops all active transcoding processes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for id, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing transcoding process for job %s", id)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill transcoding process for job %s: %v", id, err)
			}
		}
	}
}

// ClearOutputs removes every processed file and returns the number of bytes freed.
func (t *Transcoder) ClearOutputs() (int64, error) {
	if t.outputDir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(t.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read output directory: %w", err)
	}

	var freed int64
	for _, entry := range entries {
		path := filepath.Join(t.outputDir, entry.Name())

		if entry.IsDir() {
			size := metrics.DirSize(path)
			if err := os.RemoveAll(path); err != nil {
				logging.Warn("failed to remove directory %s: %v", path, err)
				continue
			}
			freed += size
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logging.Warn("failed to get info for %s: %v", path, err)
			continue
		}
		if err := os.Remove(path); err != nil {
			logging.Warn("failed to remove file %s: %v", path, err)
			continue
		}
		freed += info.Size()
	}

	metrics.TranscoderOutputBytes.Set(float64(metrics.DirSize(t.outputDir)))
	logging.Info("Cleared processed outputs: freed %d bytes", freed)
	return freed, nil
}
