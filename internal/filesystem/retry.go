package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"media-filter/internal/logging"
	"media-filter/internal/metrics"
)

// VolumeResolver labels paths with the storage volume they live on, using
// longest-prefix matching on absolute paths.
type VolumeResolver struct {
	mounts []volumeMount
}

type volumeMount struct {
	path string // absolute, with trailing slash
	name string
}

// NewVolumeResolver creates a resolver from volume name to directory, e.g.
// {"uploads": "/data/uploads", "processed": "/data/processed"}.
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		mounts = append(mounts, volumeMount{path: strings.TrimSuffix(abs, "/") + "/", name: name})
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})
	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the volume name for path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return "unknown"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}
	for _, m := range vr.mounts {
		if strings.HasPrefix(abs+"/", m.path) {
			return m.name
		}
	}
	return "unknown"
}

var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the resolver used when a RetryConfig has none.
// Call it once at startup.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}

// RetryConfig controls how often a stale handle is retried.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Resolver       *VolumeResolver
}

// DefaultRetryConfig retries three times, backing off 50ms up to 500ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c RetryConfig) volume(path string) string {
	if c.Resolver != nil {
		return c.Resolver.Resolve(path)
	}
	return defaultResolver.Resolve(path)
}

// IsStale reports whether err is a stale NFS file handle (ESTALE).
func IsStale(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.ESTALE
}

// retry runs fn until it succeeds, fails with anything but ESTALE, or the
// retries are used up.
func retry[T any](op, path string, cfg RetryConfig, fn func() (T, error)) (T, error) {
	volume := cfg.volume(path)
	backoff := cfg.InitialBackoff

	var (
		result T
		err    error
	)
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err = fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("%s of %s succeeded on retry %d", op, path, attempt)
				metrics.FilesystemRetries.WithLabelValues(op, volume, "success").Inc()
			}
			return result, nil
		}
		if !IsStale(err) {
			return result, err
		}

		metrics.FilesystemStaleErrors.WithLabelValues(op, volume).Inc()
		if attempt == cfg.MaxRetries {
			break
		}

		metrics.FilesystemRetries.WithLabelValues(op, volume, "attempt").Inc()
		logging.Debug("Stale file handle on %s of %s, retrying in %v (attempt %d/%d)",
			op, path, backoff, attempt+1, cfg.MaxRetries)
		time.Sleep(backoff)

		backoff *= 2
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	logging.Warn("%s of %s failed after %d retries: %v", op, path, cfg.MaxRetries, err)
	metrics.FilesystemRetries.WithLabelValues(op, volume, "failure").Inc()
	return result, err
}

// Stat is os.Stat with stale handle retries.
func Stat(path string, cfg RetryConfig) (os.FileInfo, error) {
	return retry("stat", path, cfg, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// Open is os.Open with stale handle retries.
func Open(path string, cfg RetryConfig) (*os.File, error) {
	return retry("open", path, cfg, func() (*os.File, error) {
		return os.Open(path)
	})
}
