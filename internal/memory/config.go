package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"media-filter/internal/logging"
	"media-filter/internal/metrics"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left for libvips buffers and ffmpeg child processes.
const DefaultMemoryRatio = 0.75

// Source values reported in ConfigResult.
const (
	SourceGoMemLimit  = "GOMEMLIMIT"
	SourceMemoryLimit = "MEMORY_LIMIT"
	SourceNone        = "none"
)

// ConfigResult describes what ConfigureFromEnv did.
type ConfigResult struct {
	Configured     bool
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets the Go memory limit from the container limit. Call
// it early in main.
//
//   - GOMEMLIMIT, if set, is left alone and reported
//   - MEMORY_LIMIT is the container limit in bytes (Kubernetes Downward API)
//   - MEMORY_RATIO overrides DefaultMemoryRatio, in (0, 1]
func ConfigureFromEnv() ConfigResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		result := ConfigResult{Source: SourceGoMemLimit}
		if limit := currentLimit(); limit > 0 {
			result.Configured = true
			result.GoMemLimit = limit
			metrics.GoMemLimit.Set(float64(limit))
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT left unconfigured")
		return ConfigResult{Source: SourceNone}
	}

	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Ignoring invalid MEMORY_LIMIT %q", raw)
		return ConfigResult{Source: SourceNone}
	}

	ratio := parseRatio(os.Getenv("MEMORY_RATIO"))
	limit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(limit)
	metrics.GoMemLimit.Set(float64(limit))

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit)",
		FormatBytes(limit), ratio*100, FormatBytes(containerLimit))

	return ConfigResult{
		Configured:     true,
		Source:         SourceMemoryLimit,
		ContainerLimit: containerLimit,
		GoMemLimit:     limit,
		Ratio:          ratio,
	}
}

func parseRatio(raw string) float64 {
	if raw == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

// currentLimit returns the Go memory limit, or 0 when none is set.
func currentLimit() int64 {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return 0
	}
	return limit
}

// FormatBytes renders b with a binary unit, e.g. "1.5 GiB".
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
