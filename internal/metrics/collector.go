package metrics

import (
	"os"
	"path/filepath"
	"time"

	"media-filter/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds upload record counts.
type Stats struct {
	TotalUploads int `json:"totalUploads"`
	Pending      int `json:"pending"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	Images       int `json:"images"`
	Videos       int `json:"videos"`
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	outputDir     string
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector. dbPath and outputDir may be
// empty to skip the corresponding size gauges.
func NewCollector(provider StatsProvider, dbPath, outputDir string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		outputDir:     outputDir,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider != nil {
		stats := c.statsProvider.GetStats()
		UploadsTotal.WithLabelValues("pending").Set(float64(stats.Pending))
		UploadsTotal.WithLabelValues("completed").Set(float64(stats.Completed))
		UploadsTotal.WithLabelValues("failed").Set(float64(stats.Failed))
		logging.Debug("Metrics collected: uploads=%d, completed=%d, failed=%d",
			stats.TotalUploads, stats.Completed, stats.Failed)
	}

	if c.dbPath != "" {
		for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
			var size int64
			if info, err := os.Stat(c.dbPath + suffix); err == nil {
				size = info.Size()
			}
			DBSizeBytes.WithLabelValues(label).Set(float64(size))
		}
	}

	if c.outputDir != "" {
		TranscoderOutputBytes.Set(float64(DirSize(c.outputDir)))
	}
}

// DirSize sums the sizes of regular files under dir. Unreadable entries are skipped.
func DirSize(dir string) int64 {
	var size int64
	_ = filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
