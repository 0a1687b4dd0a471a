package memory

import (
	"math"
	"runtime"
	"sync"
	"time"

	"media-filter/internal/logging"
	"media-filter/internal/metrics"
)

// HighWaterMark is the usage ratio above which the monitor logs a warning.
const HighWaterMark = 0.85

// Monitor samples heap usage against the Go memory limit and exports it as
// metrics. It reports only; processing is never paused.
type Monitor struct {
	interval time.Duration
	limit    int64

	mu    sync.RWMutex
	alloc uint64
	high  bool

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a monitor that samples every interval. The limit is the
// Go memory limit at creation time.
func NewMonitor(interval time.Duration) *Monitor {
	return &Monitor{
		interval: interval,
		limit:    currentLimit(),
		stopChan: make(chan struct{}),
	}
}

// Start samples once and then in the background until Stop.
func (m *Monitor) Start() {
	m.sample()
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sample()
			case <-m.stopChan:
				return
			}
		}
	}()
}

// Stop ends background sampling. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) sample() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	m.record(stats.Alloc)
}

func (m *Monitor) record(alloc uint64) {
	m.mu.Lock()
	m.alloc = alloc
	usage := m.usageLocked()
	wasHigh := m.high
	m.high = m.limit > 0 && usage >= HighWaterMark
	nowHigh := m.high
	m.mu.Unlock()

	metrics.GoMemAllocBytes.Set(float64(alloc))
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case nowHigh && !wasHigh:
		logging.Warn("Memory usage high: %s of %s (%.0f%%)", FormatBytes(clampInt64(alloc)), FormatBytes(m.limit), usage*100)
	case wasHigh && !nowHigh:
		logging.Info("Memory usage back to %.0f%% of limit", usage*100)
	}
}

func (m *Monitor) usageLocked() float64 {
	if m.limit <= 0 {
		return 0
	}
	return float64(m.alloc) / float64(m.limit)
}

// Usage returns heap allocation as a ratio of the limit, or 0 without a limit.
func (m *Monitor) Usage() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usageLocked()
}

// Stats returns the last sampled allocation, the limit and their ratio.
func (m *Monitor) Stats() (alloc, limit int64, usage float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clampInt64(m.alloc), m.limit, m.usageLocked()
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
