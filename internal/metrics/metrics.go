package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_filter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_filter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_filter_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_filter_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_filter_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_filter_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)

	UploadsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_filter_uploads",
			Help: "Number of upload records by status",
		},
		[]string{"status"},
	)

	UploadRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_filter_upload_requests_total",
			Help: "Total number of received uploads by result",
		},
		[]string{"result"}, // "accepted", "rejected", "too_large", "error"
	)
)

// Transcoder metrics
var (
	TranscoderJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_filter_transcoder_jobs_total",
			Help: "Total number of transcode jobs by media kind and final status",
		},
		[]string{"kind", "status"},
	)

	TranscoderJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_filter_transcoder_job_duration_seconds",
			Help:    "Transcode job duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	TranscoderJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_filter_transcoder_jobs_in_progress",
			Help: "Number of transcode jobs currently processing",
		},
	)

	TranscoderOutputBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_filter_transcoder_output_bytes",
			Help: "Total size of processed outputs on disk",
		},
	)
)

// Export and preview metrics
var (
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_filter_exports_total",
			Help: "Total number of export requests by media kind and status",
		},
		[]string{"kind", "status"},
	)

	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_filter_export_duration_seconds",
			Help:    "Export duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 60},
		},
		[]string{"kind"},
	)

	PreviewRendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_filter_preview_renders_total",
			Help: "Total number of preview renders by media kind and status",
		},
		[]string{"kind", "status"},
	)

	PreviewRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_filter_preview_render_duration_seconds",
			Help:    "Preview render duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind"},
	)
)

// Session metrics
var (
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_filter_active_sessions",
			Help: "Number of live editing sessions",
		},
	)

	ActiveHandles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_filter_active_handles",
			Help: "Number of asset handles currently acquired",
		},
	)
)

// Push channel metrics
var (
	PushClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_filter_push_clients",
			Help: "Number of connected push channel listeners",
		},
	)

	PushEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_filter_push_events_total",
			Help: "Total number of push events by result",
		},
		[]string{"result"}, // "published", "dropped"
	)
)

// Filesystem metrics
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_filter_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors by operation and volume",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_filter_filesystem_retries_total",
			Help: "Total number of filesystem retries by operation, volume and outcome",
		},
		[]string{"operation", "volume", "outcome"}, // "attempt", "success", "failure"
	)
)

// Memory metrics
var (
	GoMemLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_filter_go_memlimit_bytes",
			Help: "Configured GOMEMLIMIT in bytes (0 if unset)",
		},
	)

	GoMemAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_filter_go_mem_alloc_bytes",
			Help: "Current Go heap allocation in bytes",
		},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_filter_memory_usage_ratio",
			Help: "Go heap allocation as a ratio of GOMEMLIMIT",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_filter_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
