// Package metrics provides Prometheus instrumentation for the media-filter
// service.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "media_filter_".
//
// # Metric Categories
//
// HTTP: request counts, durations and in-flight requests, labelled with a
// normalised route path so session IDs and handle tokens do not explode
// cardinality.
//
// Processing: transcode jobs by kind and final status, job durations, jobs in
// progress, exports by kind and status, preview render durations.
//
// State: live editing sessions, acquired asset handles, push channel
// listeners and published or dropped push events.
//
// Storage: database query counts and latency, SQLite file sizes, upload
// records by status and total processed output size. The [Collector]
// refreshes the storage gauges periodically:
//
//	collector := metrics.NewCollector(db, dbPath, outputDir, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// Filesystem: stale NFS handle errors and retry outcomes per volume.
//
// Memory: configured GOMEMLIMIT, heap allocation and their ratio, updated by
// the memory monitor.
//
// # Prometheus Queries
//
// Transcode failure ratio:
//
//	sum(rate(media_filter_transcoder_jobs_total{status="failed"}[5m])) /
//	sum(rate(media_filter_transcoder_jobs_total[5m]))
//
// P95 preview latency:
//
//	histogram_quantile(0.95, sum(rate(media_filter_preview_render_duration_seconds_bucket[5m])) by (le))
package metrics
