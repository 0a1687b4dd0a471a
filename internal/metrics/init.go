package metrics

// Label values shared by the instrumented packages.
var (
	Kinds        = []string{"image", "video"}
	JobStatuses  = []string{"completed", "failed"}
	Volumes      = []string{"uploads", "processed", "database", "unknown"}
	DBOperations = []string{
		"initialize_schema", "create_upload", "set_processed_path", "mark_failed",
		"get_upload", "list_uploads", "get_stats",
	}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, status := range []string{"pending", "completed", "failed"} {
		UploadsTotal.WithLabelValues(status)
	}

	for _, result := range []string{"accepted", "rejected", "too_large", "error"} {
		UploadRequestsTotal.WithLabelValues(result)
	}

	for _, kind := range Kinds {
		for _, status := range JobStatuses {
			TranscoderJobsTotal.WithLabelValues(kind, status)
		}
		TranscoderJobDuration.WithLabelValues(kind)

		for _, status := range []string{"success", "error", "not_ready"} {
			ExportsTotal.WithLabelValues(kind, status)
		}
		ExportDuration.WithLabelValues(kind)

		PreviewRendersTotal.WithLabelValues(kind, "success")
		PreviewRendersTotal.WithLabelValues(kind, "error")
		PreviewRenderDuration.WithLabelValues(kind)
	}

	for _, result := range []string{"published", "dropped"} {
		PushEventsTotal.WithLabelValues(result)
	}

	for _, op := range []string{"stat", "open"} {
		for _, volume := range Volumes {
			FilesystemStaleErrors.WithLabelValues(op, volume)
			for _, outcome := range []string{"attempt", "success", "failure"} {
				FilesystemRetries.WithLabelValues(op, volume, outcome)
			}
		}
	}

	for _, op := range DBOperations {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
