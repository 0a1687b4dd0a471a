package metrics

import "testing"

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
		{"DBQueryTotal", DBQueryTotal},
		{"DBQueryDuration", DBQueryDuration},
		{"DBSizeBytes", DBSizeBytes},
		{"UploadsTotal", UploadsTotal},
		{"UploadRequestsTotal", UploadRequestsTotal},
		{"TranscoderJobsTotal", TranscoderJobsTotal},
		{"TranscoderJobDuration", TranscoderJobDuration},
		{"TranscoderJobsInProgress", TranscoderJobsInProgress},
		{"TranscoderOutputBytes", TranscoderOutputBytes},
		{"ExportsTotal", ExportsTotal},
		{"ExportDuration", ExportDuration},
		{"PreviewRendersTotal", PreviewRendersTotal},
		{"PreviewRenderDuration", PreviewRenderDuration},
		{"ActiveSessions", ActiveSessions},
		{"ActiveHandles", ActiveHandles},
		{"PushClients", PushClients},
		{"PushEventsTotal", PushEventsTotal},
		{"FilesystemStaleErrors", FilesystemStaleErrors},
		{"FilesystemRetries", FilesystemRetries},
		{"GoMemLimit", GoMemLimit},
		{"GoMemAllocBytes", GoMemAllocBytes},
		{"MemoryUsageRatio", MemoryUsageRatio},
		{"AppInfo", AppInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestMetricOperations(_ *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/api/effect", "200").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/api/effect").Observe(0.01)
	HTTPRequestsInFlight.Inc()
	HTTPRequestsInFlight.Dec()

	TranscoderJobsTotal.WithLabelValues("video", "completed").Inc()
	TranscoderJobDuration.WithLabelValues("video").Observe(3.5)
	TranscoderJobsInProgress.Inc()
	TranscoderJobsInProgress.Dec()

	ExportsTotal.WithLabelValues("image", "success").Inc()
	ExportDuration.WithLabelValues("image").Observe(0.2)
	PreviewRendersTotal.WithLabelValues("image", "success").Inc()
	PreviewRenderDuration.WithLabelValues("image").Observe(0.02)

	ActiveSessions.Set(3)
	ActiveHandles.Set(3)
	PushClients.Set(1)

	FilesystemStaleErrors.WithLabelValues("open", "uploads").Inc()
	FilesystemRetries.WithLabelValues("open", "uploads", "attempt").Inc()
	GoMemLimit.Set(1 << 30)
	GoMemAllocBytes.Set(64 << 20)
	MemoryUsageRatio.Set(0.0625)
	PushEventsTotal.WithLabelValues("dropped").Inc()
}

func TestInitializeMetrics(_ *testing.T) {
	// Must be safe to call more than once.
	InitializeMetrics()
	InitializeMetrics()
}

func TestSetAppInfo(_ *testing.T) {
	SetAppInfo("1.0.0", "abc123", "go1.25")
}
