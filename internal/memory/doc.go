// Package memory configures the Go memory limit for containers and reports
// heap usage.
//
// Decoding a full-resolution image for export holds every pixel in memory,
// and libvips and ffmpeg allocate outside the Go heap. Without GOMEMLIMIT
// the garbage collector does not know about the container limit and the
// process can be OOM-killed before it collects.
//
// # Configuration
//
// Call [ConfigureFromEnv] early in main:
//
//   - GOMEMLIMIT: standard Go variable; when set it is left alone
//   - MEMORY_LIMIT: container limit in bytes, e.g. from the Downward API
//   - MEMORY_RATIO: share of MEMORY_LIMIT for the heap (default 0.75)
//
// Kubernetes example:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// # Monitoring
//
// [Monitor] samples runtime.MemStats on an interval and updates the
// media_filter_go_mem_alloc_bytes and media_filter_memory_usage_ratio gauges.
// Crossing [HighWaterMark] is logged. The monitor never throttles work.
package memory
