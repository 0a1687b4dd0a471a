// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// A .env file (or the file named by ENV_FILE) is loaded first; variables that
// are already set are not overridden. Supported variables:
//
//   - UPLOAD_DIR: Where uploaded originals are stored (default: /data/uploads)
//   - OUTPUT_DIR: Where processed files are written and served from (default: /data/processed)
//   - DATABASE_DIR: Path to database directory (default: /data/database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - FILTER_PROFILE: Parameter ranges, simple or extended (default: extended)
//   - MAX_UPLOAD_MB: Largest accepted upload in megabytes (default: 512)
//   - SESSION_TTL: Idle time before an editing session expires, 0 disables (default: 30m)
//   - PREVIEW_MAX_WIDTH: Width cap for rendered previews (default: 1280)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// # Directory Setup
//
// The database and upload directories are required and must be writable.
// The output directory is optional: when it cannot be written, processing is
// disabled and the rest of the service keeps running.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//
//	go build -ldflags "-X media-filter/internal/startup.Version=1.2.0"
package startup
