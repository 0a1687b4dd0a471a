// Package main provides the entry point for the Media Filter service.
//
// Media Filter accepts image and video uploads, applies a grayscale
// brightness/contrast/sharpness adjustment, and returns the processed file.
// Interactive editing sessions give clients a live before/after comparison
// preview and an export of the result.
//
// # Application Lifecycle
//
//  1. Memory Configuration: GOMEMLIMIT from MEMORY_LIMIT (container limit)
//  2. Configuration Loading: reads .env and environment variables, validates directories
//  3. libvips Initialization: enables the fallback decoder for large and exotic images
//  4. Database Initialization: opens the SQLite upload log
//  5. Component Initialization:
//     - Push Hub: WebSocket broadcast of processedVideo events
//     - Transcoder: imaging for stills, FFmpeg for videos
//     - Session Manager: editing sessions with idle expiry
//     - Metrics Collector: upload counts and disk usage gauges
//     - Memory Monitor: heap usage against GOMEMLIMIT
//  6. HTTP Server Setup: routes, middleware and the optional metrics server
//  7. Graceful Shutdown: SIGINT/SIGTERM stops every component in order
//
// # HTTP Server
//
// The main server (default port 8080) serves:
//
//   - /api/process, /api/image/process, /api/video/process: one-shot processing
//   - /api/sessions/...: editing sessions, preview, transcode and export
//   - /api/effect, /api/profile: stateless filter descriptors
//   - /api/handles/{token}: raw bytes of a session's current file
//   - /api/uploads: the upload log
//   - /ws: push channel
//   - /uploads/: processed files
//   - /health, /healthz, /livez, /readyz, /version
//
// The metrics server (default port 9090) serves /metrics and /health.
//
// # Environment Variables
//
//   - UPLOAD_DIR: where received uploads are stored (default /data/uploads)
//   - OUTPUT_DIR: where processed files are written (default /data/processed)
//   - DATABASE_DIR: directory for the SQLite database (default /data/database)
//   - PORT, METRICS_PORT, METRICS_ENABLED
//   - FILTER_PROFILE: simple or extended (default extended)
//   - MAX_UPLOAD_MB: upload size limit (default 512)
//   - SESSION_TTL: idle session expiry (default 30m, 0 disables)
//   - PREVIEW_MAX_WIDTH: preview width cap in pixels (default 1280)
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS
//   - ENV_FILE: optional dotenv file (default .env)
//   - MEMORY_LIMIT, MEMORY_RATIO: container memory limit and heap share
//
// # Build Requirements
//
// CGO is required for SQLite and libvips. FFmpeg and ffprobe must be on PATH
// for video processing and video previews.
//
//	go build -o media-filter ./cmd/media-filter
package main
