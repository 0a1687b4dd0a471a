// Package handlers provides HTTP request handlers for the media filter API.
//
// It includes handlers for:
//   - One-shot uploads that are processed and stored (/api/process and friends)
//   - Editing sessions: filters, comparison split, previews, transcode and export
//   - Raw asset handles, upload history and processed output housekeeping
//   - Health checks, version and metrics
//
// Validation errors map to 400, a video export with no processed file to 409,
// and processing failures to 500. Error bodies are JSON objects with an
// "error" field.
package handlers
