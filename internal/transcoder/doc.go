// Package transcoder is the server-authoritative processor for uploads.
//
// A job moves through Received, Validated, Processing and finally Completed
// or Failed. Images are decoded, filtered with the same effect the preview
// uses and re-encoded. Videos are re-encoded by FFmpeg with the equivalent
// filter chain. Each job writes to a new, uniquely named file in the output
// directory, so retries never overwrite an earlier result.
//
// FFmpeg must be installed and available in the system PATH for video jobs.
package transcoder
