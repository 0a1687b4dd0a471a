// Package logging provides the leveled logger used across the media-filter
// service.
//
// Levels, from most to least verbose:
//   - DEBUG: filter chains, ffmpeg arguments, session lifecycle
//   - INFO: startup, completed jobs, exports
//   - WARN: recoverable failures such as dropped push events
//   - ERROR: failed jobs and I/O errors
//   - FATAL: startup errors that terminate the process
//
// The level comes from LOG_LEVEL (or DEBUG=true) and can be overridden with
// SetLevel once configuration has been loaded. Component loggers created with
// For prefix every line with the component name:
//
//	log := logging.For("transcoder")
//	log.Info("job %s completed in %v", id, elapsed)
//	// [INFO] [transcoder] job 0191... completed in 1.2s
package logging
