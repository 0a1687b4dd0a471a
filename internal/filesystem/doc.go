/*
Package filesystem retries file operations that fail with a stale NFS file
handle.

Uploads, processed outputs and the database may sit on network volumes. A
file replaced on the server side, or a brief network interruption, can make
an open or stat fail with ESTALE even though the file is fine. Open and Stat
retry exactly that error with exponential backoff; any other error is
returned at once.

	info, err := filesystem.Stat(path, filesystem.DefaultRetryConfig())

Defaults are 3 retries with a 50ms initial backoff capped at 500ms.

# Metrics

Stale errors and retry outcomes are counted per operation and volume. The
volume label comes from a VolumeResolver, set once at startup:

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
	    "uploads":   cfg.UploadDir,
	    "processed": cfg.OutputDir,
	    "database":  cfg.DatabaseDir,
	}))

Paths outside every configured volume are labelled "unknown".
*/
package filesystem
