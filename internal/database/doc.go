// Package database persists upload records in SQLite.
//
// Each accepted upload gets one row in the uploads table holding the original
// filename, its storage path, mime type and size. Once processing finishes the
// processed path is written back and the status becomes "completed"; failed
// jobs are marked "failed" with a short reason. Uploads rejected during
// validation never reach the database.
//
// The database runs in WAL mode with a busy timeout so that concurrent jobs
// can record results without "database is locked" errors. Every query records
// Prometheus metrics through recordQuery.
package database
