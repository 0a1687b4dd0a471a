package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-filter/internal/logging"
	"media-filter/internal/metrics"
)

// Upload statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrUploadNotFound is returned when no record matches the requested id.
var ErrUploadNotFound = errors.New("upload not found")

// Upload is one persisted upload record.
type Upload struct {
	ID            int64     `json:"id"`
	Filename      string    `json:"filename"`
	Path          string    `json:"path"`
	MimeType      string    `json:"mimeType"`
	Size          int64     `json:"size"`
	ProcessedPath string    `json:"processedPath,omitempty"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateUpload inserts a pending record and returns its id.
func (d *Database) CreateUpload(ctx context.Context, u *Upload) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_upload", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var res sql.Result
	res, err = d.db.ExecContext(ctx, `
		INSERT INTO uploads (filename, path, mime_type, size, status)
		VALUES (?, ?, ?, ?, ?)
	`, u.Filename, u.Path, u.MimeType, u.Size, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to insert upload: %w", err)
	}

	var id int64
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = id
	u.Status = StatusPending
	return id, nil
}

// SetProcessedPath stores the processed output path and marks the record
// completed.
func (d *Database) SetProcessedPath(ctx context.Context, id int64, processedPath string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_processed_path", start, err) }()

	err = d.updateStatus(ctx, id, `
		UPDATE uploads
		SET processed_path = ?, status = ?, error = NULL, updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, processedPath, StatusCompleted, id)
	return err
}

// MarkFailed marks the record failed with a short reason. The processed path
// is left empty.
func (d *Database) MarkFailed(ctx context.Context, id int64, reason string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_failed", start, err) }()

	err = d.updateStatus(ctx, id, `
		UPDATE uploads
		SET processed_path = NULL, status = ?, error = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, StatusFailed, reason, id)
	return err
}

func (d *Database) updateStatus(ctx context.Context, id int64, query string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrUploadNotFound, id)
	}
	return nil
}

const uploadColumns = `id, filename, path, mime_type, size, COALESCE(processed_path, ''), status, COALESCE(error, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUpload(row rowScanner) (*Upload, error) {
	var u Upload
	var created, updated int64
	if err := row.Scan(&u.ID, &u.Filename, &u.Path, &u.MimeType, &u.Size,
		&u.ProcessedPath, &u.Status, &u.Error, &created, &updated); err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0)
	u.UpdatedAt = time.Unix(updated, 0)
	return &u, nil
}

// GetUpload returns a single record.
func (d *Database) GetUpload(ctx context.Context, id int64) (*Upload, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_upload", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u *Upload
	u, err = scanUpload(d.db.QueryRowContext(ctx, "SELECT "+uploadColumns+" FROM uploads WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrUploadNotFound, id)
	}
	return u, err
}

// ListUploads returns the most recent records, newest first. An optional
// status restricts the result.
func (d *Database) ListUploads(ctx context.Context, status string, limit int) ([]Upload, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_uploads", start, err) }()

	if limit <= 0 || limit > 500 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("SELECT " + uploadColumns + " FROM uploads")
	args := []interface{}{}
	if status != "" {
		sb.WriteString(" WHERE status = ?")
		args = append(args, status)
	}
	sb.WriteString(" ORDER BY id DESC LIMIT ?")
	args = append(args, limit)

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close rows: %v", closeErr)
		}
	}()

	uploads := []Upload{}
	for rows.Next() {
		var u *Upload
		u, err = scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *u)
	}
	err = rows.Err()
	return uploads, err
}

// QueryStats counts records by status and media kind.
func (d *Database) QueryStats(ctx context.Context) (metrics.Stats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_stats", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s metrics.Stats
	err = d.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN mime_type LIKE 'image/%' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN mime_type LIKE 'video/%' THEN 1 ELSE 0 END), 0)
		FROM uploads
	`).Scan(&s.TotalUploads, &s.Pending, &s.Completed, &s.Failed, &s.Images, &s.Videos)
	return s, err
}

// GetStats implements metrics.StatsProvider. Errors are logged and yield
// zero counts.
func (d *Database) GetStats() metrics.Stats {
	s, err := d.QueryStats(context.Background())
	if err != nil {
		logging.Warn("failed to query upload stats: %v", err)
	}
	return s
}
