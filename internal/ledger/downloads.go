package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// fixed width so downloaded_at sorts lexically
	timeLayout       = "2006-01-02T15:04:05.000000000Z07:00"
	defaultListLimit = 50
	downloadColumns  = "file_id, path, run_id, file_name, project_id, project_name, account_id, size_bytes, sha256, downloaded_at"
)

// Download is one file written to disk by a download run.
type Download struct {
	RunID        string    `json:"run_id" yaml:"run_id"`
	FileID       string    `json:"file_id" yaml:"file_id"`
	FileName     string    `json:"file_name" yaml:"file_name"`
	ProjectID    string    `json:"project_id" yaml:"project_id"`
	ProjectName  string    `json:"project_name" yaml:"project_name"`
	AccountID    string    `json:"account_id" yaml:"account_id"`
	Path         string    `json:"path" yaml:"path"`
	SizeBytes    int64     `json:"size_bytes" yaml:"size_bytes"`
	SHA256       string    `json:"sha256" yaml:"sha256"`
	DownloadedAt time.Time `json:"downloaded_at" yaml:"downloaded_at"`
}

// ListFilter narrows ListDownloads.
type ListFilter struct {
	ProjectName string
	RunID       string
	Limit       int
}

// RecordDownload stores d, replacing an earlier record for the same file and path.
func (s *Store) RecordDownload(ctx context.Context, d Download) error {
	if d.FileID == "" || d.Path == "" {
		return fmt.Errorf("file id and path are required")
	}
	if d.DownloadedAt.IsZero() {
		d.DownloadedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO downloads (`+downloadColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(file_id, path) DO UPDATE SET
  run_id = excluded.run_id,
  file_name = excluded.file_name,
  project_id = excluded.project_id,
  project_name = excluded.project_name,
  account_id = excluded.account_id,
  size_bytes = excluded.size_bytes,
  sha256 = excluded.sha256,
  downloaded_at = excluded.downloaded_at`,
		d.FileID, d.Path, d.RunID, d.FileName, d.ProjectID, d.ProjectName, d.AccountID,
		d.SizeBytes, d.SHA256, d.DownloadedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record download %s: %w", d.FileName, err)
	}
	return nil
}

// FindDownload returns the record for fileID at path, or nil when there is none.
func (s *Store) FindDownload(ctx context.Context, fileID, path string) (*Download, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+downloadColumns+" FROM downloads WHERE file_id = ? AND path = ?", fileID, path)
	d, err := scanDownload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDownloads returns records newest first.
func (s *Store) ListDownloads(ctx context.Context, filter ListFilter) ([]Download, error) {
	var (
		where []string
		args  []any
	)
	if filter.ProjectName != "" {
		where = append(where, "project_name = ?")
		args = append(args, filter.ProjectName)
	}
	if filter.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, filter.RunID)
	}

	query := "SELECT " + downloadColumns + " FROM downloads"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY downloaded_at DESC, file_name ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Download{}
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDownload(row rowScanner) (*Download, error) {
	var (
		d            Download
		downloadedAt string
	)
	if err := row.Scan(&d.FileID, &d.Path, &d.RunID, &d.FileName, &d.ProjectID, &d.ProjectName,
		&d.AccountID, &d.SizeBytes, &d.SHA256, &downloadedAt); err != nil {
		return nil, err
	}
	parsed, err := time.Parse(timeLayout, downloadedAt)
	if err != nil {
		return nil, fmt.Errorf("parse downloaded_at %q: %w", downloadedAt, err)
	}
	d.DownloadedAt = parsed
	return &d, nil
}
