package store

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateExportJob(ctx context.Context, job *ExportJob) error
	GetExportJob(ctx context.Context, id string) (*ExportJob, error)
	ListExportJobs(ctx context.Context, limit int) ([]*ExportJob, error)
	UpdateExportStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateExportProgress(ctx context.Context, id string, progress int) error
	UpdateExportResult(ctx context.Context, id, resultURL, resultType string) error

	GetDuration(ctx context.Context, sourceURL string) (float64, bool, error)
	PutDuration(ctx context.Context, sourceURL string, seconds float64) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateExportJob(ctx context.Context, j *ExportJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_jobs (id, kind, status, progress, clip_count, total_duration, result_url, result_type, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.Kind, j.Status, j.Progress, j.ClipCount, j.TotalDuration,
		nullString(j.ResultURL), nullString(j.ResultType), nullString(j.Error),
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetExportJob(ctx context.Context, id string) (*ExportJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, status, progress, clip_count, total_duration, result_url, result_type, error, created_at, updated_at
		FROM export_jobs WHERE id = ?
	`, id)
	return r.scanExportJob(row)
}

func (r *SQLiteRepository) scanExportJob(row *sql.Row) (*ExportJob, error) {
	var j ExportJob
	var resultURL, resultType, errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.Kind, &j.Status, &j.Progress, &j.ClipCount, &j.TotalDuration,
		&resultURL, &resultType, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.ResultURL = resultURL.String
	j.ResultType = resultType.String
	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListExportJobs(ctx context.Context, limit int) ([]*ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, status, progress, clip_count, total_duration, result_url, result_type, error, created_at, updated_at
		FROM export_jobs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*ExportJob
	for rows.Next() {
		var j ExportJob
		var resultURL, resultType, errMsg sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&j.ID, &j.Kind, &j.Status, &j.Progress, &j.ClipCount, &j.TotalDuration,
			&resultURL, &resultType, &errMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.ResultURL = resultURL.String
		j.ResultType = resultType.String
		j.Error = errMsg.String
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateExportStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) UpdateExportProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs SET progress = ?, updated_at = datetime('now') WHERE id = ?
	`, progress, id)
	return err
}

func (r *SQLiteRepository) UpdateExportResult(ctx context.Context, id, resultURL, resultType string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs SET result_url = ?, result_type = ?, updated_at = datetime('now') WHERE id = ?
	`, nullString(resultURL), nullString(resultType), id)
	return err
}

func (r *SQLiteRepository) GetDuration(ctx context.Context, sourceURL string) (float64, bool, error) {
	var seconds float64
	err := r.db.QueryRowContext(ctx,
		"SELECT duration_sec FROM duration_cache WHERE source_url = ?", sourceURL).Scan(&seconds)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return seconds, true, nil
}

func (r *SQLiteRepository) PutDuration(ctx context.Context, sourceURL string, seconds float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO duration_cache (source_url, duration_sec, probed_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(source_url) DO UPDATE SET
			duration_sec = excluded.duration_sec,
			probed_at = excluded.probed_at
	`, sourceURL, seconds)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
