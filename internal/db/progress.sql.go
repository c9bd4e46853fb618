package db

import (
	"context"
	"time"
)

const getJobProgress = `SELECT job_id, kind, status, step, progress, detail, result, error, created_at, updated_at, expires_at
FROM job_progress WHERE job_id = ? AND expires_at > ?`

type GetJobProgressParams struct {
	JobID string
	Now   time.Time
}

func (q *Queries) GetJobProgress(ctx context.Context, arg GetJobProgressParams) (JobProgress, error) {
	row := q.db.QueryRowContext(ctx, getJobProgress, arg.JobID, arg.Now)
	var i JobProgress
	err := row.Scan(
		&i.JobID,
		&i.Kind,
		&i.Status,
		&i.Step,
		&i.Progress,
		&i.Detail,
		&i.Result,
		&i.Error,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.ExpiresAt,
	)
	return i, err
}

const saveJobProgress = `INSERT INTO job_progress (job_id, kind, status, step, progress, detail, result, error, created_at, updated_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (job_id) DO UPDATE SET
    status = excluded.status,
    step = excluded.step,
    progress = excluded.progress,
    detail = excluded.detail,
    result = excluded.result,
    error = excluded.error,
    updated_at = excluded.updated_at,
    expires_at = excluded.expires_at`

// SaveJobProgress replaces the snapshot of a job; kind and created_at keep
// their first values.
func (q *Queries) SaveJobProgress(ctx context.Context, arg JobProgress) error {
	_, err := q.db.ExecContext(ctx, saveJobProgress,
		arg.JobID,
		arg.Kind,
		arg.Status,
		arg.Step,
		arg.Progress,
		arg.Detail,
		arg.Result,
		arg.Error,
		arg.CreatedAt,
		arg.UpdatedAt,
		arg.ExpiresAt,
	)
	return err
}

const deleteExpiredJobProgress = `DELETE FROM job_progress WHERE expires_at <= ?`

func (q *Queries) DeleteExpiredJobProgress(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredJobProgress, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
