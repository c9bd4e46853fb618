package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"lolsync/internal/db"
	"lolsync/internal/domain"
)

// ProgressRepository keeps the latest snapshot of each job until it expires.
type ProgressRepository struct {
	queries *db.Queries
	logger  zerolog.Logger
}

func NewProgressRepository(sqlDB *sql.DB, logger zerolog.Logger) *ProgressRepository {
	return &ProgressRepository{queries: db.New(sqlDB), logger: logger}
}

func (r *ProgressRepository) Get(ctx context.Context, jobID string) (*domain.Progress, error) {
	row, err := r.queries.GetJobProgress(ctx, db.GetJobProgressParams{JobID: jobID, Now: time.Now().UTC()})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress of %s: %w", jobID, err)
	}

	p := &domain.Progress{
		JobID:     row.JobID,
		Kind:      domain.JobKind(row.Kind),
		Status:    domain.JobStatus(row.Status),
		Step:      domain.Step(row.Step),
		Progress:  int(row.Progress),
		Error:     row.Error,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		ExpiresAt: row.ExpiresAt,
	}
	if err := json.Unmarshal([]byte(row.Detail), &p.Detail); err != nil {
		return nil, fmt.Errorf("failed to decode detail of %s: %w", jobID, err)
	}
	if row.Result.Valid {
		p.Result = &domain.SyncResult{}
		if err := json.Unmarshal([]byte(row.Result.String), p.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result of %s: %w", jobID, err)
		}
	}
	return p, nil
}

func (r *ProgressRepository) Save(ctx context.Context, p domain.Progress) error {
	detail, err := json.Marshal(p.Detail)
	if err != nil {
		return fmt.Errorf("failed to encode detail: %w", err)
	}
	if p.Detail == nil {
		detail = []byte("{}")
	}
	var result sql.NullString
	if p.Result != nil {
		b, err := json.Marshal(p.Result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		result = sql.NullString{String: string(b), Valid: true}
	}

	err = r.queries.SaveJobProgress(ctx, db.JobProgress{
		JobID:     p.JobID,
		Kind:      string(p.Kind),
		Status:    string(p.Status),
		Step:      string(p.Step),
		Progress:  int64(p.Progress),
		Detail:    string(detail),
		Result:    result,
		Error:     p.Error,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
		ExpiresAt: p.ExpiresAt.UTC(),
	})
	if err != nil {
		return classify(fmt.Errorf("failed to save progress of %s: %w", p.JobID, err))
	}
	return nil
}

func (r *ProgressRepository) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := r.queries.DeleteExpiredJobProgress(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired progress: %w", err)
	}
	if n > 0 {
		r.logger.Info().Int64("deleted", n).Msg("purged expired job progress")
	}
	return n, nil
}
