package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lolsync/internal/config"
	"lolsync/internal/domain"
	"lolsync/internal/repository"
)

// ProgressReporter publishes the latest snapshot of each job. Within a step
// progress never goes down, steps never go back, and nothing changes once a
// job reached completed or failed.
type ProgressReporter struct {
	repo   *repository.ProgressRepository
	ttl    time.Duration
	logger zerolog.Logger

	mu sync.Mutex
}

func NewProgressReporter(repo *repository.ProgressRepository, cfg *config.Config, logger zerolog.Logger) *ProgressReporter {
	return &ProgressReporter{repo: repo, ttl: cfg.ProgressTTL, logger: logger}
}

func (r *ProgressReporter) Start(ctx context.Context, jobID string, kind domain.JobKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	return r.repo.Save(ctx, domain.Progress{
		JobID:     jobID,
		Kind:      kind,
		Status:    domain.JobStatusStarted,
		Step:      domain.StepFetchingSummoner,
		Progress:  0,
		Detail:    map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	})
}

// Update moves a job forward. detail keys are merged into the snapshot.
// Updates that would move the job backwards, to an earlier step or to lower
// progress within the same step, are dropped whole, detail included.
func (r *ProgressReporter) Update(ctx context.Context, jobID string, step domain.Step, progress int, detail map[string]any) error {
	if step.Terminal() {
		return fmt.Errorf("use Complete or Fail for step %s", step)
	}
	progress = clamp(progress)

	return r.apply(ctx, jobID, func(p *domain.Progress) bool {
		if step.Rank() < p.Step.Rank() || (step == p.Step && progress < p.Progress) {
			return false
		}
		p.Status = domain.JobStatusProgress
		p.Step = step
		p.Progress = progress
		for k, v := range detail {
			p.Detail[k] = v
		}
		return true
	})
}

func (r *ProgressReporter) Complete(ctx context.Context, jobID string, result domain.SyncResult) error {
	return r.apply(ctx, jobID, func(p *domain.Progress) bool {
		p.Status = domain.JobStatusSuccess
		p.Step = domain.StepCompleted
		p.Progress = 100
		p.Result = &result
		return true
	})
}

// Fail marks the job failed. result may carry what was done before the
// failure and may be nil.
func (r *ProgressReporter) Fail(ctx context.Context, jobID string, cause error, result *domain.SyncResult) error {
	return r.apply(ctx, jobID, func(p *domain.Progress) bool {
		p.Status = domain.JobStatusFailure
		p.Step = domain.StepFailed
		p.Error = cause.Error()
		p.Detail["error_kind"] = domain.KindOf(cause)
		p.Result = result
		return true
	})
}

func (r *ProgressReporter) Get(ctx context.Context, jobID string) (*domain.Progress, error) {
	return r.repo.Get(ctx, jobID)
}

func (r *ProgressReporter) apply(ctx context.Context, jobID string, mutate func(p *domain.Progress) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.repo.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if p.Step.Terminal() {
		r.logger.Debug().Str("job_id", jobID).Str("step", string(p.Step)).Msg("ignoring update of finished job")
		return nil
	}
	if p.Detail == nil {
		p.Detail = map[string]any{}
	}
	if !mutate(p) {
		return nil
	}

	now := time.Now().UTC()
	p.UpdatedAt = now
	p.ExpiresAt = now.Add(r.ttl)
	if err := r.repo.Save(ctx, *p); err != nil {
		if errors.Is(err, domain.ErrStoreConflict) {
			r.logger.Warn().Err(err).Str("job_id", jobID).Msg("progress write contended")
		}
		return err
	}
	return nil
}

func clamp(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
