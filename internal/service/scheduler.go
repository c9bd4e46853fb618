package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lolsync/internal/config"
	"lolsync/internal/constants"
	"lolsync/internal/domain"
	"lolsync/internal/repository"
)

// Scheduler submits a recovery job for every tracked player at a fixed
// interval and purges expired progress snapshots.
type Scheduler struct {
	sync     *SyncService
	players  *PlayerService
	progress *repository.ProgressRepository

	interval    time.Duration
	defaultYear int
	logger      zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(syncService *SyncService, players *PlayerService, progress *repository.ProgressRepository, cfg *config.Config, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		sync:        syncService,
		players:     players,
		progress:    progress,
		interval:    cfg.AutoRecoveryInterval,
		defaultYear: cfg.DefaultMatchYear,
		logger:      logger.With().Str("component", "scheduler").Logger(),
	}
}

func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.interval > 0 {
		s.every(ctx, s.interval, func(ctx context.Context) {
			if _, err := s.RecoverAll(ctx); err != nil {
				s.logger.Error().Err(err).Msg("auto recovery failed")
			}
		})
	} else {
		s.logger.Info().Msg("auto recovery disabled")
	}
	s.every(ctx, constants.ProgressPurgeInterval, func(ctx context.Context) {
		if _, err := s.progress.PurgeExpired(ctx); err != nil {
			s.logger.Error().Err(err).Msg("progress purge failed")
		}
	})
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// RecoverAll submits one recovery job per tracked player for the default
// year and returns the job ids.
func (s *Scheduler) RecoverAll(ctx context.Context) ([]string, error) {
	players, err := s.players.List(ctx)
	if err != nil {
		return nil, err
	}

	jobIDs := make([]string, 0, len(players))
	for _, p := range players {
		jobID, err := s.sync.SubmitRecovery(ctx, domain.SyncRequest{
			GameName: p.GameName,
			TagLine:  p.TagLine,
			Platform: p.Platform,
			Routing:  p.Routing,
			Year:     s.defaultYear,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("player_id", p.ID).Msg("failed to submit recovery")
			continue
		}
		jobIDs = append(jobIDs, jobID)
	}
	s.logger.Info().Int("players", len(players)).Int("submitted", len(jobIDs)).Msg("auto recovery submitted")
	return jobIDs, nil
}

func (s *Scheduler) every(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}
