package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lolsync/internal/config"
	"lolsync/internal/constants"
	"lolsync/internal/domain"
	"lolsync/internal/metrics"
)

// SyncService runs sync and recovery jobs. Both reconcile a player's remote
// matches for one year with the store, ingest what is missing and verify the
// yearly aggregate. Sync resolves the player remotely; recovery only works
// for players already stored.
type SyncService struct {
	players    *PlayerService
	planner    *Planner
	ingester   *Ingester
	aggregator *Aggregator
	progress   *ProgressReporter
	dispatcher *Dispatcher
	policies   RetryPolicies

	defaultYear int
	logger      zerolog.Logger
}

func NewSyncService(
	players *PlayerService,
	planner *Planner,
	ingester *Ingester,
	aggregator *Aggregator,
	progress *ProgressReporter,
	dispatcher *Dispatcher,
	cfg *config.Config,
	logger zerolog.Logger,
) *SyncService {
	return &SyncService{
		players:     players,
		planner:     planner,
		ingester:    ingester,
		aggregator:  aggregator,
		progress:    progress,
		dispatcher:  dispatcher,
		policies:    DefaultRetryPolicies,
		defaultYear: cfg.DefaultMatchYear,
		logger:      logger,
	}
}

func (s *SyncService) SubmitSync(ctx context.Context, req domain.SyncRequest) (string, error) {
	return s.submit(ctx, domain.JobKindSync, req)
}

func (s *SyncService) SubmitRecovery(ctx context.Context, req domain.SyncRequest) (string, error) {
	return s.submit(ctx, domain.JobKindRecovery, req)
}

func (s *SyncService) Progress(ctx context.Context, jobID string) (*domain.Progress, error) {
	return s.progress.Get(ctx, jobID)
}

// Normalize applies the service defaults to req.
func (s *SyncService) Normalize(req domain.SyncRequest) domain.SyncRequest {
	return req.Normalize(s.defaultYear)
}

func (s *SyncService) submit(ctx context.Context, kind domain.JobKind, req domain.SyncRequest) (string, error) {
	req = s.Normalize(req)
	jobID := uuid.NewString()

	if err := s.progress.Start(ctx, jobID, kind); err != nil {
		return "", fmt.Errorf("failed to start job: %w", err)
	}

	s.dispatcher.Submit(func() {
		jobCtx, cancel := context.WithTimeout(s.dispatcher.Context(), constants.JobTimeout)
		defer cancel()
		_, _ = s.Run(jobCtx, jobID, kind, req)
	})

	s.logger.Info().Str("job_id", jobID).Str("kind", string(kind)).Str("name", req.GameName).Int("year", req.Year).Msg("job submitted")
	return jobID, nil
}

// Run executes a job to completion and records its progress under jobID,
// which must have been started. Only player resolution and planning fail the
// job; unit failures are collected into the result.
func (s *SyncService) Run(ctx context.Context, jobID string, kind domain.JobKind, req domain.SyncRequest) (domain.SyncResult, error) {
	req = s.Normalize(req)
	logger := s.logger.With().Str("job_id", jobID).Str("kind", string(kind)).Logger()
	started := time.Now()
	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	result := domain.SyncResult{Year: req.Year}
	fail := func(err error) (domain.SyncResult, error) {
		logger.Error().Err(err).Msg("job failed")
		if perr := s.progress.Fail(context.WithoutCancel(ctx), jobID, err, &result); perr != nil {
			logger.Error().Err(perr).Msg("failed to record job failure")
		}
		metrics.JobDuration.WithLabelValues(string(kind), string(domain.JobStatusFailure)).Observe(time.Since(started).Seconds())
		return result, err
	}

	s.update(ctx, logger, jobID, domain.StepFetchingSummoner, constants.ProgressFetchingPlayer, map[string]any{
		"current_item": req.GameName + "#" + req.TagLine,
	})

	var player *domain.Player
	err := Retry(ctx, s.policies.Player, logger, func(ctx context.Context) error {
		var err error
		if kind == domain.JobKindRecovery {
			player, err = s.players.FindLocal(ctx, req)
		} else {
			player, err = s.players.Resolve(ctx, req)
		}
		return err
	})
	if err != nil {
		return fail(err)
	}
	result.PlayerID = player.ID
	result.PlayerName = player.GameName + "#" + player.TagLine
	logger = logger.With().Str("player_id", player.ID).Logger()

	s.update(ctx, logger, jobID, domain.StepFetchingMatches, constants.ProgressFetchingIDs, map[string]any{
		"player_id": player.ID,
	})

	plan, err := s.planner.Plan(ctx, *player, req.Year)
	if err != nil {
		return fail(err)
	}
	result.Counts = domain.Counts{
		Total:    len(plan.All),
		Existing: len(plan.Existing),
		Missing:  len(plan.Missing),
	}

	s.update(ctx, logger, jobID, domain.StepProcessingMatches, constants.ProgressMatchesStart, map[string]any{
		"counts": result.Counts,
	})

	s.ingestMatches(ctx, logger, jobID, *player, plan, &result)
	s.ingestTimelines(ctx, logger, jobID, *player, plan.MissingTimelines, &result)
	sortFailures(result.Failures)
	sortFailures(result.FailedTimelines)

	if ctx.Err() != nil {
		return fail(ctx.Err())
	}

	s.update(ctx, logger, jobID, domain.StepUpdatingStats, constants.ProgressUpdatingStats, map[string]any{
		"counts":       result.Counts,
		"current_item": "",
	})
	drifted, err := s.aggregator.Verify(ctx, player.ID, req.Year)
	if err != nil {
		logger.Warn().Err(err).Msg("aggregate verification failed")
	}
	result.DriftCorrected = len(drifted) > 0

	if err := s.progress.Complete(ctx, jobID, result); err != nil {
		logger.Error().Err(err).Msg("failed to record job completion")
	}
	metrics.JobDuration.WithLabelValues(string(kind), string(domain.JobStatusSuccess)).Observe(time.Since(started).Seconds())
	logger.Info().
		Int("total", result.Counts.Total).
		Int("processed", result.Counts.Processed).
		Int("failed", result.Counts.Failed).
		Int("timelines", result.ProcessedTimelines).
		Bool("drift_corrected", result.DriftCorrected).
		Msg("job completed")
	return result, nil
}

// ingestMatches runs one unit per missing match on the unit pool. A stored
// match gets its timeline right after.
func (s *SyncService) ingestMatches(ctx context.Context, logger zerolog.Logger, jobID string, player domain.Player, plan Plan, result *domain.SyncResult) {
	var (
		mu   sync.Mutex
		done int
	)
	total := len(plan.Missing)

	RunUnits(s.dispatcher, plan.Missing, func(matchID string) {
		unit := domain.MatchUnit{MatchID: matchID, Platform: player.Platform, Routing: player.Routing}
		err := Retry(ctx, s.policies.Match, logger, func(ctx context.Context) error {
			_, err := s.ingester.IngestMatch(ctx, unit)
			return err
		})

		var tlErr error
		tlCreated := false
		if err == nil {
			tlErr = Retry(ctx, s.policies.Timeline, logger, func(ctx context.Context) error {
				var err error
				tlCreated, err = s.ingester.IngestTimeline(ctx, unit)
				return err
			})
		}

		mu.Lock()
		done++
		if err != nil {
			result.Counts.Failed++
			result.Failures = append(result.Failures, unitFailure(matchID, err))
			metrics.UnitsProcessed.WithLabelValues("match", "failed").Inc()
			logger.Warn().Err(err).Str("match_id", matchID).Msg("match unit failed")
		} else {
			result.Counts.Processed++
			metrics.UnitsProcessed.WithLabelValues("match", "ok").Inc()
			recordTimeline(result, matchID, tlCreated, tlErr)
		}
		progress := constants.ProgressMatchesStart + (constants.ProgressMatchesEnd-constants.ProgressMatchesStart)*done/total
		// published under mu so snapshots of one job land in order
		s.update(ctx, logger, jobID, domain.StepProcessingMatches, progress, map[string]any{
			"counts":       result.Counts,
			"current_item": matchID,
		})
		mu.Unlock()
	})
}

// ingestTimelines fills timelines of matches that were stored without one.
func (s *SyncService) ingestTimelines(ctx context.Context, logger zerolog.Logger, jobID string, player domain.Player, matchIDs []string, result *domain.SyncResult) {
	var (
		mu   sync.Mutex
		done int
	)
	total := len(matchIDs)

	RunUnits(s.dispatcher, matchIDs, func(matchID string) {
		unit := domain.MatchUnit{MatchID: matchID, Platform: player.Platform, Routing: player.Routing}
		created := false
		err := Retry(ctx, s.policies.Timeline, logger, func(ctx context.Context) error {
			var err error
			created, err = s.ingester.IngestTimeline(ctx, unit)
			return err
		})

		mu.Lock()
		done++
		recordTimeline(result, matchID, created, err)
		progress := constants.ProgressMatchesEnd + (constants.ProgressTimelinesEnd-constants.ProgressMatchesEnd)*done/total
		s.update(ctx, logger, jobID, domain.StepProcessingMatches, progress, map[string]any{"current_item": matchID})
		mu.Unlock()
	})
}

func (s *SyncService) update(ctx context.Context, logger zerolog.Logger, jobID string, step domain.Step, progress int, detail map[string]any) {
	if err := s.progress.Update(ctx, jobID, step, progress, detail); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn().Err(err).Str("step", string(step)).Msg("failed to record progress")
	}
}

func recordTimeline(result *domain.SyncResult, matchID string, created bool, err error) {
	switch {
	case err != nil:
		result.FailedTimelines = append(result.FailedTimelines, unitFailure(matchID, err))
		metrics.UnitsProcessed.WithLabelValues("timeline", "failed").Inc()
	case created:
		result.ProcessedTimelines++
		metrics.UnitsProcessed.WithLabelValues("timeline", "ok").Inc()
	}
}

func sortFailures(f []domain.UnitFailure) {
	sort.Slice(f, func(i, j int) bool { return f[i].MatchID < f[j].MatchID })
}

func unitFailure(matchID string, err error) domain.UnitFailure {
	return domain.UnitFailure{MatchID: matchID, Kind: domain.KindOf(err), Message: err.Error()}
}
