package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"lolsync/internal/config"
	"lolsync/internal/database"
	"lolsync/internal/domain"
	"lolsync/internal/repository"
)

const testYear = 2025

var inYear = time.Date(testYear, time.March, 1, 18, 0, 0, 0, time.UTC)

type harness struct {
	db     *sql.DB
	source *fakeSource
	cfg    *config.Config

	players      *repository.PlayerRepository
	matches      *repository.MatchRepository
	aggregates   *repository.AggregateRepository
	progressRepo *repository.ProgressRepository

	playerService *PlayerService
	aggregator    *Aggregator
	ingester      *Ingester
	planner       *Planner
	reporter      *ProgressReporter
	dispatcher    *Dispatcher
	sync          *SyncService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zerolog.Nop()

	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "lolsync.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	h := &harness{
		db:     sqlDB,
		source: newFakeSource(),
		cfg: &config.Config{
			DefaultMatchYear: testYear,
			UnitWorkers:      4,
			JobWorkers:       2,
			ProgressTTL:      time.Hour,
		},
	}
	h.players = repository.NewPlayerRepository(sqlDB, logger)
	h.matches = repository.NewMatchRepository(sqlDB, logger)
	h.aggregates = repository.NewAggregateRepository(sqlDB, logger)
	h.progressRepo = repository.NewProgressRepository(sqlDB, logger)

	h.playerService = NewPlayerService(h.source, h.players, logger)
	h.aggregator = NewAggregator(sqlDB, h.players, h.matches, h.aggregates, logger)
	h.ingester = NewIngester(sqlDB, h.source, h.players, h.matches, h.aggregator, logger)
	h.planner = NewPlanner(h.source, h.matches, logger)
	h.reporter = NewProgressReporter(h.progressRepo, h.cfg, logger)
	h.dispatcher = NewDispatcher(h.cfg, logger)
	t.Cleanup(h.dispatcher.Stop)

	h.sync = NewSyncService(h.playerService, h.planner, h.ingester, h.aggregator, h.reporter, h.dispatcher, h.cfg, logger)
	h.sync.policies = RetryPolicies{Match: fastPolicy, Timeline: fastPolicy, Player: fastPolicy}
	return h
}

// run executes a job in the foreground and returns its final snapshot.
func (h *harness) run(t *testing.T, kind domain.JobKind, req domain.SyncRequest) (domain.SyncResult, *domain.Progress, error) {
	t.Helper()
	ctx := context.Background()

	jobID := uuid.NewString()
	require.NoError(t, h.reporter.Start(ctx, jobID, kind))
	res, err := h.sync.Run(ctx, jobID, kind, req)

	p, perr := h.reporter.Get(ctx, jobID)
	require.NoError(t, perr)
	return res, p, err
}

// trackedPlayer registers an account and resolves it into the store.
func (h *harness) trackedPlayer(t *testing.T, name, tag, puuid string) *domain.Player {
	t.Helper()
	h.source.addAccount(name, tag, puuid)
	p, err := h.playerService.Resolve(context.Background(), domain.SyncRequest{GameName: name, TagLine: tag}.Normalize(testYear))
	require.NoError(t, err)
	return p
}

func (h *harness) aggregate(t *testing.T, playerID string) domain.YearlyAggregate {
	t.Helper()
	agg, err := h.aggregator.Get(context.Background(), playerID, testYear)
	require.NoError(t, err)
	return agg
}

func fakerRequest() domain.SyncRequest {
	return domain.SyncRequest{GameName: "Faker", TagLine: "KR1", Year: testYear}
}

func unitOf(matchID string) domain.MatchUnit {
	return domain.MatchUnit{MatchID: matchID, Platform: "na1", Routing: "americas"}
}
