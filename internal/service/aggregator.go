package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"lolsync/internal/constants"
	"lolsync/internal/domain"
	"lolsync/internal/metrics"
	"lolsync/internal/repository"
)

// Aggregator keeps yearly aggregates in step with the participant rows.
type Aggregator struct {
	db         *sql.DB
	players    *repository.PlayerRepository
	matches    *repository.MatchRepository
	aggregates *repository.AggregateRepository
	logger     zerolog.Logger
}

func NewAggregator(sqlDB *sql.DB, players *repository.PlayerRepository, matches *repository.MatchRepository, aggregates *repository.AggregateRepository, logger zerolog.Logger) *Aggregator {
	return &Aggregator{db: sqlDB, players: players, matches: matches, aggregates: aggregates, logger: logger}
}

// FoldTx adds p to the (p.PlayerID, year) aggregate inside tx. p must already
// be stored in tx. The first write for a key recomputes from every stored row
// of that key instead of folding.
func (a *Aggregator) FoldTx(ctx context.Context, tx *sql.Tx, p domain.Participant, year int) error {
	aggs := a.aggregates.WithTx(tx)

	agg, found, err := aggs.Get(ctx, p.PlayerID, year)
	if err != nil {
		return err
	}
	if found {
		agg = domain.Fold(agg, p)
	} else {
		parts, err := a.matches.WithTx(tx).ParticipantsFor(ctx, p.PlayerID, year)
		if err != nil {
			return err
		}
		agg = domain.Recompute(p.PlayerID, year, parts)
	}
	return aggs.Upsert(ctx, agg)
}

// Recompute rebuilds the aggregate from the stored rows and writes it.
func (a *Aggregator) Recompute(ctx context.Context, playerID string, year int) (domain.YearlyAggregate, error) {
	var out domain.YearlyAggregate
	err := repository.InTx(ctx, a.db, func(tx *sql.Tx) error {
		stored, _, err := a.aggregates.WithTx(tx).Get(ctx, playerID, year)
		if err != nil {
			return err
		}
		parts, err := a.matches.WithTx(tx).ParticipantsFor(ctx, playerID, year)
		if err != nil {
			return err
		}
		out = domain.Recompute(playerID, year, parts)
		out.CreatedAt = stored.CreatedAt
		return a.aggregates.WithTx(tx).Upsert(ctx, out)
	})
	if err != nil {
		return domain.YearlyAggregate{}, fmt.Errorf("failed to recompute %s/%d: %w", playerID, year, err)
	}
	return out, nil
}

// Verify compares the stored aggregate with a recompute. On any difference
// it writes the recomputed aggregate and returns the drifted fields.
func (a *Aggregator) Verify(ctx context.Context, playerID string, year int) ([]string, error) {
	var drifted []string
	err := repository.InTx(ctx, a.db, func(tx *sql.Tx) error {
		aggs := a.aggregates.WithTx(tx)
		stored, found, err := aggs.Get(ctx, playerID, year)
		if err != nil {
			return err
		}
		parts, err := a.matches.WithTx(tx).ParticipantsFor(ctx, playerID, year)
		if err != nil {
			return err
		}
		if !found && len(parts) == 0 {
			return nil
		}

		fresh := domain.Recompute(playerID, year, parts)
		drifted = stored.Diff(fresh, constants.DriftTolerance)
		if len(drifted) == 0 {
			return nil
		}

		fresh.CreatedAt = stored.CreatedAt
		return aggs.Upsert(ctx, fresh)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify %s/%d: %w", playerID, year, err)
	}

	if len(drifted) > 0 {
		metrics.AggregateDrift.Inc()
		a.logger.Warn().
			Err(domain.ErrAggregateDrift).
			Str("player_id", playerID).
			Int("year", year).
			Strs("fields", drifted).
			Msg("aggregate drift corrected")
	}
	return drifted, nil
}

// RecomputeAll rebuilds the aggregate of every player with matches in year.
func (a *Aggregator) RecomputeAll(ctx context.Context, year int) (int, error) {
	ids, err := a.matches.PlayerIDsForYear(ctx, year)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := a.Recompute(ctx, id, year); err != nil {
			return 0, err
		}
	}
	a.logger.Info().Int("year", year).Int("players", len(ids)).Msg("recomputed yearly aggregates")
	return len(ids), nil
}

// Get returns the aggregate of a tracked player. A player without matches in
// year gets an empty aggregate. Participant rows linked before any fold ran
// for the year are recomputed into a stored row on first read.
func (a *Aggregator) Get(ctx context.Context, playerID string, year int) (domain.YearlyAggregate, error) {
	if _, err := a.players.Get(ctx, playerID); err != nil {
		return domain.YearlyAggregate{}, err
	}
	agg, found, err := a.aggregates.Get(ctx, playerID, year)
	if err != nil {
		return domain.YearlyAggregate{}, err
	}
	if found {
		return agg, nil
	}
	parts, err := a.matches.ParticipantsFor(ctx, playerID, year)
	if err != nil {
		return domain.YearlyAggregate{}, err
	}
	if len(parts) > 0 {
		a.logger.Debug().Str("player_id", playerID).Int("year", year).Int("matches", len(parts)).Msg("no stored aggregate, recomputing")
		return a.Recompute(ctx, playerID, year)
	}
	agg.Derive()
	return agg, nil
}
