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

type AggregateRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewAggregateRepository(sqlDB *sql.DB, logger zerolog.Logger) *AggregateRepository {
	return &AggregateRepository{
		queries: db.New(sqlDB),
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *AggregateRepository) WithTx(tx *sql.Tx) *AggregateRepository {
	return &AggregateRepository{queries: r.queries.WithTx(tx), db: r.db, logger: r.logger}
}

// Get returns the stored aggregate and whether one exists.
func (r *AggregateRepository) Get(ctx context.Context, playerID string, year int) (domain.YearlyAggregate, bool, error) {
	row, err := r.queries.GetYearlyAggregate(ctx, db.GetYearlyAggregateParams{PlayerID: playerID, Year: int64(year)})
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewYearlyAggregate(playerID, year), false, nil
	}
	if err != nil {
		return domain.YearlyAggregate{}, false, classify(fmt.Errorf("failed to get aggregate %s/%d: %w", playerID, year, err))
	}

	agg := domain.YearlyAggregate{
		PlayerID:                  row.PlayerID,
		Year:                      int(row.Year),
		TotalMatches:              int(row.TotalMatches),
		Wins:                      int(row.Wins),
		Losses:                    int(row.Losses),
		TotalKills:                row.TotalKills,
		TotalDeaths:               row.TotalDeaths,
		TotalAssists:              row.TotalAssists,
		TotalGoldEarned:           row.TotalGoldEarned,
		TotalMinionsKilled:        row.TotalMinionsKilled,
		TotalNeutralMinionsKilled: row.TotalNeutralMinionsKilled,
		TotalDamageToChampions:    row.TotalDamageToChampions,
		MostPlayedChampion:        row.MostPlayedChampion,
		MostPlayedChampionCount:   int(row.MostPlayedChampionCount),
		UniqueChampionsPlayed:     int(row.UniqueChampionsPlayed),
		UniqueRolesPlayed:         int(row.UniqueRolesPlayed),
		UniqueLanesPlayed:         int(row.UniqueLanesPlayed),
		WinRate:                   row.WinRate,
		KDARatio:                  row.KdaRatio,
		AverageKills:              row.AverageKills,
		AverageDeaths:             row.AverageDeaths,
		AverageAssists:            row.AverageAssists,
		AverageGoldPerMatch:       row.AverageGoldPerMatch,
		AverageCSPerMatch:         row.AverageCsPerMatch,
		CreatedAt:                 row.CreatedAt,
		UpdatedAt:                 row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.ChampionCounts), &agg.ChampionCounts); err != nil {
		return domain.YearlyAggregate{}, false, fmt.Errorf("failed to decode champion counts of %s/%d: %w", playerID, year, err)
	}
	if err := json.Unmarshal([]byte(row.Roles), &agg.Roles); err != nil {
		return domain.YearlyAggregate{}, false, fmt.Errorf("failed to decode roles of %s/%d: %w", playerID, year, err)
	}
	if err := json.Unmarshal([]byte(row.Lanes), &agg.Lanes); err != nil {
		return domain.YearlyAggregate{}, false, fmt.Errorf("failed to decode lanes of %s/%d: %w", playerID, year, err)
	}
	if agg.ChampionCounts == nil {
		agg.ChampionCounts = map[string]int{}
	}
	if agg.Roles == nil {
		agg.Roles = []string{}
	}
	if agg.Lanes == nil {
		agg.Lanes = []string{}
	}
	return agg, true, nil
}

func (r *AggregateRepository) Upsert(ctx context.Context, agg domain.YearlyAggregate) error {
	counts, err := json.Marshal(agg.ChampionCounts)
	if err != nil {
		return fmt.Errorf("failed to encode champion counts: %w", err)
	}
	roles, err := json.Marshal(nonNil(agg.Roles))
	if err != nil {
		return fmt.Errorf("failed to encode roles: %w", err)
	}
	lanes, err := json.Marshal(nonNil(agg.Lanes))
	if err != nil {
		return fmt.Errorf("failed to encode lanes: %w", err)
	}

	now := time.Now().UTC()
	createdAt := agg.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	err = r.queries.UpsertYearlyAggregate(ctx, db.YearlyAggregate{
		PlayerID:                  agg.PlayerID,
		Year:                      int64(agg.Year),
		TotalMatches:              int64(agg.TotalMatches),
		Wins:                      int64(agg.Wins),
		Losses:                    int64(agg.Losses),
		TotalKills:                agg.TotalKills,
		TotalDeaths:               agg.TotalDeaths,
		TotalAssists:              agg.TotalAssists,
		TotalGoldEarned:           agg.TotalGoldEarned,
		TotalMinionsKilled:        agg.TotalMinionsKilled,
		TotalNeutralMinionsKilled: agg.TotalNeutralMinionsKilled,
		TotalDamageToChampions:    agg.TotalDamageToChampions,
		ChampionCounts:            string(counts),
		Roles:                     string(roles),
		Lanes:                     string(lanes),
		MostPlayedChampion:        agg.MostPlayedChampion,
		MostPlayedChampionCount:   int64(agg.MostPlayedChampionCount),
		UniqueChampionsPlayed:     int64(agg.UniqueChampionsPlayed),
		UniqueRolesPlayed:         int64(agg.UniqueRolesPlayed),
		UniqueLanesPlayed:         int64(agg.UniqueLanesPlayed),
		WinRate:                   agg.WinRate,
		KdaRatio:                  agg.KDARatio,
		AverageKills:              agg.AverageKills,
		AverageDeaths:             agg.AverageDeaths,
		AverageAssists:            agg.AverageAssists,
		AverageGoldPerMatch:       agg.AverageGoldPerMatch,
		AverageCsPerMatch:         agg.AverageCSPerMatch,
		CreatedAt:                 createdAt,
		UpdatedAt:                 now,
	})
	if err != nil {
		return classify(fmt.Errorf("failed to upsert aggregate %s/%d: %w", agg.PlayerID, agg.Year, err))
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
