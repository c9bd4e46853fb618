package db

import (
	"context"
)

const aggregateColumns = `player_id, year, total_matches, wins, losses, total_kills, total_deaths, total_assists,
    total_gold_earned, total_minions_killed, total_neutral_minions_killed, total_damage_to_champions,
    champion_counts, roles, lanes, most_played_champion, most_played_champion_count,
    unique_champions_played, unique_roles_played, unique_lanes_played,
    win_rate, kda_ratio, average_kills, average_deaths, average_assists, average_gold_per_match, average_cs_per_match,
    created_at, updated_at`

const getYearlyAggregate = `SELECT ` + aggregateColumns + ` FROM yearly_aggregates WHERE player_id = ? AND year = ?`

type GetYearlyAggregateParams struct {
	PlayerID string
	Year     int64
}

func (q *Queries) GetYearlyAggregate(ctx context.Context, arg GetYearlyAggregateParams) (YearlyAggregate, error) {
	row := q.db.QueryRowContext(ctx, getYearlyAggregate, arg.PlayerID, arg.Year)
	var i YearlyAggregate
	err := row.Scan(
		&i.PlayerID,
		&i.Year,
		&i.TotalMatches,
		&i.Wins,
		&i.Losses,
		&i.TotalKills,
		&i.TotalDeaths,
		&i.TotalAssists,
		&i.TotalGoldEarned,
		&i.TotalMinionsKilled,
		&i.TotalNeutralMinionsKilled,
		&i.TotalDamageToChampions,
		&i.ChampionCounts,
		&i.Roles,
		&i.Lanes,
		&i.MostPlayedChampion,
		&i.MostPlayedChampionCount,
		&i.UniqueChampionsPlayed,
		&i.UniqueRolesPlayed,
		&i.UniqueLanesPlayed,
		&i.WinRate,
		&i.KdaRatio,
		&i.AverageKills,
		&i.AverageDeaths,
		&i.AverageAssists,
		&i.AverageGoldPerMatch,
		&i.AverageCsPerMatch,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertYearlyAggregate = `INSERT INTO yearly_aggregates (` + aggregateColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (player_id, year) DO UPDATE SET
    total_matches = excluded.total_matches,
    wins = excluded.wins,
    losses = excluded.losses,
    total_kills = excluded.total_kills,
    total_deaths = excluded.total_deaths,
    total_assists = excluded.total_assists,
    total_gold_earned = excluded.total_gold_earned,
    total_minions_killed = excluded.total_minions_killed,
    total_neutral_minions_killed = excluded.total_neutral_minions_killed,
    total_damage_to_champions = excluded.total_damage_to_champions,
    champion_counts = excluded.champion_counts,
    roles = excluded.roles,
    lanes = excluded.lanes,
    most_played_champion = excluded.most_played_champion,
    most_played_champion_count = excluded.most_played_champion_count,
    unique_champions_played = excluded.unique_champions_played,
    unique_roles_played = excluded.unique_roles_played,
    unique_lanes_played = excluded.unique_lanes_played,
    win_rate = excluded.win_rate,
    kda_ratio = excluded.kda_ratio,
    average_kills = excluded.average_kills,
    average_deaths = excluded.average_deaths,
    average_assists = excluded.average_assists,
    average_gold_per_match = excluded.average_gold_per_match,
    average_cs_per_match = excluded.average_cs_per_match,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertYearlyAggregate(ctx context.Context, arg YearlyAggregate) error {
	_, err := q.db.ExecContext(ctx, upsertYearlyAggregate,
		arg.PlayerID,
		arg.Year,
		arg.TotalMatches,
		arg.Wins,
		arg.Losses,
		arg.TotalKills,
		arg.TotalDeaths,
		arg.TotalAssists,
		arg.TotalGoldEarned,
		arg.TotalMinionsKilled,
		arg.TotalNeutralMinionsKilled,
		arg.TotalDamageToChampions,
		arg.ChampionCounts,
		arg.Roles,
		arg.Lanes,
		arg.MostPlayedChampion,
		arg.MostPlayedChampionCount,
		arg.UniqueChampionsPlayed,
		arg.UniqueRolesPlayed,
		arg.UniqueLanesPlayed,
		arg.WinRate,
		arg.KdaRatio,
		arg.AverageKills,
		arg.AverageDeaths,
		arg.AverageAssists,
		arg.AverageGoldPerMatch,
		arg.AverageCsPerMatch,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}
