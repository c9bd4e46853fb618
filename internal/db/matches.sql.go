package db

import (
	"context"
	"database/sql"
)

const matchExists = `SELECT EXISTS (SELECT 1 FROM matches WHERE match_id = ?)`

func (q *Queries) MatchExists(ctx context.Context, matchID string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, matchExists, matchID).Scan(&exists)
	return exists, err
}

const listExistingMatchIDs = `SELECT match_id FROM matches WHERE match_id IN (/*SLICE:ids*/?)`

func (q *Queries) ListExistingMatchIDs(ctx context.Context, ids []string) ([]string, error) {
	return q.queryIDs(ctx, listExistingMatchIDs, ids)
}

const listMatchIDsWithoutTimeline = `SELECT m.match_id FROM matches m
LEFT JOIN match_timelines t ON t.match_id = m.match_id
WHERE t.match_id IS NULL AND m.match_id IN (/*SLICE:ids*/?)`

func (q *Queries) ListMatchIDsWithoutTimeline(ctx context.Context, ids []string) ([]string, error) {
	return q.queryIDs(ctx, listMatchIDsWithoutTimeline, ids)
}

func (q *Queries) queryIDs(ctx context.Context, query string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	expanded, args := expandSlice(query, "/*SLICE:ids*/?", ids)
	rows, err := q.db.QueryContext(ctx, expanded, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMatch = `SELECT match_id, data_version, game_creation, game_duration, queue_id, platform, routing, year, raw, created_at
FROM matches WHERE match_id = ?`

func (q *Queries) GetMatch(ctx context.Context, matchID string) (Match, error) {
	row := q.db.QueryRowContext(ctx, getMatch, matchID)
	var i Match
	err := row.Scan(
		&i.MatchID,
		&i.DataVersion,
		&i.GameCreation,
		&i.GameDuration,
		&i.QueueID,
		&i.Platform,
		&i.Routing,
		&i.Year,
		&i.Raw,
		&i.CreatedAt,
	)
	return i, err
}

const insertMatch = `INSERT INTO matches (match_id, data_version, game_creation, game_duration, queue_id, platform, routing, year, raw, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertMatch(ctx context.Context, arg Match) error {
	_, err := q.db.ExecContext(ctx, insertMatch,
		arg.MatchID,
		arg.DataVersion,
		arg.GameCreation,
		arg.GameDuration,
		arg.QueueID,
		arg.Platform,
		arg.Routing,
		arg.Year,
		arg.Raw,
		arg.CreatedAt,
	)
	return err
}

const insertParticipant = `INSERT INTO match_participants (
    match_id, puuid, player_id, summoner_name, team_id, champion_id, champion_name, role, lane,
    kills, deaths, assists, win, gold_earned, total_minions_killed, neutral_minions_killed, damage_to_champions,
    item0, item1, item2, item3, item4, item5, item6, spell1, spell2, perk_primary_style, perk_sub_style
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertParticipant(ctx context.Context, arg MatchParticipant) error {
	_, err := q.db.ExecContext(ctx, insertParticipant,
		arg.MatchID,
		arg.Puuid,
		arg.PlayerID,
		arg.SummonerName,
		arg.TeamID,
		arg.ChampionID,
		arg.ChampionName,
		arg.Role,
		arg.Lane,
		arg.Kills,
		arg.Deaths,
		arg.Assists,
		arg.Win,
		arg.GoldEarned,
		arg.TotalMinionsKilled,
		arg.NeutralMinionsKilled,
		arg.DamageToChampions,
		arg.Item0,
		arg.Item1,
		arg.Item2,
		arg.Item3,
		arg.Item4,
		arg.Item5,
		arg.Item6,
		arg.Spell1,
		arg.Spell2,
		arg.PerkPrimaryStyle,
		arg.PerkSubStyle,
	)
	return err
}

const participantColumns = `p.match_id, p.puuid, p.player_id, p.summoner_name, p.team_id, p.champion_id, p.champion_name, p.role, p.lane,
    p.kills, p.deaths, p.assists, p.win, p.gold_earned, p.total_minions_killed, p.neutral_minions_killed, p.damage_to_champions,
    p.item0, p.item1, p.item2, p.item3, p.item4, p.item5, p.item6, p.spell1, p.spell2, p.perk_primary_style, p.perk_sub_style`

const listParticipantsForPlayerYear = `SELECT ` + participantColumns + `
FROM match_participants p
JOIN matches m ON m.match_id = p.match_id
WHERE p.player_id = ? AND m.year = ?
ORDER BY m.game_creation, p.match_id`

type ListParticipantsForPlayerYearParams struct {
	PlayerID string
	Year     int64
}

func (q *Queries) ListParticipantsForPlayerYear(ctx context.Context, arg ListParticipantsForPlayerYearParams) ([]MatchParticipant, error) {
	return q.queryParticipants(ctx, listParticipantsForPlayerYear, arg.PlayerID, arg.Year)
}

const listParticipantsByMatch = `SELECT ` + participantColumns + `
FROM match_participants p
WHERE p.match_id = ?
ORDER BY p.team_id, p.id`

func (q *Queries) ListParticipantsByMatch(ctx context.Context, matchID string) ([]MatchParticipant, error) {
	return q.queryParticipants(ctx, listParticipantsByMatch, matchID)
}

func (q *Queries) queryParticipants(ctx context.Context, query string, args ...interface{}) ([]MatchParticipant, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MatchParticipant
	for rows.Next() {
		var i MatchParticipant
		if err := rows.Scan(
			&i.MatchID,
			&i.Puuid,
			&i.PlayerID,
			&i.SummonerName,
			&i.TeamID,
			&i.ChampionID,
			&i.ChampionName,
			&i.Role,
			&i.Lane,
			&i.Kills,
			&i.Deaths,
			&i.Assists,
			&i.Win,
			&i.GoldEarned,
			&i.TotalMinionsKilled,
			&i.NeutralMinionsKilled,
			&i.DamageToChampions,
			&i.Item0,
			&i.Item1,
			&i.Item2,
			&i.Item3,
			&i.Item4,
			&i.Item5,
			&i.Item6,
			&i.Spell1,
			&i.Spell2,
			&i.PerkPrimaryStyle,
			&i.PerkSubStyle,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPlayerIDsForYear = `SELECT DISTINCT p.player_id FROM match_participants p
JOIN matches m ON m.match_id = p.match_id
WHERE p.player_id IS NOT NULL AND m.year = ?
ORDER BY p.player_id`

func (q *Queries) ListPlayerIDsForYear(ctx context.Context, year int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listPlayerIDsForYear, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var id sql.NullString
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertTimeline = `INSERT INTO match_timelines (match_id, data_version, frame_interval, raw, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (match_id) DO NOTHING`

// InsertTimeline reports whether a row was written; an existing timeline is
// left untouched.
func (q *Queries) InsertTimeline(ctx context.Context, arg MatchTimeline) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertTimeline,
		arg.MatchID,
		arg.DataVersion,
		arg.FrameInterval,
		arg.Raw,
		arg.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const timelineExists = `SELECT EXISTS (SELECT 1 FROM match_timelines WHERE match_id = ?)`

func (q *Queries) TimelineExists(ctx context.Context, matchID string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, timelineExists, matchID).Scan(&exists)
	return exists, err
}

const countMatches = `SELECT COUNT(*) FROM matches`

func (q *Queries) CountMatches(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countMatches).Scan(&n)
	return n, err
}
