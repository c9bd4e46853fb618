package db

import (
	"context"
	"strings"
	"time"
)

const playerColumns = `id, puuid, game_name, tag_line, platform, routing, created_at, updated_at`

func scanPlayer(row interface{ Scan(...interface{}) error }) (Player, error) {
	var i Player
	err := row.Scan(
		&i.ID,
		&i.Puuid,
		&i.GameName,
		&i.TagLine,
		&i.Platform,
		&i.Routing,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getPlayerByID = `SELECT ` + playerColumns + ` FROM players WHERE id = ?`

func (q *Queries) GetPlayerByID(ctx context.Context, id string) (Player, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayerByID, id))
}

const getPlayerByPuuid = `SELECT ` + playerColumns + ` FROM players WHERE puuid = ?`

func (q *Queries) GetPlayerByPuuid(ctx context.Context, puuid string) (Player, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayerByPuuid, puuid))
}

const getPlayerByRiotID = `SELECT ` + playerColumns + ` FROM players
WHERE game_name = ? COLLATE NOCASE AND tag_line = ? COLLATE NOCASE AND platform = ?
ORDER BY updated_at DESC
LIMIT 1`

type GetPlayerByRiotIDParams struct {
	GameName string
	TagLine  string
	Platform string
}

func (q *Queries) GetPlayerByRiotID(ctx context.Context, arg GetPlayerByRiotIDParams) (Player, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayerByRiotID, arg.GameName, arg.TagLine, arg.Platform))
}

const upsertPlayer = `INSERT INTO players (id, puuid, game_name, tag_line, platform, routing, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (puuid) DO UPDATE SET
    game_name = excluded.game_name,
    tag_line = excluded.tag_line,
    platform = excluded.platform,
    routing = excluded.routing,
    updated_at = excluded.updated_at
RETURNING ` + playerColumns

type UpsertPlayerParams struct {
	ID        string
	Puuid     string
	GameName  string
	TagLine   string
	Platform  string
	Routing   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertPlayer keeps the stored id and created_at of an existing puuid.
func (q *Queries) UpsertPlayer(ctx context.Context, arg UpsertPlayerParams) (Player, error) {
	row := q.db.QueryRowContext(ctx, upsertPlayer,
		arg.ID,
		arg.Puuid,
		arg.GameName,
		arg.TagLine,
		arg.Platform,
		arg.Routing,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanPlayer(row)
}

const listPlayers = `SELECT ` + playerColumns + ` FROM players ORDER BY created_at, id`

func (q *Queries) ListPlayers(ctx context.Context) ([]Player, error) {
	rows, err := q.db.QueryContext(ctx, listPlayers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Player
	for rows.Next() {
		i, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPlayerIDsByPuuids = `SELECT puuid, id FROM players WHERE puuid IN (/*SLICE:puuids*/?)`

// ListPlayerIDsByPuuids maps each tracked puuid to its player id. Untracked
// puuids are absent from the result.
func (q *Queries) ListPlayerIDsByPuuids(ctx context.Context, puuids []string) (map[string]string, error) {
	out := make(map[string]string, len(puuids))
	if len(puuids) == 0 {
		return out, nil
	}
	query, args := expandSlice(listPlayerIDsByPuuids, "/*SLICE:puuids*/?", puuids)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var puuid, id string
		if err := rows.Scan(&puuid, &id); err != nil {
			return nil, err
		}
		out[puuid] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// expandSlice replaces marker with one placeholder per value.
func expandSlice(query, marker string, values []string) (string, []interface{}) {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return strings.Replace(query, marker, strings.Repeat(",?", len(values))[1:], 1), args
}

const linkParticipants = `UPDATE match_participants SET player_id = ? WHERE puuid = ? AND player_id IS NULL`

type LinkParticipantsParams struct {
	PlayerID string
	Puuid    string
}

// LinkParticipants attaches rows ingested before the puuid was tracked.
func (q *Queries) LinkParticipants(ctx context.Context, arg LinkParticipantsParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, linkParticipants, arg.PlayerID, arg.Puuid)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
