package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"lolsync/internal/db"
	"lolsync/internal/domain"
)

type PlayerRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		queries: db.New(sqlDB),
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *PlayerRepository) WithTx(tx *sql.Tx) *PlayerRepository {
	return &PlayerRepository{queries: r.queries.WithTx(tx), db: r.db, logger: r.logger}
}

func (r *PlayerRepository) Get(ctx context.Context, id string) (*domain.Player, error) {
	player, err := r.queries.GetPlayerByID(ctx, id)
	return toPlayer(player, err)
}

func (r *PlayerRepository) GetByPuuid(ctx context.Context, puuid string) (*domain.Player, error) {
	player, err := r.queries.GetPlayerByPuuid(ctx, puuid)
	return toPlayer(player, err)
}

// GetByRiotID matches name and tag case-insensitively within one platform.
func (r *PlayerRepository) GetByRiotID(ctx context.Context, gameName, tagLine, platform string) (*domain.Player, error) {
	player, err := r.queries.GetPlayerByRiotID(ctx, db.GetPlayerByRiotIDParams{
		GameName: gameName,
		TagLine:  tagLine,
		Platform: platform,
	})
	return toPlayer(player, err)
}

// Upsert creates the player on first sight and refreshes its identity
// afterwards. The internal id never changes once assigned.
func (r *PlayerRepository) Upsert(ctx context.Context, player domain.Player) (*domain.Player, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate player id: %w", err)
	}
	now := time.Now().UTC()

	stored, err := r.queries.UpsertPlayer(ctx, db.UpsertPlayerParams{
		ID:        id,
		Puuid:     player.Puuid,
		GameName:  player.GameName,
		TagLine:   player.TagLine,
		Platform:  player.Platform,
		Routing:   player.Routing,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		r.logger.Error().Err(err).Str("puuid", player.Puuid).Msg("failed to upsert player")
		return nil, classify(fmt.Errorf("failed to upsert player %s: %w", player.Puuid, err))
	}

	r.logger.Debug().Str("player_id", stored.ID).Str("puuid", stored.Puuid).Msg("player upserted")
	return toPlayer(stored, nil)
}

func (r *PlayerRepository) List(ctx context.Context) ([]domain.Player, error) {
	players, err := r.queries.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	result := make([]domain.Player, 0, len(players))
	for _, p := range players {
		result = append(result, playerFromRow(p))
	}
	return result, nil
}

// LinkParticipants attaches participant rows stored before the player was
// tracked and returns how many were linked.
func (r *PlayerRepository) LinkParticipants(ctx context.Context, player domain.Player) (int64, error) {
	n, err := r.queries.LinkParticipants(ctx, db.LinkParticipantsParams{PlayerID: player.ID, Puuid: player.Puuid})
	if err != nil {
		return 0, classify(fmt.Errorf("failed to link participants of %s: %w", player.Puuid, err))
	}
	return n, nil
}

// TrackedIDs maps each tracked puuid to its player id.
func (r *PlayerRepository) TrackedIDs(ctx context.Context, puuids []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, chunk := range chunks(puuids) {
		ids, err := r.queries.ListPlayerIDsByPuuids(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to look up tracked players: %w", err)
		}
		for puuid, id := range ids {
			out[puuid] = id
		}
	}
	return out, nil
}

func toPlayer(p db.Player, err error) (*domain.Player, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	player := playerFromRow(p)
	return &player, nil
}

func playerFromRow(p db.Player) domain.Player {
	return domain.Player{
		ID:        p.ID,
		Puuid:     p.Puuid,
		GameName:  p.GameName,
		TagLine:   p.TagLine,
		Platform:  p.Platform,
		Routing:   p.Routing,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
