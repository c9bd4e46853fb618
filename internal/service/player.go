package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"lolsync/internal/constants"
	"lolsync/internal/domain"
	"lolsync/internal/repository"
)

type PlayerService struct {
	source MatchSource
	repo   *repository.PlayerRepository
	logger zerolog.Logger
}

func NewPlayerService(source MatchSource, repo *repository.PlayerRepository, logger zerolog.Logger) *PlayerService {
	return &PlayerService{source: source, repo: repo, logger: logger}
}

// Resolve looks the Riot ID up remotely and creates or refreshes the local
// player. Participant rows stored before the player was tracked are linked
// to it.
func (s *PlayerService) Resolve(ctx context.Context, req domain.SyncRequest) (*domain.Player, error) {
	s.logger.Info().Str("name", req.GameName).Str("tag", req.TagLine).Str("platform", req.Platform).Msg("resolving player")

	apiCtx, apiCancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer apiCancel()

	account, err := s.source.GetAccount(apiCtx, req.Routing, req.GameName, req.TagLine)
	if err != nil {
		s.logger.Error().Err(err).Str("name", req.GameName).Str("tag", req.TagLine).Msg("failed to fetch account")
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}

	player, err := s.repo.Upsert(ctx, domain.Player{
		Puuid:    account.Puuid,
		GameName: firstNonEmpty(account.GameName, req.GameName),
		TagLine:  firstNonEmpty(account.TagLine, req.TagLine),
		Platform: req.Platform,
		Routing:  req.Routing,
	})
	if err != nil {
		return nil, err
	}

	linked, err := s.repo.LinkParticipants(ctx, *player)
	if err != nil {
		return nil, err
	}
	if linked > 0 {
		s.logger.Info().Str("player_id", player.ID).Int64("linked", linked).Msg("linked previously stored participant rows")
	}

	s.logger.Info().Str("player_id", player.ID).Str("puuid", player.Puuid).Msg("player resolved")
	return player, nil
}

// FindLocal returns the stored player for a Riot ID without any remote call.
func (s *PlayerService) FindLocal(ctx context.Context, req domain.SyncRequest) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	player, err := s.repo.GetByRiotID(ctx, req.GameName, req.TagLine, req.Platform)
	if err != nil {
		s.logger.Debug().Err(err).Str("name", req.GameName).Str("tag", req.TagLine).Msg("player not stored")
		return nil, err
	}
	return player, nil
}

func (s *PlayerService) Get(ctx context.Context, id string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.repo.Get(ctx, id)
}

func (s *PlayerService) List(ctx context.Context) ([]domain.Player, error) {
	return s.repo.List(ctx)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
