package service

import (
	"context"

	"lolsync/internal/domain"
)

// MatchSource is the remote system of record. *api.RiotClient implements it.
type MatchSource interface {
	GetAccount(ctx context.Context, routing, gameName, tagLine string) (domain.Account, error)
	ListMatchIDs(ctx context.Context, routing, puuid string, year int) ([]string, error)
	GetMatch(ctx context.Context, routing, matchID string) (domain.MatchBundle, error)
	GetTimeline(ctx context.Context, routing, matchID string) (domain.Timeline, error)
}
