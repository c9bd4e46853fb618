package service

import (
	"context"
	"fmt"

	"lolsync/internal/domain"
)

// IngestTimeline stores the timeline of an already stored match. It is
// idempotent and independent of the match transaction; it reports whether a
// timeline was written.
func (s *Ingester) IngestTimeline(ctx context.Context, unit domain.MatchUnit) (bool, error) {
	exists, err := s.matches.Exists(ctx, unit.MatchID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("timeline for %s: %w", unit.MatchID, domain.ErrMatchNotFound)
	}

	has, err := s.matches.TimelineExists(ctx, unit.MatchID)
	if err != nil || has {
		return false, err
	}

	tl, err := s.source.GetTimeline(ctx, unit.Routing, unit.MatchID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch timeline %s: %w", unit.MatchID, err)
	}
	if tl.MatchID != unit.MatchID {
		return false, fmt.Errorf("%w: asked for timeline %s, got %s", domain.ErrMalformedRecord, unit.MatchID, tl.MatchID)
	}

	inserted, err := s.matches.InsertTimeline(ctx, tl)
	if err != nil {
		return false, err
	}
	s.logger.Debug().Str("match_id", unit.MatchID).Bool("inserted", inserted).Msg("timeline ingested")
	return inserted, nil
}
