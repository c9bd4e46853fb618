package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"lolsync/internal/domain"
	"lolsync/internal/repository"
)

type IngestResult struct {
	MatchID string
	Created bool
	Folded  int // aggregates updated
}

// Ingester materializes one match, or one timeline, per call.
type Ingester struct {
	db         *sql.DB
	source     MatchSource
	players    *repository.PlayerRepository
	matches    *repository.MatchRepository
	aggregator *Aggregator
	logger     zerolog.Logger
}

func NewIngester(sqlDB *sql.DB, source MatchSource, players *repository.PlayerRepository, matches *repository.MatchRepository, aggregator *Aggregator, logger zerolog.Logger) *Ingester {
	return &Ingester{db: sqlDB, source: source, players: players, matches: matches, aggregator: aggregator, logger: logger}
}

// IngestMatch stores a match with all its participants and folds every
// tracked participant into its yearly aggregate, all in one transaction.
// A match that is already stored is a successful no-op, so calling it twice
// or concurrently for the same unit never double counts.
func (s *Ingester) IngestMatch(ctx context.Context, unit domain.MatchUnit) (IngestResult, error) {
	res := IngestResult{MatchID: unit.MatchID}
	logger := s.logger.With().Str("match_id", unit.MatchID).Logger()

	exists, err := s.matches.Exists(ctx, unit.MatchID)
	if err != nil {
		return res, err
	}
	if exists {
		logger.Debug().Msg("match already stored")
		return res, nil
	}

	bundle, err := s.source.GetMatch(ctx, unit.Routing, unit.MatchID)
	if err != nil {
		return res, fmt.Errorf("failed to fetch match %s: %w", unit.MatchID, err)
	}
	if err := normalize(&bundle, unit); err != nil {
		return res, err
	}

	err = repository.InTx(ctx, s.db, func(tx *sql.Tx) error {
		matches := s.matches.WithTx(tx)

		// another worker may have committed it since the first check
		exists, err := matches.Exists(ctx, unit.MatchID)
		if err != nil || exists {
			return err
		}

		puuids := make([]string, len(bundle.Participants))
		for i, p := range bundle.Participants {
			puuids[i] = p.Puuid
		}
		tracked, err := s.players.WithTx(tx).TrackedIDs(ctx, puuids)
		if err != nil {
			return err
		}
		for i := range bundle.Participants {
			bundle.Participants[i].PlayerID = tracked[bundle.Participants[i].Puuid]
		}

		if err := matches.Insert(ctx, bundle); err != nil {
			return err
		}
		for _, p := range bundle.Participants {
			if p.PlayerID == "" {
				continue
			}
			if err := s.aggregator.FoldTx(ctx, tx, p, bundle.Match.Year); err != nil {
				return err
			}
			res.Folded++
		}
		res.Created = true
		return nil
	})
	if err != nil {
		logger.Warn().Err(err).Msg("match ingest rolled back")
		return IngestResult{MatchID: unit.MatchID}, err
	}

	logger.Debug().Bool("created", res.Created).Int("folded", res.Folded).Msg("match ingested")
	return res, nil
}

// normalize checks the fetched bundle against the unit that asked for it and
// fills what the payload leaves out.
func normalize(b *domain.MatchBundle, unit domain.MatchUnit) error {
	if b.Match.MatchID != unit.MatchID {
		return fmt.Errorf("%w: asked for %s, got %s", domain.ErrMalformedRecord, unit.MatchID, b.Match.MatchID)
	}
	if len(b.Participants) == 0 {
		return fmt.Errorf("%w: match %s has no participants", domain.ErrMalformedRecord, unit.MatchID)
	}
	if b.Match.GameCreation.IsZero() {
		return fmt.Errorf("%w: match %s has no creation time", domain.ErrMalformedRecord, unit.MatchID)
	}
	b.Match.Year = b.Match.GameCreation.UTC().Year()
	if b.Match.Platform == "" {
		b.Match.Platform = unit.Platform
	}
	if b.Match.Routing == "" {
		b.Match.Routing = unit.Routing
	}
	seen := make(map[string]struct{}, len(b.Participants))
	for i := range b.Participants {
		p := &b.Participants[i]
		if p.Puuid == "" {
			return fmt.Errorf("%w: match %s has a participant without puuid", domain.ErrMalformedRecord, unit.MatchID)
		}
		if _, dup := seen[p.Puuid]; dup {
			return fmt.Errorf("%w: match %s lists %s twice", domain.ErrMalformedRecord, unit.MatchID, p.Puuid)
		}
		seen[p.Puuid] = struct{}{}
		p.MatchID = unit.MatchID
	}
	return nil
}
