package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"lolsync/internal/domain"
	"lolsync/internal/repository"
)

// Plan is the outcome of reconciling the remote match list with the store.
type Plan struct {
	All              []string // remote ids, deduplicated, remote order
	Existing         []string
	Missing          []string // All minus Existing, remote order
	MissingTimelines []string // stored matches without a timeline
}

type Planner struct {
	source  MatchSource
	matches *repository.MatchRepository
	logger  zerolog.Logger
}

func NewPlanner(source MatchSource, matches *repository.MatchRepository, logger zerolog.Logger) *Planner {
	return &Planner{source: source, matches: matches, logger: logger}
}

// Plan lists the player's remote matches for year and splits them into what
// is stored and what is missing. It makes exactly one remote listing and
// writes nothing.
func (p *Planner) Plan(ctx context.Context, player domain.Player, year int) (Plan, error) {
	remote, err := p.source.ListMatchIDs(ctx, player.Routing, player.Puuid, year)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to list remote matches of %s: %w", player.Puuid, err)
	}

	plan := Plan{All: dedupe(remote)}
	if len(plan.All) == 0 {
		return plan, nil
	}

	var (
		existing         map[string]struct{}
		missingTimelines []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		existing, err = p.matches.ExistingIDs(gctx, plan.All)
		return err
	})
	g.Go(func() error {
		var err error
		missingTimelines, err = p.matches.WithoutTimeline(gctx, plan.All)
		return err
	})
	if err := g.Wait(); err != nil {
		return Plan{}, err
	}

	for _, id := range plan.All {
		if _, ok := existing[id]; ok {
			plan.Existing = append(plan.Existing, id)
		} else {
			plan.Missing = append(plan.Missing, id)
		}
	}
	plan.MissingTimelines = missingTimelines

	p.logger.Info().
		Str("puuid", player.Puuid).
		Int("year", year).
		Int("total", len(plan.All)).
		Int("existing", len(plan.Existing)).
		Int("missing", len(plan.Missing)).
		Int("missing_timelines", len(plan.MissingTimelines)).
		Msg("reconciliation planned")
	return plan, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
