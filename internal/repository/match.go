package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lolsync/internal/db"
	"lolsync/internal/domain"
)

type MatchRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		queries: db.New(sqlDB),
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *MatchRepository) WithTx(tx *sql.Tx) *MatchRepository {
	return &MatchRepository{queries: r.queries.WithTx(tx), db: r.db, logger: r.logger}
}

func (r *MatchRepository) Exists(ctx context.Context, matchID string) (bool, error) {
	exists, err := r.queries.MatchExists(ctx, matchID)
	if err != nil {
		return false, classify(fmt.Errorf("failed to check match %s: %w", matchID, err))
	}
	return exists, nil
}

// ExistingIDs returns the subset of ids stored locally.
func (r *MatchRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(ids))
	for _, chunk := range chunks(ids) {
		found, err := r.queries.ListExistingMatchIDs(ctx, chunk)
		if err != nil {
			return nil, classify(fmt.Errorf("failed to list existing matches: %w", err))
		}
		for _, id := range found {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

// WithoutTimeline returns the ids among ids that are stored but have no
// timeline, in the order of ids.
func (r *MatchRepository) WithoutTimeline(ctx context.Context, ids []string) ([]string, error) {
	missing := make(map[string]struct{})
	for _, chunk := range chunks(ids) {
		found, err := r.queries.ListMatchIDsWithoutTimeline(ctx, chunk)
		if err != nil {
			return nil, classify(fmt.Errorf("failed to list matches without timeline: %w", err))
		}
		for _, id := range found {
			missing[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(missing))
	for _, id := range ids {
		if _, ok := missing[id]; ok {
			out = append(out, id)
			delete(missing, id)
		}
	}
	return out, nil
}

// Insert writes the match row and every participant row. It must run inside
// a transaction to be all-or-nothing.
func (r *MatchRepository) Insert(ctx context.Context, bundle domain.MatchBundle) error {
	m := bundle.Match
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	err := r.queries.InsertMatch(ctx, db.Match{
		MatchID:      m.MatchID,
		DataVersion:  m.DataVersion,
		GameCreation: m.GameCreation.UTC(),
		GameDuration: int64(m.GameDuration),
		QueueID:      int64(m.QueueID),
		Platform:     m.Platform,
		Routing:      m.Routing,
		Year:         int64(m.Year),
		Raw:          m.Raw,
		CreatedAt:    createdAt,
	})
	if err != nil {
		return classify(fmt.Errorf("failed to insert match %s: %w", m.MatchID, err))
	}

	for _, p := range bundle.Participants {
		if err := r.queries.InsertParticipant(ctx, participantToRow(p)); err != nil {
			return classify(fmt.Errorf("failed to insert participant %s/%s: %w", p.MatchID, p.Puuid, err))
		}
	}
	return nil
}

func (r *MatchRepository) Get(ctx context.Context, matchID string) (*domain.MatchBundle, error) {
	m, err := r.queries.GetMatch(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", matchID, err)
	}
	rows, err := r.queries.ListParticipantsByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants of %s: %w", matchID, err)
	}

	bundle := &domain.MatchBundle{
		Match: domain.Match{
			MatchID:      m.MatchID,
			DataVersion:  m.DataVersion,
			GameCreation: m.GameCreation.UTC(),
			GameDuration: int(m.GameDuration),
			QueueID:      int(m.QueueID),
			Platform:     m.Platform,
			Routing:      m.Routing,
			Year:         int(m.Year),
			Raw:          m.Raw,
			CreatedAt:    m.CreatedAt,
		},
		Participants: make([]domain.Participant, 0, len(rows)),
	}
	for _, row := range rows {
		bundle.Participants = append(bundle.Participants, participantFromRow(row))
	}
	return bundle, nil
}

// ParticipantsFor returns every participant row of playerID in matches of
// the given year.
func (r *MatchRepository) ParticipantsFor(ctx context.Context, playerID string, year int) ([]domain.Participant, error) {
	rows, err := r.queries.ListParticipantsForPlayerYear(ctx, db.ListParticipantsForPlayerYearParams{
		PlayerID: playerID,
		Year:     int64(year),
	})
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list participants of %s in %d: %w", playerID, year, err))
	}
	out := make([]domain.Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, participantFromRow(row))
	}
	return out, nil
}

func (r *MatchRepository) PlayerIDsForYear(ctx context.Context, year int) ([]string, error) {
	ids, err := r.queries.ListPlayerIDsForYear(ctx, int64(year))
	if err != nil {
		return nil, fmt.Errorf("failed to list players of %d: %w", year, err)
	}
	return ids, nil
}

// InsertTimeline stores the timeline of a stored match. It reports false when
// the timeline was already there.
func (r *MatchRepository) InsertTimeline(ctx context.Context, t domain.Timeline) (bool, error) {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	inserted, err := r.queries.InsertTimeline(ctx, db.MatchTimeline{
		MatchID:       t.MatchID,
		DataVersion:   t.DataVersion,
		FrameInterval: int64(t.FrameInterval),
		Raw:           t.Raw,
		CreatedAt:     createdAt,
	})
	if err != nil {
		return false, classify(fmt.Errorf("failed to insert timeline %s: %w", t.MatchID, err))
	}
	return inserted, nil
}

func (r *MatchRepository) TimelineExists(ctx context.Context, matchID string) (bool, error) {
	exists, err := r.queries.TimelineExists(ctx, matchID)
	if err != nil {
		return false, classify(fmt.Errorf("failed to check timeline %s: %w", matchID, err))
	}
	return exists, nil
}

func (r *MatchRepository) Count(ctx context.Context) (int64, error) {
	return r.queries.CountMatches(ctx)
}

func participantToRow(p domain.Participant) db.MatchParticipant {
	return db.MatchParticipant{
		MatchID:              p.MatchID,
		Puuid:                p.Puuid,
		PlayerID:             nullString(p.PlayerID),
		SummonerName:         p.SummonerName,
		TeamID:               int64(p.TeamID),
		ChampionID:           int64(p.ChampionID),
		ChampionName:         p.ChampionName,
		Role:                 p.Role,
		Lane:                 p.Lane,
		Kills:                int64(p.Kills),
		Deaths:               int64(p.Deaths),
		Assists:              int64(p.Assists),
		Win:                  p.Win,
		GoldEarned:           int64(p.GoldEarned),
		TotalMinionsKilled:   int64(p.TotalMinionsKilled),
		NeutralMinionsKilled: int64(p.NeutralMinionsKilled),
		DamageToChampions:    int64(p.DamageToChampions),
		Item0:                nullInt(p.Items[0]),
		Item1:                nullInt(p.Items[1]),
		Item2:                nullInt(p.Items[2]),
		Item3:                nullInt(p.Items[3]),
		Item4:                nullInt(p.Items[4]),
		Item5:                nullInt(p.Items[5]),
		Item6:                nullInt(p.Items[6]),
		Spell1:               nullInt(p.Spell1),
		Spell2:               nullInt(p.Spell2),
		PerkPrimaryStyle:     nullInt(p.PerkPrimaryStyle),
		PerkSubStyle:         nullInt(p.PerkSubStyle),
	}
}

func participantFromRow(row db.MatchParticipant) domain.Participant {
	return domain.Participant{
		MatchID:              row.MatchID,
		Puuid:                row.Puuid,
		PlayerID:             row.PlayerID.String,
		SummonerName:         row.SummonerName,
		TeamID:               int(row.TeamID),
		ChampionID:           int(row.ChampionID),
		ChampionName:         row.ChampionName,
		Role:                 row.Role,
		Lane:                 row.Lane,
		Kills:                int(row.Kills),
		Deaths:               int(row.Deaths),
		Assists:              int(row.Assists),
		Win:                  row.Win,
		GoldEarned:           int(row.GoldEarned),
		TotalMinionsKilled:   int(row.TotalMinionsKilled),
		NeutralMinionsKilled: int(row.NeutralMinionsKilled),
		DamageToChampions:    int(row.DamageToChampions),
		Items: [7]*int{
			intPtr(row.Item0), intPtr(row.Item1), intPtr(row.Item2), intPtr(row.Item3),
			intPtr(row.Item4), intPtr(row.Item5), intPtr(row.Item6),
		},
		Spell1:           intPtr(row.Spell1),
		Spell2:           intPtr(row.Spell2),
		PerkPrimaryStyle: intPtr(row.PerkPrimaryStyle),
		PerkSubStyle:     intPtr(row.PerkSubStyle),
	}
}
