package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lolsync/internal/domain"
)

// fakeSource is an in-memory MatchSource. Errors queued in failures are
// returned, one per call, before the stored record is served.
type fakeSource struct {
	mu        sync.Mutex
	accounts  map[string]domain.Account
	ids       map[string][]string
	listErr   error
	matches   map[string]domain.MatchBundle
	timelines map[string]bool
	failures  map[string][]error
	calls     map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		accounts:  map[string]domain.Account{},
		ids:       map[string][]string{},
		matches:   map[string]domain.MatchBundle{},
		timelines: map[string]bool{},
		failures:  map[string][]error{},
		calls:     map[string]int{},
	}
}

func (f *fakeSource) addAccount(name, tag, puuid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[name+"#"+tag] = domain.Account{Puuid: puuid, GameName: name, TagLine: tag}
}

// addMatch stores b, lists it for every puuid in it and serves its timeline.
func (f *fakeSource) addMatch(b domain.MatchBundle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches[b.Match.MatchID] = b
	f.timelines[b.Match.MatchID] = true
	for _, p := range b.Participants {
		f.ids[p.Puuid] = append(f.ids[p.Puuid], b.Match.MatchID)
	}
}

func (f *fakeSource) failNext(key string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = append(f.failures[key], errs...)
}

func (f *fakeSource) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeSource) next(key string) error {
	f.calls[key]++
	if errs := f.failures[key]; len(errs) > 0 {
		f.failures[key] = errs[1:]
		return errs[0]
	}
	return nil
}

func (f *fakeSource) GetAccount(_ context.Context, _, gameName, tagLine string) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[gameName+"#"+tagLine]
	if !ok {
		return domain.Account{}, domain.ErrPlayerNotFound
	}
	return acc, nil
}

func (f *fakeSource) ListMatchIDs(_ context.Context, _, puuid string, year int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list:"+puuid]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []string
	for _, id := range f.ids[puuid] {
		if f.matches[id].Match.GameCreation.UTC().Year() == year {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeSource) GetMatch(_ context.Context, _, matchID string) (domain.MatchBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next("match:" + matchID); err != nil {
		return domain.MatchBundle{}, err
	}
	b, ok := f.matches[matchID]
	if !ok {
		return domain.MatchBundle{}, fmt.Errorf("%w: %s not found", domain.ErrMalformedRecord, matchID)
	}
	out := b
	out.Participants = append([]domain.Participant(nil), b.Participants...)
	return out, nil
}

func (f *fakeSource) GetTimeline(_ context.Context, _, matchID string) (domain.Timeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next("timeline:" + matchID); err != nil {
		return domain.Timeline{}, err
	}
	if !f.timelines[matchID] {
		return domain.Timeline{}, fmt.Errorf("%w: timeline %s", domain.ErrTransientFetch, matchID)
	}
	return domain.Timeline{MatchID: matchID, DataVersion: "2", FrameInterval: 60000, Raw: []byte(`{"frames":[]}`)}, nil
}

// matchFor builds a ten player match; puuid plays slot 0 with the given line.
func matchFor(id string, created time.Time, puuid, champion string, k, d, a int, win bool) domain.MatchBundle {
	b := domain.MatchBundle{
		Match: domain.Match{
			MatchID:      id,
			DataVersion:  "2",
			GameCreation: created,
			GameDuration: 1700,
			QueueID:      420,
			Platform:     "NA1",
			Raw:          []byte(`{}`),
		},
	}
	b.Participants = append(b.Participants, domain.Participant{
		MatchID: id, Puuid: puuid, TeamID: 100, ChampionName: champion, Role: "SOLO", Lane: "MIDDLE",
		Kills: k, Deaths: d, Assists: a, Win: win, GoldEarned: 11000, TotalMinionsKilled: 170, NeutralMinionsKilled: 8,
		DamageToChampions: 21000,
	})
	for i := 1; i < 10; i++ {
		team := 100
		if i >= 5 {
			team = 200
		}
		b.Participants = append(b.Participants, domain.Participant{
			MatchID: id, Puuid: fmt.Sprintf("%s-other-%d", id, i), TeamID: team, ChampionName: "Garen",
			Kills: 1, Deaths: 1, Assists: 1, Win: (team == 100) == win,
		})
	}
	return b
}
