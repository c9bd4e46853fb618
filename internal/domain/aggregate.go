package domain

import (
	"math"
	"sort"
	"time"
)

// YearlyAggregate is derived data keyed by (PlayerID, Year). It can always be
// rebuilt from the participant rows of that player and year.
type YearlyAggregate struct {
	PlayerID string
	Year     int

	TotalMatches              int
	Wins                      int
	Losses                    int
	TotalKills                int64
	TotalDeaths               int64
	TotalAssists              int64
	TotalGoldEarned           int64
	TotalMinionsKilled        int64
	TotalNeutralMinionsKilled int64
	TotalDamageToChampions    int64

	ChampionCounts          map[string]int
	Roles                   []string // sorted, distinct
	Lanes                   []string // sorted, distinct
	MostPlayedChampion      string
	MostPlayedChampionCount int
	UniqueChampionsPlayed   int
	UniqueRolesPlayed       int
	UniqueLanesPlayed       int

	WinRate             float64
	KDARatio            float64
	AverageKills        float64
	AverageDeaths       float64
	AverageAssists      float64
	AverageGoldPerMatch float64
	AverageCSPerMatch   float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewYearlyAggregate(playerID string, year int) YearlyAggregate {
	return YearlyAggregate{
		PlayerID:       playerID,
		Year:           year,
		ChampionCounts: map[string]int{},
		Roles:          []string{},
		Lanes:          []string{},
	}
}

// Fold adds one participant row to agg and returns the updated aggregate.
// agg is not modified. Fold keeps no memory of which matches it has seen, so
// callers must apply it exactly once per (player, year, match).
func Fold(agg YearlyAggregate, p Participant) YearlyAggregate {
	out := agg.clone()

	out.TotalMatches++
	if p.Win {
		out.Wins++
	} else {
		out.Losses++
	}

	out.TotalKills += int64(p.Kills)
	out.TotalDeaths += int64(p.Deaths)
	out.TotalAssists += int64(p.Assists)
	out.TotalGoldEarned += int64(p.GoldEarned)
	out.TotalMinionsKilled += int64(p.TotalMinionsKilled)
	out.TotalNeutralMinionsKilled += int64(p.NeutralMinionsKilled)
	out.TotalDamageToChampions += int64(p.DamageToChampions)

	if p.ChampionName != "" {
		out.ChampionCounts[p.ChampionName]++
		count := out.ChampionCounts[p.ChampionName]
		if beatsMode(p.ChampionName, count, out.MostPlayedChampion, out.MostPlayedChampionCount) {
			out.MostPlayedChampion = p.ChampionName
			out.MostPlayedChampionCount = count
		}
	}
	out.Roles = insertSorted(out.Roles, p.Role)
	out.Lanes = insertSorted(out.Lanes, p.Lane)

	out.Derive()
	return out
}

// Recompute builds an aggregate from scratch. The result does not depend on
// the order of participants.
func Recompute(playerID string, year int, participants []Participant) YearlyAggregate {
	agg := NewYearlyAggregate(playerID, year)
	for _, p := range participants {
		agg = Fold(agg, p)
	}
	agg.Derive()
	return agg
}

// Derive recomputes every derived field from the cumulative counters.
//
// KDA policy: (kills + assists) / max(deaths, 1). A deathless record counts
// as one death for this ratio only; AverageDeaths still reports the true value.
func (a *YearlyAggregate) Derive() {
	a.UniqueChampionsPlayed = len(a.ChampionCounts)
	a.UniqueRolesPlayed = len(a.Roles)
	a.UniqueLanesPlayed = len(a.Lanes)

	deaths := a.TotalDeaths
	if deaths < 1 {
		deaths = 1
	}
	a.KDARatio = float64(a.TotalKills+a.TotalAssists) / float64(deaths)

	if a.TotalMatches == 0 {
		a.WinRate = 0
		a.AverageKills = 0
		a.AverageDeaths = 0
		a.AverageAssists = 0
		a.AverageGoldPerMatch = 0
		a.AverageCSPerMatch = 0
		return
	}

	n := float64(a.TotalMatches)
	a.WinRate = float64(a.Wins) / n * 100
	a.AverageKills = float64(a.TotalKills) / n
	a.AverageDeaths = float64(a.TotalDeaths) / n
	a.AverageAssists = float64(a.TotalAssists) / n
	a.AverageGoldPerMatch = float64(a.TotalGoldEarned) / n
	a.AverageCSPerMatch = float64(a.TotalMinionsKilled+a.TotalNeutralMinionsKilled) / n
}

// Consistent reports whether the match counters agree with each other.
func (a YearlyAggregate) Consistent() bool {
	return a.TotalMatches == a.Wins+a.Losses && a.TotalMatches >= 0
}

// Diff lists the fields on which a and b disagree. Ratios compare with
// tolerance; timestamps are ignored.
func (a YearlyAggregate) Diff(b YearlyAggregate, tolerance float64) []string {
	var fields []string
	ints := []struct {
		name string
		x, y int64
	}{
		{"total_matches", int64(a.TotalMatches), int64(b.TotalMatches)},
		{"wins", int64(a.Wins), int64(b.Wins)},
		{"losses", int64(a.Losses), int64(b.Losses)},
		{"total_kills", a.TotalKills, b.TotalKills},
		{"total_deaths", a.TotalDeaths, b.TotalDeaths},
		{"total_assists", a.TotalAssists, b.TotalAssists},
		{"total_gold_earned", a.TotalGoldEarned, b.TotalGoldEarned},
		{"total_minions_killed", a.TotalMinionsKilled, b.TotalMinionsKilled},
		{"total_neutral_minions_killed", a.TotalNeutralMinionsKilled, b.TotalNeutralMinionsKilled},
		{"total_damage_to_champions", a.TotalDamageToChampions, b.TotalDamageToChampions},
		{"most_played_champion_count", int64(a.MostPlayedChampionCount), int64(b.MostPlayedChampionCount)},
		{"unique_champions_played", int64(a.UniqueChampionsPlayed), int64(b.UniqueChampionsPlayed)},
		{"unique_roles_played", int64(a.UniqueRolesPlayed), int64(b.UniqueRolesPlayed)},
		{"unique_lanes_played", int64(a.UniqueLanesPlayed), int64(b.UniqueLanesPlayed)},
	}
	for _, f := range ints {
		if f.x != f.y {
			fields = append(fields, f.name)
		}
	}
	if a.MostPlayedChampion != b.MostPlayedChampion {
		fields = append(fields, "most_played_champion")
	}
	if !sameCounts(a.ChampionCounts, b.ChampionCounts) {
		fields = append(fields, "champion_counts")
	}
	if !sameStrings(a.Roles, b.Roles) {
		fields = append(fields, "roles")
	}
	if !sameStrings(a.Lanes, b.Lanes) {
		fields = append(fields, "lanes")
	}

	floats := []struct {
		name string
		x, y float64
	}{
		{"win_rate", a.WinRate, b.WinRate},
		{"kda_ratio", a.KDARatio, b.KDARatio},
		{"average_kills", a.AverageKills, b.AverageKills},
		{"average_deaths", a.AverageDeaths, b.AverageDeaths},
		{"average_assists", a.AverageAssists, b.AverageAssists},
		{"average_gold_per_match", a.AverageGoldPerMatch, b.AverageGoldPerMatch},
		{"average_cs_per_match", a.AverageCSPerMatch, b.AverageCSPerMatch},
	}
	for _, f := range floats {
		if math.Abs(f.x-f.y) > tolerance {
			fields = append(fields, f.name)
		}
	}
	return fields
}

// beatsMode picks the champion with the highest count; ties go to the
// lexicographically smallest name so the result is independent of fold order.
func beatsMode(name string, count int, mode string, modeCount int) bool {
	if mode == "" || count > modeCount {
		return true
	}
	return count == modeCount && name < mode
}

func (a YearlyAggregate) clone() YearlyAggregate {
	out := a
	out.ChampionCounts = make(map[string]int, len(a.ChampionCounts)+1)
	for k, v := range a.ChampionCounts {
		out.ChampionCounts[k] = v
	}
	out.Roles = append(make([]string, 0, len(a.Roles)+1), a.Roles...)
	out.Lanes = append(make([]string, 0, len(a.Lanes)+1), a.Lanes...)
	return out
}

func insertSorted(set []string, v string) []string {
	if v == "" {
		return set
	}
	i := sort.SearchStrings(set, v)
	if i < len(set) && set[i] == v {
		return set
	}
	set = append(set, "")
	copy(set[i+1:], set[i:])
	set[i] = v
	return set
}

func sameCounts(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
