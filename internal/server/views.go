package server

import (
	"time"

	"github.com/goccy/go-json"

	"lolsync/internal/domain"
)

type taskView struct {
	TaskID      string             `json:"task_id"`
	Kind        domain.JobKind     `json:"kind"`
	Status      domain.JobStatus   `json:"status"`
	Step        domain.Step        `json:"step"`
	Progress    int                `json:"progress"`
	Counts      domain.Counts      `json:"counts"`
	CurrentItem string             `json:"current_item,omitempty"`
	Result      *domain.SyncResult `json:"result,omitempty"`
	Error       string             `json:"error,omitempty"`
	ErrorKind   string             `json:"error_kind,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func newTaskView(p *domain.Progress) taskView {
	v := taskView{
		TaskID:    p.JobID,
		Kind:      p.Kind,
		Status:    p.Status,
		Step:      p.Step,
		Progress:  p.Progress,
		Result:    p.Result,
		Error:     p.Error,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Result != nil {
		v.Counts = p.Result.Counts
	} else {
		v.Counts = countsFrom(p.Detail["counts"])
	}
	v.CurrentItem, _ = p.Detail["current_item"].(string)
	v.ErrorKind, _ = p.Detail["error_kind"].(string)
	return v
}

// countsFrom reads the counts a running job stores in its detail; after a
// round trip through the store they are a plain JSON object.
func countsFrom(raw any) domain.Counts {
	var c domain.Counts
	if raw == nil {
		return c
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return c
	}
	_ = json.Unmarshal(data, &c)
	return c
}

type statsView struct {
	PlayerID     string `json:"player_id"`
	Year         int    `json:"year"`
	TotalMatches int    `json:"total_matches"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`

	WinRate             float64 `json:"win_rate"`
	KDARatio            float64 `json:"kda_ratio"`
	AverageKills        float64 `json:"average_kills"`
	AverageDeaths       float64 `json:"average_deaths"`
	AverageAssists      float64 `json:"average_assists"`
	AverageGoldPerMatch float64 `json:"average_gold_per_match"`
	AverageCSPerMatch   float64 `json:"average_cs_per_match"`

	TotalKills             int64 `json:"total_kills"`
	TotalDeaths            int64 `json:"total_deaths"`
	TotalAssists           int64 `json:"total_assists"`
	TotalDamageToChampions int64 `json:"total_damage_to_champions"`

	MostPlayedChampion      string         `json:"most_played_champion"`
	MostPlayedChampionCount int            `json:"most_played_champion_count"`
	UniqueChampionsPlayed   int            `json:"unique_champions_played"`
	ChampionCounts          map[string]int `json:"champion_counts"`
	Roles                   []string       `json:"roles"`
	Lanes                   []string       `json:"lanes"`

	UpdatedAt time.Time `json:"updated_at"`
}

func newStatsView(a domain.YearlyAggregate) statsView {
	v := statsView{
		PlayerID:                a.PlayerID,
		Year:                    a.Year,
		TotalMatches:            a.TotalMatches,
		Wins:                    a.Wins,
		Losses:                  a.Losses,
		WinRate:                 a.WinRate,
		KDARatio:                a.KDARatio,
		AverageKills:            a.AverageKills,
		AverageDeaths:           a.AverageDeaths,
		AverageAssists:          a.AverageAssists,
		AverageGoldPerMatch:     a.AverageGoldPerMatch,
		AverageCSPerMatch:       a.AverageCSPerMatch,
		TotalKills:              a.TotalKills,
		TotalDeaths:             a.TotalDeaths,
		TotalAssists:            a.TotalAssists,
		TotalDamageToChampions:  a.TotalDamageToChampions,
		MostPlayedChampion:      a.MostPlayedChampion,
		MostPlayedChampionCount: a.MostPlayedChampionCount,
		UniqueChampionsPlayed:   a.UniqueChampionsPlayed,
		ChampionCounts:          a.ChampionCounts,
		Roles:                   a.Roles,
		Lanes:                   a.Lanes,
		UpdatedAt:               a.UpdatedAt,
	}
	if v.ChampionCounts == nil {
		v.ChampionCounts = map[string]int{}
	}
	if v.Roles == nil {
		v.Roles = []string{}
	}
	if v.Lanes == nil {
		v.Lanes = []string{}
	}
	return v
}
