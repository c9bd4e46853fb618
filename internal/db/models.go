package db

import (
	"database/sql"
	"time"
)

type Player struct {
	ID        string
	Puuid     string
	GameName  string
	TagLine   string
	Platform  string
	Routing   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Match struct {
	MatchID      string
	DataVersion  string
	GameCreation time.Time
	GameDuration int64
	QueueID      int64
	Platform     string
	Routing      string
	Year         int64
	Raw          []byte
	CreatedAt    time.Time
}

type MatchParticipant struct {
	MatchID              string
	Puuid                string
	PlayerID             sql.NullString
	SummonerName         string
	TeamID               int64
	ChampionID           int64
	ChampionName         string
	Role                 string
	Lane                 string
	Kills                int64
	Deaths               int64
	Assists              int64
	Win                  bool
	GoldEarned           int64
	TotalMinionsKilled   int64
	NeutralMinionsKilled int64
	DamageToChampions    int64
	Item0                sql.NullInt64
	Item1                sql.NullInt64
	Item2                sql.NullInt64
	Item3                sql.NullInt64
	Item4                sql.NullInt64
	Item5                sql.NullInt64
	Item6                sql.NullInt64
	Spell1               sql.NullInt64
	Spell2               sql.NullInt64
	PerkPrimaryStyle     sql.NullInt64
	PerkSubStyle         sql.NullInt64
}

type MatchTimeline struct {
	MatchID       string
	DataVersion   string
	FrameInterval int64
	Raw           []byte
	CreatedAt     time.Time
}

// YearlyAggregate stores champion_counts, roles and lanes as JSON text.
type YearlyAggregate struct {
	PlayerID                  string
	Year                      int64
	TotalMatches              int64
	Wins                      int64
	Losses                    int64
	TotalKills                int64
	TotalDeaths               int64
	TotalAssists              int64
	TotalGoldEarned           int64
	TotalMinionsKilled        int64
	TotalNeutralMinionsKilled int64
	TotalDamageToChampions    int64
	ChampionCounts            string
	Roles                     string
	Lanes                     string
	MostPlayedChampion        string
	MostPlayedChampionCount   int64
	UniqueChampionsPlayed     int64
	UniqueRolesPlayed         int64
	UniqueLanesPlayed         int64
	WinRate                   float64
	KdaRatio                  float64
	AverageKills              float64
	AverageDeaths             float64
	AverageAssists            float64
	AverageGoldPerMatch       float64
	AverageCsPerMatch         float64
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

type JobProgress struct {
	JobID     string
	Kind      string
	Status    string
	Step      string
	Progress  int64
	Detail    string
	Result    sql.NullString
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}
