package domain

import (
	"strings"
	"time"
)

type Player struct {
	ID        string // nanoid
	Puuid     string
	GameName  string
	TagLine   string
	Platform  string // na1, euw1, ...
	Routing   string // americas, europe, asia
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Match struct {
	MatchID      string
	DataVersion  string
	GameCreation time.Time
	GameDuration int
	QueueID      int
	Platform     string
	Routing      string
	Year         int // UTC year of GameCreation
	Raw          []byte
	CreatedAt    time.Time
}

type Participant struct {
	MatchID              string
	Puuid                string
	PlayerID             string // empty when the puuid is not tracked
	SummonerName         string
	TeamID               int
	ChampionID           int
	ChampionName         string
	Role                 string
	Lane                 string
	Kills                int
	Deaths               int
	Assists              int
	Win                  bool
	GoldEarned           int
	TotalMinionsKilled   int
	NeutralMinionsKilled int
	DamageToChampions    int
	Items                [7]*int
	Spell1               *int
	Spell2               *int
	PerkPrimaryStyle     *int
	PerkSubStyle         *int
}

type Timeline struct {
	MatchID       string
	DataVersion   string
	FrameInterval int
	Raw           []byte
	CreatedAt     time.Time
}

// Account is the remote identity of a player.
type Account struct {
	Puuid    string
	GameName string
	TagLine  string
}

// MatchBundle is one fetched match with every participant row.
type MatchBundle struct {
	Match        Match
	Participants []Participant
}

// MatchUnit is the smallest schedulable piece of ingest work.
type MatchUnit struct {
	MatchID  string
	Platform string
	Routing  string
}

type JobKind string

const (
	JobKindSync     JobKind = "sync"
	JobKindRecovery JobKind = "recovery"
)

type JobStatus string

const (
	JobStatusStarted  JobStatus = "started"
	JobStatusProgress JobStatus = "PROGRESS"
	JobStatusSuccess  JobStatus = "SUCCESS"
	JobStatusFailure  JobStatus = "FAILURE"
)

type Step string

const (
	StepFetchingSummoner  Step = "fetching_summoner"
	StepFetchingMatches   Step = "fetching_matches"
	StepProcessingMatches Step = "processing_matches"
	StepUpdatingStats     Step = "updating_stats"
	StepCompleted         Step = "completed"
	StepFailed            Step = "failed"
)

var stepOrder = map[Step]int{
	StepFetchingSummoner:  1,
	StepFetchingMatches:   2,
	StepProcessingMatches: 3,
	StepUpdatingStats:     4,
	StepCompleted:         5,
	StepFailed:            5,
}

// Rank orders steps; zero means the step is unknown.
func (s Step) Rank() int {
	return stepOrder[s]
}

func (s Step) Terminal() bool {
	return s == StepCompleted || s == StepFailed
}

type SyncRequest struct {
	GameName string `json:"game_name" validate:"required,max=64"`
	TagLine  string `json:"tag_line" validate:"required,max=16"`
	Platform string `json:"platform" validate:"omitempty,alphanum,max=10"`
	Routing  string `json:"routing" validate:"omitempty,oneof=americas europe asia sea"`
	Year     int    `json:"year" validate:"omitempty,gte=2009"`
}

type Counts struct {
	Total     int `json:"total"`
	Existing  int `json:"existing"`
	Missing   int `json:"missing"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type UnitFailure struct {
	MatchID string `json:"match_id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type SyncResult struct {
	PlayerID           string        `json:"player_id"`
	PlayerName         string        `json:"player_name"`
	Year               int           `json:"year"`
	Counts             Counts        `json:"counts"`
	Failures           []UnitFailure `json:"failures,omitempty"`
	ProcessedTimelines int           `json:"processed_timelines"`
	FailedTimelines    []UnitFailure `json:"failed_timelines,omitempty"`
	DriftCorrected     bool          `json:"drift_corrected"`
}

type Progress struct {
	JobID     string
	Kind      JobKind
	Status    JobStatus
	Step      Step
	Progress  int
	Detail    map[string]any
	Result    *SyncResult
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

var platformRouting = map[string]string{
	"na1": "americas", "br1": "americas", "la1": "americas", "la2": "americas",
	"euw1": "europe", "eun1": "europe", "tr1": "europe", "ru": "europe", "me1": "europe",
	"kr": "asia", "jp1": "asia",
	"oc1": "sea", "ph2": "sea", "sg2": "sea", "th2": "sea", "tw2": "sea", "vn2": "sea",
}

// Normalize fills defaults: platform na1, the platform's regional routing
// and defaultYear.
func (r SyncRequest) Normalize(defaultYear int) SyncRequest {
	r.Platform = strings.ToLower(r.Platform)
	if r.Platform == "" {
		r.Platform = "na1"
	}
	if r.Routing == "" {
		r.Routing = platformRouting[r.Platform]
	}
	if r.Routing == "" {
		r.Routing = "americas"
	}
	if r.Year == 0 {
		r.Year = defaultYear
	}
	return r
}
