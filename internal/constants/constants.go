package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	JobTimeout         = 2 * time.Hour
)

const (
	DBMaxOpenConns    = 16
	DBMaxIdleConns    = 4
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBusyTimeoutMS   = 10000
)

const (
	ShutdownTimeout = 15 * time.Second
)

const (
	// Riot Match-V5 caps ids pages at 100 entries
	MatchIDsPageSize = 100

	RiotAccountHost = "https://%s.api.riotgames.com"
)

const (
	// progress bands of the processing_matches step
	ProgressMatchesStart   = 20
	ProgressMatchesEnd     = 80
	ProgressTimelinesEnd   = 90
	ProgressUpdatingStats  = 95
	ProgressFetchingPlayer = 5
	ProgressFetchingIDs    = 10
)

const (
	DriftTolerance        = 1e-9
	ProgressPurgeInterval = 1 * time.Hour
)
