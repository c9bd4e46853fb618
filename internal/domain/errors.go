package domain

import (
	"context"
	"errors"
)

var (
	// ErrSourceUnavailable is returned when the remote source cannot be reached after its retry budget
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrTransientFetch is returned for network errors, rate limiting and remote 5xx responses
	ErrTransientFetch = errors.New("transient fetch error")

	// ErrMalformedRecord is returned when a remote record fails validation or cannot be materialized
	ErrMalformedRecord = errors.New("malformed record")

	// ErrStoreConflict is returned when a concurrent write is detected by the store
	ErrStoreConflict = errors.New("store conflict")

	// ErrAggregateDrift is returned when an incrementally maintained aggregate disagrees with a recompute
	ErrAggregateDrift = errors.New("aggregate drift")

	ErrPlayerNotFound = errors.New("player not found")
	ErrMatchNotFound  = errors.New("match not found")
	ErrJobNotFound    = errors.New("job not found")
)

const (
	KindSourceUnavailable = "source_unavailable"
	KindTransientFetch    = "transient_fetch"
	KindMalformedRecord   = "malformed_record"
	KindStoreConflict     = "store_conflict"
	KindAggregateDrift    = "aggregate_drift"
	KindPlayerNotFound    = "player_not_found"
	KindMatchNotFound     = "match_not_found"
	KindJobNotFound       = "job_not_found"
	KindCanceled          = "canceled"
	KindInternal          = "internal"
)

// KindOf maps an error to the kind string reported in job results.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceUnavailable):
		return KindSourceUnavailable
	case errors.Is(err, ErrMalformedRecord):
		return KindMalformedRecord
	case errors.Is(err, ErrStoreConflict):
		return KindStoreConflict
	case errors.Is(err, ErrTransientFetch):
		return KindTransientFetch
	case errors.Is(err, ErrAggregateDrift):
		return KindAggregateDrift
	case errors.Is(err, ErrPlayerNotFound):
		return KindPlayerNotFound
	case errors.Is(err, ErrMatchNotFound):
		return KindMatchNotFound
	case errors.Is(err, ErrJobNotFound):
		return KindJobNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
