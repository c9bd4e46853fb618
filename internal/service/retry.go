package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"lolsync/internal/domain"
	"lolsync/internal/metrics"
)

// RetryPolicy bounds how a unit of work is retried.
type RetryPolicy struct {
	Name           string
	MaxAttempts    int
	BaseDelay      time.Duration
	Multiplier     float64
	MaxDelay       time.Duration
	Jitter         float64 // randomization factor, 0..1
	AttemptTimeout time.Duration
}

var (
	MatchRetryPolicy = RetryPolicy{
		Name:           "match",
		MaxAttempts:    5,
		BaseDelay:      2 * time.Second,
		Multiplier:     2,
		MaxDelay:       time.Minute,
		Jitter:         0.5,
		AttemptTimeout: 30 * time.Second,
	}
	TimelineRetryPolicy = RetryPolicy{
		Name:           "timeline",
		MaxAttempts:    3,
		BaseDelay:      2 * time.Second,
		Multiplier:     2,
		MaxDelay:       30 * time.Second,
		Jitter:         0.5,
		AttemptTimeout: 20 * time.Second,
	}
	PlayerRetryPolicy = RetryPolicy{
		Name:           "player",
		MaxAttempts:    3,
		BaseDelay:      5 * time.Second,
		Multiplier:     2,
		MaxDelay:       time.Minute,
		Jitter:         0.5,
		AttemptTimeout: time.Minute,
	}
)

type RetryPolicies struct {
	Match    RetryPolicy
	Timeline RetryPolicy
	Player   RetryPolicy
}

var DefaultRetryPolicies = RetryPolicies{
	Match:    MatchRetryPolicy,
	Timeline: TimelineRetryPolicy,
	Player:   PlayerRetryPolicy,
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxDelay
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(b, uint64(retries))
}

// Retry runs op under policy and returns its last error.
//
// Transient fetch errors and an unavailable source are retried with
// exponential backoff. A store conflict is retried once right away and then
// treated as transient. Everything else, malformed records included, is
// permanent. Each attempt runs under AttemptTimeout; an attempt that runs out
// of time counts as a transient failure.
func Retry(ctx context.Context, policy RetryPolicy, logger zerolog.Logger, op func(ctx context.Context) error) error {
	conflictRetried := false

	attempt := func() error {
		for {
			actx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
			err := op(actx)
			timedOut := errors.Is(actx.Err(), context.DeadlineExceeded)
			cancel()

			switch {
			case err == nil:
				return nil
			case ctx.Err() != nil:
				return backoff.Permanent(ctx.Err())
			case timedOut:
				return fmt.Errorf("%w: attempt exceeded %s: %v", domain.ErrTransientFetch, policy.AttemptTimeout, err)
			case errors.Is(err, domain.ErrStoreConflict) && !conflictRetried:
				conflictRetried = true
				metrics.UnitAttempts.WithLabelValues(policy.Name, domain.KindStoreConflict).Inc()
				continue
			case errors.Is(err, domain.ErrStoreConflict),
				errors.Is(err, domain.ErrTransientFetch),
				errors.Is(err, domain.ErrSourceUnavailable):
				return err
			default:
				return backoff.Permanent(err)
			}
		}
	}

	notify := func(err error, wait time.Duration) {
		metrics.UnitAttempts.WithLabelValues(policy.Name, domain.KindOf(err)).Inc()
		logger.Warn().Err(err).Str("policy", policy.Name).Dur("wait", wait).Msg("retrying")
	}

	err := backoff.RetryNotify(attempt, backoff.WithContext(policy.backOff(), ctx), notify)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
