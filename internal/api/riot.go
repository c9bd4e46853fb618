package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"lolsync/internal/config"
	"lolsync/internal/constants"
	"lolsync/internal/domain"
	"lolsync/internal/metrics"
	"lolsync/internal/validation"
)

const breakerName = "riot-api"

// RiotClient covers the four Riot calls the sync engine consumes: Account-V1
// by Riot ID and Match-V5 ids, match and timeline.
type RiotClient struct {
	apiKey     string
	hostFormat string
	pageLimit  int
	client     *fasthttp.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     zerolog.Logger

	// retry budget for match id listing
	idsBackOff func() backoff.BackOff

	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	AppLimit    string `json:"app_limit"`
	AppCount    string `json:"app_count"`
	MethodLimit string `json:"method_limit"`
	MethodCount string `json:"method_count"`

	// seconds, set by the last 429
	RetryAfter int `json:"retry_after"`

	UpdatedAt time.Time `json:"updated_at"`
}

// StatusError is a non-200 answer from Riot. It unwraps to the domain error
// kind the status maps to.
type StatusError struct {
	Code       int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: %d", e.Code)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == fasthttp.StatusNotFound:
		return ErrNotFound
	case e.Code == fasthttp.StatusTooManyRequests, e.Code >= 500:
		return domain.ErrTransientFetch
	case e.Code == fasthttp.StatusUnauthorized, e.Code == fasthttp.StatusForbidden:
		return domain.ErrSourceUnavailable
	default:
		return domain.ErrMalformedRecord
	}
}

// ErrNotFound is a 404. Callers translate it to the kind that fits the
// resource they asked for.
var ErrNotFound = errors.New("not found")

func NewRiotClient(cfg *config.Config, logger zerolog.Logger) *RiotClient {
	return newRiotClient(cfg.RiotAPIKey, constants.RiotAccountHost, cfg.MatchIDsPageLimit,
		rate.Limit(cfg.RiotRequestsPerSecond), cfg.RiotBurst, logger)
}

func newRiotClient(apiKey, hostFormat string, pageLimit int, rps rate.Limit, burst int, logger zerolog.Logger) *RiotClient {
	c := &RiotClient{
		apiKey:     apiKey,
		hostFormat: hostFormat,
		pageLimit:  pageLimit,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter: rate.NewLimiter(rps, burst),
		logger:  logger.With().Str("component", "riot_client").Logger(),
		idsBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return backoff.WithMaxRetries(b, 3)
		},
		rateLimit: RateLimitInfo{UpdatedAt: time.Now()},
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 10
		},
		// Only failures that say something about Riot's health count.
		IsSuccessful: func(err error) bool {
			return err == nil || !(errors.Is(err, domain.ErrTransientFetch) || errors.Is(err, domain.ErrSourceUnavailable))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
	return c
}

func (c *RiotClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *RiotClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if v := string(resp.Header.Peek("X-App-Rate-Limit")); v != "" {
		c.rateLimit.AppLimit = v
	}
	if v := string(resp.Header.Peek("X-App-Rate-Limit-Count")); v != "" {
		c.rateLimit.AppCount = v
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit")); v != "" {
		c.rateLimit.MethodLimit = v
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit-Count")); v != "" {
		c.rateLimit.MethodCount = v
	}
	if v := string(resp.Header.Peek("Retry-After")); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			c.rateLimit.RetryAfter = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

func (c *RiotClient) host(region string) string {
	if strings.Contains(c.hostFormat, "%s") {
		return fmt.Sprintf(c.hostFormat, region)
	}
	return c.hostFormat
}

func (c *RiotClient) GetAccount(ctx context.Context, routing, gameName, tagLine string) (domain.Account, error) {
	u := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.host(routing), url.PathEscape(gameName), url.PathEscape(tagLine))

	dto, err := doRequest[AccountDTO](ctx, c, "account", u)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Account{}, fmt.Errorf("%w: %s#%s", domain.ErrPlayerNotFound, gameName, tagLine)
		}
		return domain.Account{}, err
	}
	if err := validation.Struct(dto); err != nil {
		return domain.Account{}, fmt.Errorf("%w: account: %v", domain.ErrMalformedRecord, err)
	}
	return domain.Account{Puuid: dto.Puuid, GameName: dto.GameName, TagLine: dto.TagLine}, nil
}

// ListMatchIDs returns every match id of puuid whose game started within the
// UTC calendar year, newest first, as Riot orders them. Each page gets a
// small retry budget; once it is spent the source counts as unavailable.
func (c *RiotClient) ListMatchIDs(ctx context.Context, routing, puuid string, year int) ([]string, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var ids []string
	for page := 0; page < c.pageLimit; page++ {
		q := url.Values{}
		q.Set("startTime", strconv.FormatInt(start.Unix(), 10))
		q.Set("endTime", strconv.FormatInt(end.Unix(), 10))
		q.Set("start", strconv.Itoa(page*constants.MatchIDsPageSize))
		q.Set("count", strconv.Itoa(constants.MatchIDsPageSize))
		u := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?%s", c.host(routing), url.PathEscape(puuid), q.Encode())

		var batch []string
		op := func() error {
			res, err := doRequest[[]string](ctx, c, "match_ids", u)
			if err != nil {
				if errors.Is(err, domain.ErrTransientFetch) {
					return err
				}
				return backoff.Permanent(err)
			}
			batch = *res
			return nil
		}
		notify := func(err error, wait time.Duration) {
			c.logger.Warn().Err(err).Str("puuid", puuid).Int("page", page).Dur("wait", wait).Msg("retrying match id page")
		}
		if err := backoff.RetryNotify(op, backoff.WithContext(c.idsBackOff(), ctx), notify); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: listing match ids: %v", domain.ErrSourceUnavailable, err)
		}

		ids = append(ids, batch...)
		if len(batch) < constants.MatchIDsPageSize {
			break
		}
	}
	return ids, nil
}

// GetMatch fetches and validates one match. A 404 or a payload that does not
// validate yields domain.ErrMalformedRecord.
func (c *RiotClient) GetMatch(ctx context.Context, routing, matchID string) (domain.MatchBundle, error) {
	u := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.host(routing), url.PathEscape(matchID))

	body, err := c.fetch(ctx, "match", u)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.MatchBundle{}, fmt.Errorf("%w: match %s not found", domain.ErrMalformedRecord, matchID)
		}
		return domain.MatchBundle{}, err
	}
	return DecodeMatch(body, matchID)
}

func (c *RiotClient) GetTimeline(ctx context.Context, routing, matchID string) (domain.Timeline, error) {
	u := fmt.Sprintf("%s/lol/match/v5/matches/%s/timeline", c.host(routing), url.PathEscape(matchID))

	body, err := c.fetch(ctx, "timeline", u)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Timeline{}, fmt.Errorf("%w: timeline %s not found", domain.ErrMalformedRecord, matchID)
		}
		return domain.Timeline{}, err
	}
	return DecodeTimeline(body, matchID)
}

func doRequest[T any](ctx context.Context, c *RiotClient, endpoint, url string) (*T, error) {
	body, err := c.fetch(ctx, endpoint, url)
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", domain.ErrMalformedRecord, endpoint, err)
	}
	return &result, nil
}

// fetch performs one rate limited GET through the circuit breaker and returns
// a copy of the body.
func (c *RiotClient) fetch(ctx context.Context, endpoint, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	started := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, url)
	})
	metrics.RiotRequestDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())

	switch {
	case err == nil:
		metrics.RiotRequests.WithLabelValues(endpoint, "ok").Inc()
		return body, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RiotRequests.WithLabelValues(endpoint, "rejected").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	default:
		metrics.RiotRequests.WithLabelValues(endpoint, domain.KindOf(err)).Inc()
		return nil, err
	}
}

func (c *RiotClient) do(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("X-Riot-Token", c.apiKey)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, constants.ExternalAPITimeout)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientFetch, err)
	}

	c.updateRateLimit(resp)

	if resp.StatusCode() != fasthttp.StatusOK {
		serr := &StatusError{Code: resp.StatusCode()}
		if v, err := strconv.Atoi(string(resp.Header.Peek("Retry-After"))); err == nil {
			serr.RetryAfter = time.Duration(v) * time.Second
		}
		if serr.Code == fasthttp.StatusTooManyRequests {
			info := c.GetRateLimitInfo()
			c.logger.Warn().
				Str("app_count", info.AppCount).
				Str("method_count", info.MethodCount).
				Dur("retry_after", serr.RetryAfter).
				Msg("rate limited by Riot")
		}
		return nil, serr
	}

	return append([]byte(nil), resp.Body()...), nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
