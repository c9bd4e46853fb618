package api

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"golang.org/x/time/rate"

	"lolsync/internal/domain"
)

const matchJSON = `{
  "metadata": {"dataVersion": "2", "matchId": "NA1_100", "participants": ["p1", "p2"]},
  "info": {
    "gameCreation": 1718000000000,
    "gameDuration": 1800,
    "queueId": 420,
    "platformId": "NA1",
    "participants": [
      {"puuid": "p1", "summonerName": "One", "teamId": 100, "championId": 103, "championName": "Ahri",
       "role": "SOLO", "lane": "MIDDLE", "kills": 7, "deaths": 2, "assists": 9, "win": true,
       "goldEarned": 12000, "totalMinionsKilled": 180, "neutralMinionsKilled": 12,
       "totalDamageDealtToChampions": 25000, "item0": 3089, "summoner1Id": 4,
       "perks": {"styles": [{"style": 8100}, {"style": 8300}]}},
      {"puuid": "p2", "riotIdGameName": "Two", "teamId": 200, "championId": 222, "championName": "Jinx",
       "role": "CARRY", "lane": "BOTTOM", "kills": 3, "deaths": 7, "assists": 4, "win": false}
    ]
  }
}`

// testServer serves handler over an in-memory listener and returns a client
// wired to it.
func testServer(t *testing.T, handler fasthttp.RequestHandler) *RiotClient {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go srv.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { _ = srv.Shutdown() })

	c := newRiotClient("RGAPI-test", "http://%s.riot.test", 3, rate.Inf, 1, zerolog.Nop())
	c.client.Dial = func(addr string) (net.Conn, error) { return ln.Dial() }
	c.idsBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
	}
	return c
}

func TestDecodeMatch(t *testing.T) {
	bundle, err := DecodeMatch([]byte(matchJSON), "NA1_100")
	require.NoError(t, err)

	assert.Equal(t, "NA1_100", bundle.Match.MatchID)
	assert.Equal(t, 2024, bundle.Match.Year)
	assert.Equal(t, time.UnixMilli(1718000000000).UTC(), bundle.Match.GameCreation)
	require.Len(t, bundle.Participants, 2)

	p1 := bundle.Participants[0]
	assert.Equal(t, "Ahri", p1.ChampionName)
	assert.Equal(t, 25000, p1.DamageToChampions)
	require.NotNil(t, p1.Items[0])
	assert.Equal(t, 3089, *p1.Items[0])
	assert.Nil(t, p1.Items[1])
	require.NotNil(t, p1.PerkSubStyle)
	assert.Equal(t, 8300, *p1.PerkSubStyle)

	assert.Equal(t, "Two", bundle.Participants[1].SummonerName)
}

func TestDecodeMatchRejectsMalformedPayloads(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"metadata":`,
		"no participants":   `{"metadata":{"matchId":"NA1_100"},"info":{"gameCreation":1,"participants":[]}}`,
		"negative kills":    `{"metadata":{"matchId":"NA1_100"},"info":{"gameCreation":1,"participants":[{"puuid":"p1","kills":-1}]}}`,
		"duplicate puuid":   `{"metadata":{"matchId":"NA1_100"},"info":{"gameCreation":1,"participants":[{"puuid":"p1"},{"puuid":"p1"}]}}`,
		"missing creation":  `{"metadata":{"matchId":"NA1_100"},"info":{"participants":[{"puuid":"p1"}]}}`,
		"different matchId": `{"metadata":{"matchId":"NA1_999"},"info":{"gameCreation":1,"participants":[{"puuid":"p1"}]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeMatch([]byte(body), "NA1_100")
			assert.ErrorIs(t, err, domain.ErrMalformedRecord)
		})
	}
}

func TestStatusErrorClassification(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{404, ErrNotFound},
		{429, domain.ErrTransientFetch},
		{500, domain.ErrTransientFetch},
		{503, domain.ErrTransientFetch},
		{403, domain.ErrSourceUnavailable},
		{400, domain.ErrMalformedRecord},
	}
	for _, tc := range cases {
		t.Run(strconv.Itoa(tc.code), func(t *testing.T) {
			assert.ErrorIs(t, &StatusError{Code: tc.code}, tc.want)
		})
	}
}

func TestGetMatch(t *testing.T) {
	c := testServer(t, func(ctx *fasthttp.RequestCtx) {
		assert.Equal(t, "RGAPI-test", string(ctx.Request.Header.Peek("X-Riot-Token")))
		assert.Equal(t, "americas.riot.test", string(ctx.Host()))
		switch string(ctx.Path()) {
		case "/lol/match/v5/matches/NA1_100":
			ctx.Response.Header.Set("X-App-Rate-Limit", "20:1,100:120")
			ctx.SetBodyString(matchJSON)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	})

	bundle, err := c.GetMatch(context.Background(), "americas", "NA1_100")
	require.NoError(t, err)
	assert.Len(t, bundle.Participants, 2)
	assert.Equal(t, "20:1,100:120", c.GetRateLimitInfo().AppLimit)

	_, err = c.GetMatch(context.Background(), "americas", "NA1_404")
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)
}

func TestGetMatchTransientStatus(t *testing.T) {
	c := testServer(t, func(ctx *fasthttp.RequestCtx) {
		ctx.Response.Header.Set("Retry-After", "2")
		ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
	})

	_, err := c.GetMatch(context.Background(), "americas", "NA1_100")
	assert.ErrorIs(t, err, domain.ErrTransientFetch)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2*time.Second, serr.RetryAfter)
	assert.Equal(t, 2, c.GetRateLimitInfo().RetryAfter)
}

func TestGetAccountNotFound(t *testing.T) {
	c := testServer(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	})

	_, err := c.GetAccount(context.Background(), "americas", "Nobody", "NA1")
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestListMatchIDsPaginates(t *testing.T) {
	c := testServer(t, func(ctx *fasthttp.RequestCtx) {
		args := ctx.QueryArgs()
		start, _ := strconv.Atoi(string(args.Peek("start")))
		assert.Equal(t, "1704067200", string(args.Peek("startTime")))
		assert.Equal(t, "1735689600", string(args.Peek("endTime")))

		n := 100
		if start >= 100 {
			n = 30
		}
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("NA1_%d", start+i)
		}
		body, _ := json.Marshal(ids)
		ctx.SetBody(body)
	})

	ids, err := c.ListMatchIDs(context.Background(), "americas", "puuid-1", 2024)
	require.NoError(t, err)
	assert.Len(t, ids, 130)
	assert.Equal(t, "NA1_0", ids[0])
	assert.Equal(t, "NA1_129", ids[129])
}

func TestListMatchIDsRetriesThenGivesUp(t *testing.T) {
	var calls atomic.Int32
	c := testServer(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) == 1 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetBodyString(`["NA1_1","NA1_2"]`)
	})

	ids, err := c.ListMatchIDs(context.Background(), "americas", "puuid-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, []string{"NA1_1", "NA1_2"}, ids)

	down := testServer(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	})
	_, err = down.ListMatchIDs(context.Background(), "americas", "puuid-1", 2024)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	c := testServer(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	})

	for i := 0; i < 20; i++ {
		_, err := c.GetMatch(context.Background(), "americas", "NA1_404")
		require.ErrorIs(t, err, domain.ErrMalformedRecord)
	}
	assert.Equal(t, "closed", c.breaker.State().String())
}
