package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lolsync/internal/domain"
)

func TestSyncIngestsEveryRemoteMatch(t *testing.T) {
	h := newHarness(t)
	h.source.addAccount("Faker", "KR1", "me")
	h.source.addMatch(matchFor("NA1_1", inYear, "me", "Ahri", 7, 2, 9, true))
	h.source.addMatch(matchFor("NA1_2", inYear.Add(time.Hour), "me", "Ahri", 3, 5, 4, false))
	h.source.addMatch(matchFor("NA1_3", inYear.Add(2*time.Hour), "me", "Orianna", 5, 1, 11, true))

	res, p, err := h.run(t, domain.JobKindSync, fakerRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.Counts{Total: 3, Missing: 3, Processed: 3}, res.Counts)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 3, res.ProcessedTimelines)
	assert.False(t, res.DriftCorrected)

	assert.Equal(t, domain.JobStatusSuccess, p.Status)
	assert.Equal(t, domain.StepCompleted, p.Step)
	assert.Equal(t, 100, p.Progress)
	require.NotNil(t, p.Result)
	assert.Equal(t, res.Counts, p.Result.Counts)

	agg := h.aggregate(t, res.PlayerID)
	assert.Equal(t, 3, agg.TotalMatches)
	assert.Equal(t, 2, agg.Wins)
	assert.Equal(t, 1, agg.Losses)
	assert.Equal(t, "Ahri", agg.MostPlayedChampion)
	assert.Equal(t, int64(15), agg.TotalKills)
}

func TestSyncTwiceDoesNotDoubleCount(t *testing.T) {
	h := newHarness(t)
	h.source.addAccount("Faker", "KR1", "me")
	h.source.addMatch(matchFor("NA1_1", inYear, "me", "Ahri", 7, 2, 9, true))
	h.source.addMatch(matchFor("NA1_2", inYear.Add(time.Hour), "me", "Zed", 3, 5, 4, false))

	first, _, err := h.run(t, domain.JobKindSync, fakerRequest())
	require.NoError(t, err)
	before := h.aggregate(t, first.PlayerID)

	second, _, err := h.run(t, domain.JobKindSync, fakerRequest())
	require.NoError(t, err)

	assert.Equal(t, first.PlayerID, second.PlayerID)
	assert.Equal(t, domain.Counts{Total: 2, Existing: 2}, second.Counts)
	assert.Zero(t, second.ProcessedTimelines)

	after := h.aggregate(t, second.PlayerID)
	assert.Equal(t, 2, after.TotalMatches)
	assert.Empty(t, before.Diff(after, 0))
}

func TestSyncCollectsMalformedMatches(t *testing.T) {
	h := newHarness(t)
	h.source.addAccount("Faker", "KR1", "me")
	h.source.addMatch(matchFor("NA1_1", inYear, "me", "Ahri", 7, 2, 9, true))
	h.source.addMatch(matchFor("NA1_2", inYear.Add(time.Hour), "me", "Ahri", -1, 5, 4, false))
	h.source.addMatch(matchFor("NA1_3", inYear.Add(2*time.Hour), "me", "Ahri", 5, 1, 11, true))

	res, p, err := h.run(t, domain.JobKindSync, fakerRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.Counts{Total: 3, Missing: 3, Processed: 2, Failed: 1}, res.Counts)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "NA1_2", res.Failures[0].MatchID)
	assert.Equal(t, domain.KindMalformedRecord, res.Failures[0].Kind)
	assert.Equal(t, domain.JobStatusSuccess, p.Status)

	// permanent: fetched once
	assert.Equal(t, 1, h.source.callCount("match:NA1_2"))

	exists, err := h.matches.Exists(context.Background(), "NA1_2")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 2, h.aggregate(t, res.PlayerID).TotalMatches)
}

func TestSyncRetriesTransientFetches(t *testing.T) {
	h := newHarness(t)
	h.source.addAccount("Faker", "KR1", "me")
	h.source.addMatch(matchFor("NA1_1", inYear, "me", "Ahri", 7, 2, 9, true))
	h.source.addMatch(matchFor("NA1_2", inYear, "me", "Ahri", 1, 2, 3, true))
	h.source.failNext("match:NA1_1",
		fmt.Errorf("%w: 503", domain.ErrTransientFetch),
		fmt.Errorf("%w: 429", domain.ErrTransientFetch),
	)
	transient := fmt.Errorf("%w: 500", domain.ErrTransientFetch)
	h.source.failNext("match:NA1_2", transient, transient, transient, transient)

	res, _, err := h.run(t, domain.JobKindSync, fakerRequest())
	require.NoError(t, err)

	assert.Equal(t, 3, h.source.callCount("match:NA1_1"))
	assert.Equal(t, fastPolicy.MaxAttempts, h.source.callCount("match:NA1_2"))
	assert.Equal(t, 1, res.Counts.Processed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, domain.KindTransientFetch, res.Failures[0].Kind)
}

func TestSyncFailsWhenListingIsUnavailable(t *testing.T) {
	h := newHarness(t)
	h.source.addAccount("Faker", "KR1", "me")
	h.source.listErr = fmt.Errorf("%w: breaker open", domain.ErrSourceUnavailable)

	_, p, err := h.run(t, domain.JobKindSync, fakerRequest())
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)

	assert.Equal(t, domain.JobStatusFailure, p.Status)
	assert.Equal(t, domain.StepFailed, p.Step)
	assert.Equal(t, domain.KindSourceUnavailable, p.Detail["error_kind"])
	assert.NotEmpty(t, p.Error)
}

func TestSyncUnknownAccountFails(t *testing.T) {
	h := newHarness(t)

	_, p, err := h.run(t, domain.JobKindSync, fakerRequest())
	require.ErrorIs(t, err, domain.ErrPlayerNotFound)
	assert.Equal(t, domain.KindPlayerNotFound, p.Detail["error_kind"])
}

func TestRecoveryRequiresStoredPlayer(t *testing.T) {
	h := newHarness(t)
	h.source.addAccount("Faker", "KR1", "me")

	_, p, err := h.run(t, domain.JobKindRecovery, fakerRequest())
	require.ErrorIs(t, err, domain.ErrPlayerNotFound)
	assert.Equal(t, domain.JobStatusFailure, p.Status)
	assert.Zero(t, h.source.callCount("list:me"))
}

func TestRecoveryFillsMissingTimelines(t *testing.T) {
	h := newHarness(t)
	h.source.addAccount("Faker", "KR1", "me")
	h.source.addMatch(matchFor("NA1_1", inYear, "me", "Ahri", 7, 2, 9, true))
	h.source.addMatch(matchFor("NA1_2", inYear, "me", "Ahri", 1, 2, 3, true))
	h.source.timelines["NA1_1"] = false
	h.source.timelines["NA1_2"] = false

	first, _, err := h.run(t, domain.JobKindSync, fakerRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Counts.Processed)
	assert.Len(t, first.FailedTimelines, 2)

	h.source.timelines["NA1_1"] = true
	h.source.timelines["NA1_2"] = true

	res, p, err := h.run(t, domain.JobKindRecovery, fakerRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{Total: 2, Existing: 2}, res.Counts)
	assert.Equal(t, 2, res.ProcessedTimelines)
	assert.Empty(t, res.FailedTimelines)
	assert.Equal(t, domain.JobStatusSuccess, p.Status)
}

func TestSyncLinksMatchesStoredBeforeTracking(t *testing.T) {
	h := newHarness(t)
	h.source.addAccount("Faker", "KR1", "me")
	h.source.addMatch(matchFor("NA1_1", inYear, "me", "Ahri", 7, 2, 9, true))

	_, _, err := h.run(t, domain.JobKindSync, fakerRequest())
	require.NoError(t, err)

	// slot 1 of the stored match, not tracked until now
	h.source.addAccount("Keria", "T1", "NA1_1-other-1")
	res, _, err := h.run(t, domain.JobKindSync, domain.SyncRequest{GameName: "Keria", TagLine: "T1", Year: testYear})
	require.NoError(t, err)

	assert.Equal(t, domain.Counts{Total: 1, Existing: 1}, res.Counts)
	assert.True(t, res.DriftCorrected)
	assert.Equal(t, 1, h.aggregate(t, res.PlayerID).TotalMatches)
}

func TestSubmitSyncRunsInBackground(t *testing.T) {
	h := newHarness(t)
	h.source.addAccount("Faker", "KR1", "me")
	h.source.addMatch(matchFor("NA1_1", inYear, "me", "Ahri", 7, 2, 9, true))

	ctx := context.Background()
	jobID, err := h.sync.SubmitSync(ctx, domain.SyncRequest{GameName: "Faker", TagLine: "KR1"})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		p, err := h.sync.Progress(ctx, jobID)
		return err == nil && p.Step.Terminal()
	}, 10*time.Second, 20*time.Millisecond)

	p, err := h.sync.Progress(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSuccess, p.Status)
	require.NotNil(t, p.Result)
	assert.Equal(t, testYear, p.Result.Year)
	assert.Equal(t, 1, p.Result.Counts.Processed)
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	h := newHarness(t)

	req := h.sync.Normalize(domain.SyncRequest{GameName: "Faker", TagLine: "KR1", Platform: "EUW1"})
	assert.Equal(t, "euw1", req.Platform)
	assert.Equal(t, "europe", req.Routing)
	assert.Equal(t, testYear, req.Year)

	req = h.sync.Normalize(domain.SyncRequest{GameName: "Faker", TagLine: "KR1"})
	assert.Equal(t, "na1", req.Platform)
	assert.Equal(t, "americas", req.Routing)
}
