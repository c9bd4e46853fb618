package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSplitsStoredAndMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	player := h.trackedPlayer(t, "Faker", "KR1", "me")

	for _, id := range []string{"NA1_A", "NA1_B", "NA1_C", "NA1_D"} {
		h.source.addMatch(matchFor(id, inYear, "me", "Ahri", 1, 1, 1, true))
	}
	// listed twice upstream
	h.source.ids["me"] = append(h.source.ids["me"], "NA1_B")

	for _, id := range []string{"NA1_A", "NA1_C"} {
		_, err := h.ingester.IngestMatch(ctx, unitOf(id))
		require.NoError(t, err)
	}
	_, err := h.ingester.IngestTimeline(ctx, unitOf("NA1_C"))
	require.NoError(t, err)

	plan, err := h.planner.Plan(ctx, *player, testYear)
	require.NoError(t, err)

	assert.Equal(t, []string{"NA1_A", "NA1_B", "NA1_C", "NA1_D"}, plan.All)
	assert.Equal(t, []string{"NA1_A", "NA1_C"}, plan.Existing)
	assert.Equal(t, []string{"NA1_B", "NA1_D"}, plan.Missing)
	assert.Equal(t, []string{"NA1_A"}, plan.MissingTimelines)
	assert.Equal(t, 1, h.source.callCount("list:me"))

	n, err := h.matches.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPlanWithoutRemoteMatches(t *testing.T) {
	h := newHarness(t)
	player := h.trackedPlayer(t, "Faker", "KR1", "me")

	plan, err := h.planner.Plan(context.Background(), *player, testYear)
	require.NoError(t, err)
	assert.Empty(t, plan.All)
	assert.Empty(t, plan.Missing)
}
