package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lolsync/internal/domain"
)

func TestProgressNeverMovesBackwards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.reporter

	require.NoError(t, r.Start(ctx, "job-1", domain.JobKindSync))
	p, err := r.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusStarted, p.Status)
	assert.Equal(t, domain.StepFetchingSummoner, p.Step)
	assert.Zero(t, p.Progress)

	require.NoError(t, r.Update(ctx, "job-1", domain.StepProcessingMatches, 50, map[string]any{"current_item": "NA1_1"}))
	require.NoError(t, r.Update(ctx, "job-1", domain.StepProcessingMatches, 30, map[string]any{"player_id": "p1"}))

	p, err = r.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProgress, p.Status)
	assert.Equal(t, 50, p.Progress)
	assert.Equal(t, "NA1_1", p.Detail["current_item"])
	assert.NotContains(t, p.Detail, "player_id")

	// earlier step
	require.NoError(t, r.Update(ctx, "job-1", domain.StepFetchingMatches, 90, nil))
	p, err = r.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepProcessingMatches, p.Step)
	assert.Equal(t, 50, p.Progress)

	require.NoError(t, r.Update(ctx, "job-1", domain.StepUpdatingStats, 150, nil))
	p, err = r.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 100, p.Progress)
}

func TestLateUpdateDoesNotRegressCounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.reporter

	require.NoError(t, r.Start(ctx, "job-1", domain.JobKindSync))
	require.NoError(t, r.Update(ctx, "job-1", domain.StepProcessingMatches, 60, map[string]any{
		"counts":       domain.Counts{Total: 3, Missing: 3, Processed: 2},
		"current_item": "NA1_B",
	}))
	// published by a unit that finished first but reported last
	require.NoError(t, r.Update(ctx, "job-1", domain.StepProcessingMatches, 40, map[string]any{
		"counts":       domain.Counts{Total: 3, Missing: 3, Processed: 1},
		"current_item": "NA1_A",
	}))

	p, err := r.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 60, p.Progress)
	assert.Equal(t, "NA1_B", p.Detail["current_item"])
	counts, ok := p.Detail["counts"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, counts["processed"])

	// equal progress still moves detail forward
	require.NoError(t, r.Update(ctx, "job-1", domain.StepProcessingMatches, 60, map[string]any{"current_item": "NA1_C"}))
	p, err = r.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "NA1_C", p.Detail["current_item"])
}

func TestProgressIgnoresUpdatesAfterCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.reporter

	require.NoError(t, r.Start(ctx, "job-1", domain.JobKindSync))
	require.NoError(t, r.Complete(ctx, "job-1", domain.SyncResult{PlayerID: "p1", Year: testYear}))

	require.NoError(t, r.Update(ctx, "job-1", domain.StepProcessingMatches, 40, nil))
	require.NoError(t, r.Fail(ctx, "job-1", errors.New("late"), nil))

	p, err := r.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSuccess, p.Status)
	assert.Equal(t, domain.StepCompleted, p.Step)
	assert.Equal(t, 100, p.Progress)
	require.NotNil(t, p.Result)
	assert.Equal(t, "p1", p.Result.PlayerID)
	assert.Empty(t, p.Error)
}

func TestProgressFailRecordsKind(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.reporter

	require.NoError(t, r.Start(ctx, "job-1", domain.JobKindRecovery))
	require.NoError(t, r.Update(ctx, "job-1", domain.StepFetchingMatches, 10, nil))
	require.NoError(t, r.Fail(ctx, "job-1", fmt.Errorf("listing: %w", domain.ErrSourceUnavailable), nil))

	p, err := r.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailure, p.Status)
	assert.Equal(t, domain.StepFailed, p.Step)
	assert.Equal(t, domain.JobKindRecovery, p.Kind)
	assert.Equal(t, domain.KindSourceUnavailable, p.Detail["error_kind"])
	assert.Contains(t, p.Error, "source unavailable")
}

func TestProgressRejectsTerminalUpdates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.reporter.Start(ctx, "job-1", domain.JobKindSync))
	assert.Error(t, h.reporter.Update(ctx, "job-1", domain.StepCompleted, 100, nil))
}

func TestProgressUnknownJob(t *testing.T) {
	h := newHarness(t)

	_, err := h.reporter.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	err = h.reporter.Update(context.Background(), "nope", domain.StepFetchingMatches, 10, nil)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}
