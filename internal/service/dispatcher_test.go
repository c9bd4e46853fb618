package service

import (
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"lolsync/internal/config"
)

func TestRunUnitsWaitsForEveryItem(t *testing.T) {
	d := NewDispatcher(&config.Config{JobWorkers: 1, UnitWorkers: 3}, zerolog.Nop())
	defer d.Stop()

	var sum atomic.Int64
	RunUnits(d, []int{1, 2, 3, 4, 5, 6, 7}, func(n int) { sum.Add(int64(n)) })
	assert.Equal(t, int64(28), sum.Load())

	RunUnits(d, nil, func(int) { t.Fatal("no items") })
}

func TestJobsCanRunUnits(t *testing.T) {
	d := NewDispatcher(&config.Config{JobWorkers: 1, UnitWorkers: 2}, zerolog.Nop())

	var sum atomic.Int64
	done := make(chan struct{})
	d.Submit(func() {
		defer close(done)
		RunUnits(d, []int{10, 20}, func(n int) { sum.Add(int64(n)) })
	})
	<-done
	d.Stop()

	assert.Equal(t, int64(30), sum.Load())
}

func TestStopCancelsJobContext(t *testing.T) {
	d := NewDispatcher(&config.Config{JobWorkers: 1, UnitWorkers: 1}, zerolog.Nop())
	assert.NoError(t, d.Context().Err())

	d.Stop()
	assert.Error(t, d.Context().Err())
}
