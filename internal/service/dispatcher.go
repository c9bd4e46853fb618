package service

import (
	"context"

	"github.com/alitto/pond/v2"
	"github.com/rs/zerolog"

	"lolsync/internal/config"
)

// Dispatcher runs jobs and their units on two bounded pools, so units of a
// running job never wait behind queued jobs.
type Dispatcher struct {
	jobs   pond.Pool
	units  pond.Pool
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(cfg *config.Config, logger zerolog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		jobs:   pond.NewPool(cfg.JobWorkers),
		units:  pond.NewPool(cfg.UnitWorkers),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context is the parent of every job context; Stop cancels it.
func (d *Dispatcher) Context() context.Context {
	return d.ctx
}

// Submit queues a job and returns at once.
func (d *Dispatcher) Submit(job func()) {
	d.jobs.Submit(job)
}

// RunUnits runs fn once per item on the unit pool and waits for all of them.
// fn reports its own failures; RunUnits only waits.
func RunUnits[T any](d *Dispatcher, items []T, fn func(T)) {
	if len(items) == 0 {
		return
	}
	group := d.units.NewGroup()
	for _, item := range items {
		group.Submit(func() { fn(item) })
	}
	if err := group.Wait(); err != nil {
		d.logger.Error().Err(err).Msg("unit group stopped")
	}
}

// Stop cancels running jobs and waits for the queued ones to drain.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.jobs.StopAndWait()
	d.units.StopAndWait()
}
