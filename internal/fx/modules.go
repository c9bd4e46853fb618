package fx

import (
	"lolsync/internal/api"
	"lolsync/internal/config"
	"lolsync/internal/database"
	"lolsync/internal/logger"
	"lolsync/internal/repository"
	"lolsync/internal/server"
	"lolsync/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewAggregateRepository),
	fx.Provide(repository.NewProgressRepository),
	// api client
	fx.Provide(fx.Annotate(api.NewRiotClient, fx.As(new(service.MatchSource)))),
	// svc
	fx.Provide(service.NewPlayerService),
	fx.Provide(service.NewAggregator),
	fx.Provide(service.NewIngester),
	fx.Provide(service.NewPlanner),
	fx.Provide(service.NewProgressReporter),
	fx.Provide(service.NewDispatcher),
	fx.Provide(service.NewSyncService),
	fx.Provide(service.NewScheduler),
	// server
	fx.Provide(server.NewServer),
)
