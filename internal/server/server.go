package server

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"lolsync/internal/config"
	"lolsync/internal/middleware"
	"lolsync/internal/service"
)

// maxBodyBytes bounds request bodies; every request body is a small JSON object.
const maxBodyBytes = 1 << 20

// Server exposes sync jobs, their progress and the yearly stats over HTTP.
type Server struct {
	sync       *service.SyncService
	aggregator *service.Aggregator
	db         *sql.DB

	defaultYear int
	logger      zerolog.Logger
}

func NewServer(syncService *service.SyncService, aggregator *service.Aggregator, sqlDB *sql.DB, cfg *config.Config, logger zerolog.Logger) *Server {
	return &Server{
		sync:        syncService,
		aggregator:  aggregator,
		db:          sqlDB,
		defaultYear: cfg.DefaultMatchYear,
		logger:      logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sync", s.submitSync)
		r.Post("/recover", s.submitRecovery)
		r.Get("/tasks/{taskID}", s.taskStatus)
		r.Get("/players/{playerID}/stats/{year}", s.playerStats)
		r.Post("/maintenance/recompute", s.recompute)
	})

	return r
}
