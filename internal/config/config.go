package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	RiotAPIKey string
	DBPath     string
	ServerPort string
	LogLevel   string

	DefaultMatchYear  int
	MatchIDsPageLimit int

	UnitWorkers int
	JobWorkers  int

	RiotRequestsPerSecond float64
	RiotBurst             int

	ProgressTTL          time.Duration
	AutoRecoveryInterval time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("default_match_year", cfg.DefaultMatchYear).
		Int("unit_workers", cfg.UnitWorkers).
		Int("job_workers", cfg.JobWorkers).
		Float64("riot_rps", cfg.RiotRequestsPerSecond).
		Dur("progress_ttl", cfg.ProgressTTL).
		Dur("auto_recovery_interval", cfg.AutoRecoveryInterval).
		Msg("configuration loaded")

	return cfg, nil
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error
	cfg := &Config{
		RiotAPIKey:            getEnv("RIOT_API_KEY", ""),
		DBPath:                getEnv("DB_PATH", "lolsync.db"),
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DefaultMatchYear:      getEnvInt("DEFAULT_MATCH_YEAR", time.Now().UTC().Year(), &errs),
		MatchIDsPageLimit:     getEnvInt("MATCH_IDS_PAGE_LIMIT", 10, &errs),
		UnitWorkers:           getEnvInt("UNIT_WORKERS", 8, &errs),
		JobWorkers:            getEnvInt("JOB_WORKERS", 4, &errs),
		RiotRequestsPerSecond: getEnvFloat("RIOT_REQUESTS_PER_SECOND", 15, &errs),
		RiotBurst:             getEnvInt("RIOT_BURST", 20, &errs),
		ProgressTTL:           getEnvDuration("PROGRESS_TTL", 24*time.Hour, &errs),
		AutoRecoveryInterval:  getEnvDuration("AUTO_RECOVERY_INTERVAL", 6*time.Hour, &errs),
	}
	if len(errs) > 0 {
		return nil, errs[0]
	}

	if cfg.RiotAPIKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}
	if cfg.UnitWorkers < 1 || cfg.JobWorkers < 1 {
		return nil, fmt.Errorf("UNIT_WORKERS and JOB_WORKERS must be positive")
	}
	if cfg.MatchIDsPageLimit < 1 {
		return nil, fmt.Errorf("MATCH_IDS_PAGE_LIMIT must be positive")
	}
	if cfg.RiotRequestsPerSecond <= 0 || cfg.RiotBurst < 1 {
		return nil, fmt.Errorf("RIOT_REQUESTS_PER_SECOND and RIOT_BURST must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}

var Module = fx.Provide(Load)
