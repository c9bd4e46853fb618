package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RiotRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lolsync_riot_requests_total",
			Help: "Riot API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	RiotRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lolsync_riot_request_duration_seconds",
			Help:    "Riot API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lolsync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	UnitsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lolsync_units_total",
			Help: "Ingest units by kind (match, timeline) and result",
		},
		[]string{"kind", "result"},
	)

	UnitAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lolsync_unit_retries_total",
			Help: "Retried unit attempts by kind and error kind",
		},
		[]string{"kind", "error_kind"},
	)

	AggregateDrift = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lolsync_aggregate_drift_total",
			Help: "Yearly aggregates found to disagree with a recompute",
		},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lolsync_job_duration_seconds",
			Help:    "Sync and recovery job duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"kind", "status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lolsync_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lolsync_jobs_in_flight",
			Help: "Jobs currently running",
		},
	)
)
