package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Points cache outcomes.
const (
	OutcomeHit      = "hit"
	OutcomeRefresh  = "refresh"
	OutcomeFallback = "fallback"
	OutcomeZero     = "zero"
)

// Metrics holds the gateway's domain collectors.
type Metrics struct {
	PointsCache       *prometheus.CounterVec
	PointsCachesLive  prometheus.Gauge
	BackendCalls      *prometheus.CounterVec
	BackendDuration   *prometheus.HistogramVec
	LeaderboardSource *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PointsCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "poi",
				Name:      "points_cache_requests_total",
				Help:      "Points cache reads by outcome",
			},
			[]string{"outcome"},
		),
		PointsCachesLive: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "poi",
				Name:      "points_caches",
				Help:      "Number of per-caller points caches held in memory",
			},
		),
		BackendCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "poi",
				Name:      "backend_calls_total",
				Help:      "Remote canister calls by method and result",
			},
			[]string{"method", "result"},
		),
		BackendDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "poi",
				Name:      "backend_call_duration_seconds",
				Help:      "Remote canister call latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		LeaderboardSource: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "poi",
				Name:      "leaderboard_responses_total",
				Help:      "Leaderboard responses by data source",
			},
			[]string{"source"},
		),
	}
}

// Nop returns collectors registered nowhere.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
