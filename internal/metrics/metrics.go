package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClaimsTotal counts claim attempts by target kind and outcome
	// ("new", "duplicate", "out_of_range").
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailhunt_claims_total",
			Help: "Total number of discovery claims",
		},
		[]string{"kind", "outcome"},
	)

	QuizAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailhunt_quiz_attempts_total",
			Help: "Total number of graded quiz submissions",
		},
		[]string{"result"},
	)

	PointsAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trailhunt_points_awarded_total",
			Help: "Total points credited to user balances",
		},
	)

	TrackIngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trailhunt_track_ingest_duration_seconds",
			Help:    "Duration of GPX track ingestion in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TrackIngestFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailhunt_track_ingest_failures_total",
			Help: "Total number of rejected track uploads",
		},
		[]string{"reason"},
	)

	FeedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trailhunt_feed_clients",
			Help: "Current number of connected discovery-feed clients",
		},
	)
)
