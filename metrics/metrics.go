package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueueJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchmaking_queue_joins_total",
		Help: "Successful queue admissions, by tenant and queue.",
	}, []string{"tenant", "queue"})

	QueueRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchmaking_queue_rejections_total",
		Help: "Rejected queue admissions, by reason.",
	}, []string{"reason"})

	MatchesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchmaking_matches_created_total",
		Help: "Matches created from drained queues, by tenant and queue.",
	}, []string{"tenant", "queue"})

	SeriesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchmaking_series_completed_total",
		Help: "Series driven to completion, by tenant and queue.",
	}, []string{"tenant", "queue"})

	MatchesCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchmaking_matches_cancelled_total",
		Help: "Matches cancelled before completion, by tenant and queue.",
	}, []string{"tenant", "queue"})

	VotesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchmaking_votes_recorded_total",
		Help: "Accepted game winner votes.",
	})

	PersistenceRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchmaking_persistence_retries_total",
		Help: "Retries of the series completion transaction.",
	})

	ActiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matchmaking_active_matches",
		Help: "Matches currently tracked in memory.",
	})

	DecayRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchmaking_decay_runs_total",
		Help: "Completed rating decay sweeps.",
	})
)
