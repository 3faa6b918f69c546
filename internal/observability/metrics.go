package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fambam_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ReactionTransitions counts reaction state changes by transition.
	ReactionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fambam_reaction_transitions_total",
		Help: "Reaction state machine transitions",
	}, []string{"transition"})

	// PostsDeleted counts deleted posts by who asked for it.
	PostsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fambam_posts_deleted_total",
		Help: "Posts deleted by reason",
	}, []string{"reason"})

	// MediaCleanupFailures counts blob removals that failed during a post delete.
	MediaCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fambam_media_cleanup_failures_total",
		Help: "Media objects that could not be removed when their post was deleted",
	})

	// MediaUploads counts blob writes by kind and outcome.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fambam_media_uploads_total",
		Help: "Media uploads by kind and outcome",
	}, []string{"kind", "outcome"})

	// RetentionRuns counts retention purges by outcome.
	RetentionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fambam_retention_runs_total",
		Help: "Retention purge runs by outcome",
	}, []string{"outcome"})

	// SyncReloads counts list reloads pushed to realtime viewers.
	SyncReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fambam_sync_reloads_total",
		Help: "Realtime sync reloads by list kind",
	}, []string{"kind"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fambam_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a func that records the query latency when called.
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
