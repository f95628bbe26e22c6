package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records repository query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "isintu_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostsSubmitted counts post submissions by resulting status.
	PostsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isintu_posts_submitted_total",
		Help: "Total number of submitted posts by initial status",
	}, []string{"status"})

	// ModerationDecisions counts approve and reject outcomes.
	ModerationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isintu_moderation_decisions_total",
		Help: "Total number of moderation decisions by action and outcome",
	}, []string{"action", "outcome"})

	// NotificationsFannedOut counts notification rows written by publication fan-out.
	NotificationsFannedOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "isintu_notifications_fanned_out_total",
		Help: "Total number of notifications created by post publication",
	})

	// NotificationsPurged counts read notifications removed by the retention job.
	NotificationsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "isintu_notifications_purged_total",
		Help: "Total number of read notifications purged by retention",
	})

	// EngagementEvents counts likes, comments, replies and follows.
	EngagementEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isintu_engagement_events_total",
		Help: "Total number of engagement events by kind",
	}, []string{"kind"})

	// MediaUploadBytes observes stored object sizes by media kind.
	MediaUploadBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "isintu_media_upload_bytes",
		Help:    "Size of stored media objects in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
	}, []string{"kind"})
)

// TrackQuery returns a function that records query latency when called, e.g.
//
//	defer observability.TrackQuery("select", "posts")()
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
