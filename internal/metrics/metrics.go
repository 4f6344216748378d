package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_http_requests_total",
		Help: "Total number of HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// PostOperations counts lifecycle operations by outcome
	// (ok, unauthenticated, invalid, not_found, locked, error).
	PostOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_post_operations_total",
		Help: "Total number of post lifecycle operations by result",
	}, []string{"operation", "result"})

	// OrphanedMedia counts media rows or files that could not be removed after
	// they stopped being referenced.
	OrphanedMedia = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_orphaned_media_total",
		Help: "Total number of media left behind after a failed cleanup",
	}, []string{"kind"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_events_published_total",
		Help: "Total number of lifecycle events by type and result",
	}, []string{"type", "result"})
)
