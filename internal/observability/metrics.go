// Package observability holds process-wide metrics and tracing setup.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// CacheLookups counts cache-aside lookups by outcome (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_cache_lookups_total",
		Help: "Cache-aside lookups by outcome",
	}, []string{"outcome"})

	// AuthAttempts counts signup and login outcomes.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_auth_attempts_total",
		Help: "Authentication attempts by operation and outcome",
	}, []string{"operation", "outcome"})

	// PostMutations counts successful post mutations by action.
	PostMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_post_mutations_total",
		Help: "Successful post mutations by action",
	}, []string{"action"})

	// ImageStoreOps counts image store calls by backend, operation and outcome.
	ImageStoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_image_store_operations_total",
		Help: "Image store operations by backend, operation and outcome",
	}, []string{"backend", "operation", "outcome"})

	// BroadcastsTotal counts realtime events published, by sink and outcome.
	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_broadcasts_total",
		Help: "Realtime events published by sink and outcome",
	}, []string{"sink", "outcome"})

	// WebSocketConnections is the gauge of open realtime connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedhub_websocket_connections",
		Help: "Number of open WebSocket connections",
	})

	// WebSocketDrops counts frames dropped for slow or closed clients.
	WebSocketDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhub_websocket_dropped_frames_total",
		Help: "WebSocket frames dropped due to backpressure",
	}, []string{"reason"})
)
