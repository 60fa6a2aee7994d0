package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "friendfeed_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// BackendCallLatency records backend API latency by endpoint and outcome.
	BackendCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "friendfeed_backend_call_latency_seconds",
		Help:    "Backend API call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "outcome"})

	// ToastsShown counts toasts shown by severity.
	ToastsShown = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "friendfeed_toasts_shown_total",
		Help: "Total number of toasts shown by severity",
	}, []string{"severity"})

	// SessionStoreOps counts view-model store operations by backend, operation and result.
	SessionStoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "friendfeed_session_store_ops_total",
		Help: "Session store operations",
	}, []string{"store", "operation", "result"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "friendfeed_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "friendfeed_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// ObserveBackendCall records the latency of a backend call started at start.
func ObserveBackendCall(method, endpoint, outcome string, start time.Time) {
	BackendCallLatency.WithLabelValues(method, endpoint, outcome).Observe(time.Since(start).Seconds())
}
