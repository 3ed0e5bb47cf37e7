// Package metrics defines the Prometheus metrics exported by the proxy.
// Labels are deliberately bounded: tenant, method, cache status, and store
// backend, never fingerprint or raw URL, to avoid cardinality blowup.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// proxyRequestsTotal counts client-facing proxy responses by tenant, method,
	// status, and cache outcome (HIT/MISS).
	proxyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dejafoo_requests_total",
			Help: "Total proxy responses by tenant, method, status and cache result",
		},
		[]string{"tenant", "method", "status", "cache"},
	)
	// proxyReqDuration captures end-to-end proxy latency (client-facing).
	proxyReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dejafoo_request_duration_seconds",
			Help:    "End-to-end proxy request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tenant", "cache"},
	)
	// upstreamRequestsTotal counts upstream fetches performed on a cache miss.
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dejafoo_upstream_requests_total",
			Help: "Total upstream fetches performed on cache misses, by method and outcome status",
		},
		[]string{"method", "status"},
	)
	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dejafoo_upstream_request_duration_seconds",
			Help:    "Upstream fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	// storeOpsTotal counts object-store operations by backend, op, and outcome.
	storeOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dejafoo_store_ops_total",
			Help: "Total object-store operations by backend, operation and outcome",
		},
		[]string{"backend", "op", "outcome"},
	)
	// queueDepth reports requests currently waiting for an admission slot.
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dejafoo_queue_depth",
			Help: "Current admission-queue depth (waiting only)",
		},
	)
	queueRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dejafoo_queue_rejected_total",
			Help: "Total requests rejected due to a full admission queue",
		},
	)
	queueTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dejafoo_queue_timeouts_total",
			Help: "Total requests that timed out while waiting for an admission slot",
		},
	)
	queueWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dejafoo_queue_wait_seconds",
			Help:    "Observed time spent waiting for an admission slot",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		proxyRequestsTotal,
		proxyReqDuration,
		upstreamRequestsTotal,
		upstreamDuration,
		storeOpsTotal,
		queueDepth,
		queueRejected,
		queueTimeouts,
		queueWait,
	)
}

// ObserveProxyResponse records a client-facing proxy response.
func ObserveProxyResponse(tenant, method string, status int, cache string, dur time.Duration) {
	proxyRequestsTotal.WithLabelValues(tenant, method, strconv.Itoa(status), cache).Inc()
	proxyReqDuration.WithLabelValues(tenant, cache).Observe(dur.Seconds())
}

// ObserveUpstreamResponse records a single upstream fetch outcome.
func ObserveUpstreamResponse(method string, status int, dur time.Duration) {
	upstreamRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	upstreamDuration.WithLabelValues(method).Observe(dur.Seconds())
}

// ObserveUpstreamError records a failed upstream fetch (timeout/unreachable).
func ObserveUpstreamError(method, reason string) {
	upstreamRequestsTotal.WithLabelValues(method, reason).Inc()
}

// ObserveStoreOp records an object-store operation outcome ("ok" or "error").
func ObserveStoreOp(backend, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storeOpsTotal.WithLabelValues(backend, op, outcome).Inc()
}

// QueueRejectedInc increments the count of requests rejected due to a full queue.
func QueueRejectedInc() { queueRejected.Inc() }

// QueueTimeoutsInc increments the count of requests that timed out while waiting.
func QueueTimeoutsInc() { queueTimeouts.Inc() }

// QueueWaitObserve observes time spent waiting for an admission slot.
func QueueWaitObserve(d time.Duration) { queueWait.Observe(d.Seconds()) }

// QueueDepthSet sets the current queue depth (waiting requests only).
func QueueDepthSet(depth int64) { queueDepth.Set(float64(depth)) }
