// Package metrics provides application-level metrics collection backed by
// Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation outcomes.
const (
	OutcomeBroadcast = "broadcast"
	OutcomeStored    = "stored"
	OutcomeFailed    = "failed"
)

// Metrics holds the connector's Prometheus collectors.
// All methods are safe on a nil receiver.
type Metrics struct {
	rpcCalls   *prometheus.CounterVec
	rpcErrors  *prometheus.CounterVec
	rpcLatency *prometheus.HistogramVec

	operations          *prometheus.CounterVec
	kmsCompleteFailures *prometheus.CounterVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// Global is the global metrics instance registered with the default
// Prometheus registry.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = New(prometheus.DefaultRegisterer)

// New creates the collectors and registers them with reg.
// A nil registerer creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rpcCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_rpc_calls_total",
			Help: "Total number of node RPC calls.",
		}, []string{"chain"}),
		rpcErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_rpc_errors_total",
			Help: "Total number of failed node RPC calls.",
		}, []string{"chain"}),
		rpcLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "connector_rpc_duration_seconds",
			Help:    "Node RPC call latency.",
			Buckets: []float64{0.05, 0.1, 0.3, 0.5, 1.0, 2.0, 5.0},
		}, []string{"chain"}),
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_operations_total",
			Help: "Transaction operations by chain, operation and outcome.",
		}, []string{"asset", "chain", "operation", "outcome"}),
		kmsCompleteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_kms_complete_failures_total",
			Help: "Broadcasts whose pending signature could not be completed.",
		}, []string{"chain"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "connector_cache_hits_total",
			Help: "Block cache hits.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "connector_cache_misses_total",
			Help: "Block cache misses.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "connector_http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: []float64{0.1, 0.3, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "path"}),
	}
}

// RecordRPCCall records an RPC call with its duration and success status.
func (m *Metrics) RecordRPCCall(chain string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.rpcCalls.WithLabelValues(chain).Inc()
	m.rpcLatency.WithLabelValues(chain).Observe(duration.Seconds())
	if err != nil {
		m.rpcErrors.WithLabelValues(chain).Inc()
	}
}

// RecordOperation records the outcome of a transaction operation.
func (m *Metrics) RecordOperation(asset, chain, operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(asset, chain, operation, outcome).Inc()
}

// RecordKMSCompleteFailure records a broadcast whose KMS completion failed.
func (m *Metrics) RecordKMSCompleteFailure(chain string) {
	if m == nil {
		return
	}
	m.kmsCompleteFailures.WithLabelValues(chain).Inc()
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// RecordHTTPRequest records a served HTTP request. path is the route
// template, not the concrete URL.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
