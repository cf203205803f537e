package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"durablekv/internal/replication"
)

// Metrics holds the Prometheus collectors this node exposes at /metrics.
type Metrics struct {
	writesTotal            *prometheus.CounterVec
	fsyncSeconds           prometheus.Histogram
	replicationFanoutTotal *prometheus.CounterVec
	registry               *prometheus.Registry
}

// NewMetrics registers a fresh set of collectors on their own registry, so
// multiple engines in the same test binary don't collide on the default
// global registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		writesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "kv_writes_total",
			Help: "Total number of accepted write operations, by kind.",
		}, []string{"op"}),
		fsyncSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "kv_fsync_seconds",
			Help:    "Latency of a write call as observed at the dispatcher: WAL append and fsync, plus replication fanout and index update when enabled; rejected writes included.",
			Buckets: prometheus.DefBuckets,
		}),
		replicationFanoutTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "replication_fanout_total",
			Help: "Total number of replication fanout attempts, by outcome.",
		}, []string{"outcome"}),
		registry: reg,
	}
	return m
}

// ReplicationMetrics adapts the counters to replication.Metrics so the
// replication engine can report fanout outcomes without importing this
// package.
func (m *Metrics) ReplicationMetrics() *replication.Metrics {
	return &replication.Metrics{
		FanoutOK:   func(string) { m.replicationFanoutTotal.WithLabelValues("ok").Inc() },
		FanoutFail: func(string) { m.replicationFanoutTotal.WithLabelValues("fail").Inc() },
	}
}

func (m *Metrics) observeWrite(op string) {
	m.writesTotal.WithLabelValues(op).Inc()
}
