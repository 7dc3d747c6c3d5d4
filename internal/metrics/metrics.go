// Package metrics holds the engine's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use as a nil pointer; every method becomes a no-op.
type Metrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	deposits   *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet_engine",
			Name:      "operations_total",
			Help:      "Money-moving operations by outcome.",
		}, []string{"op", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wallet_engine",
			Name:      "operation_seconds",
			Help:      "Latency of money-moving operations including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet_engine",
			Name:      "deposits_total",
			Help:      "Provider deposit notifications by outcome.",
		}, []string{"provider", "status"}),
	}
	reg.MustRegister(m.operations, m.latency, m.deposits)
	return m
}

// Observe records one finished operation.
func (m *Metrics) Observe(op, result string, started time.Time) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Deposit records one webhook outcome.
func (m *Metrics) Deposit(provider, status string) {
	if m == nil {
		return
	}
	m.deposits.WithLabelValues(provider, status).Inc()
}
