package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe("transfer", "ok", time.Now())
	m.Observe("transfer", "ok", time.Now())
	m.Observe("transfer", "insufficient_funds", time.Now())
	m.Deposit("paystack", "credited")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("transfer", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("transfer", "insufficient_funds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deposits.WithLabelValues("paystack", "credited")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe("transfer", "ok", time.Now())
	m.Deposit("stripe", "ignored")
}
