package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records the outcome of cart operations.
type CartMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	items    prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on the provided registerer. A nil registerer
// yields a no-op recorder.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_operation_duration_seconds",
		Help:    "Duration of cart operations in seconds, lookups included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operation_success_total",
		Help: "Committed cart operations.",
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operation_failure_total",
		Help: "Rejected or failed cart operations.",
	}, []string{"op", "kind"})
	items := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_line_items",
		Help: "Line items currently held in the cart.",
	})
	reg.MustRegister(duration, success, failure, items)
	return &CartMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		items:    items,
	}
}

// ObserveDuration records the duration for the named operation.
func (c *CartMetrics) ObserveDuration(op string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (c *CartMetrics) IncSuccess(op string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure increments the failure counter for the operation and failure kind.
func (c *CartMetrics) IncFailure(op, kind string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(op), normalizeLabel(kind)).Inc()
}

// SetItems records the number of line items after a commit.
func (c *CartMetrics) SetItems(n int) {
	if c == nil || c.items == nil {
		return
	}
	c.items.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
