package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout step timings, outcomes and cart
// persistence results.
type CheckoutMetrics struct {
	stepDuration *prometheus.HistogramVec
	outcomes     *prometheus.CounterVec
	cartWrites   *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	stepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_step_duration_seconds",
		Help:    "Duration of checkout steps in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcome_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	cartWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_total",
		Help: "Durable cart writes by operation and result.",
	}, []string{"op", "result"})
	reg.MustRegister(stepDuration, outcomes, cartWrites)
	return &CheckoutMetrics{
		stepDuration: stepDuration,
		outcomes:     outcomes,
		cartWrites:   cartWrites,
	}
}

// ObserveStep records the duration of a checkout step.
func (c *CheckoutMetrics) ObserveStep(step string, elapsed time.Duration) {
	if c == nil || c.stepDuration == nil {
		return
	}
	c.stepDuration.WithLabelValues(normalizeLabel(step)).Observe(elapsed.Seconds())
}

// ObserveOutcome counts a finished checkout attempt.
func (c *CheckoutMetrics) ObserveOutcome(outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveCartPersist counts a durable cart write.
func (c *CheckoutMetrics) ObserveCartPersist(op string, err error) {
	if c == nil || c.cartWrites == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.cartWrites.WithLabelValues(normalizeLabel(op), result).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
