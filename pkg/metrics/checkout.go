package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order and payment pipeline activity.
type CheckoutMetrics struct {
	ordersCreated   *prometheus.CounterVec
	confirmDuration *prometheus.HistogramVec
	webhookEvents   *prometheus.CounterVec
	mailFailures    prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders committed to the ledger, by payment method.",
	}, []string{"method"})
	confirmDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_confirm_duration_seconds",
		Help:    "Duration of payment confirmation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Stripe webhook deliveries, by outcome.",
	}, []string{"outcome"})
	mailFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_failures_total",
		Help: "Order notification sends that exhausted their retries.",
	})
	reg.MustRegister(ordersCreated, confirmDuration, webhookEvents, mailFailures)
	return &CheckoutMetrics{
		ordersCreated:   ordersCreated,
		confirmDuration: confirmDuration,
		webhookEvents:   webhookEvents,
		mailFailures:    mailFailures,
	}
}

// IncOrderCreated increments the order counter for the payment method.
func (c *CheckoutMetrics) IncOrderCreated(method string) {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.WithLabelValues(normalizeLabel(method)).Inc()
}

// ObserveConfirmDuration records how long a confirmation took, by path
// (webhook or verify).
func (c *CheckoutMetrics) ObserveConfirmDuration(path string, duration time.Duration) {
	if c == nil || c.confirmDuration == nil {
		return
	}
	c.confirmDuration.WithLabelValues(normalizeLabel(path)).Observe(duration.Seconds())
}

// IncWebhookEvent increments the webhook counter for the outcome.
func (c *CheckoutMetrics) IncWebhookEvent(outcome string) {
	if c == nil || c.webhookEvents == nil {
		return
	}
	c.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncMailFailure increments the dropped-notification counter.
func (c *CheckoutMetrics) IncMailFailure() {
	if c == nil || c.mailFailures == nil {
		return
	}
	c.mailFailures.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
