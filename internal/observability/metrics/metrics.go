package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics exposes counters/histograms for the payment flows.
type PaymentMetrics struct {
	checkoutTotal  *prometheus.CounterVec
	webhookTotal   *prometheus.CounterVec
	ledgerTotal    *prometheus.CounterVec
	webhookLatency prometheus.Histogram
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		checkoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "payments",
			Name:      "checkout_total",
			Help:      "Total payment intent creations by outcome",
		}, []string{"outcome"}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "payments",
			Name:      "webhook_total",
			Help:      "Total provider webhooks by outcome",
		}, []string{"outcome"}),
		ledgerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "payments",
			Name:      "ledger_append_total",
			Help:      "Total ledger appends by status",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "payments",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of webhook reconciliation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checkoutTotal, m.webhookTotal, m.ledgerTotal, m.webhookLatency)
	return m
}

func (m *PaymentMetrics) ObserveCheckout(outcome string) {
	if m == nil {
		return
	}
	m.checkoutTotal.WithLabelValues(outcome).Inc()
}

func (m *PaymentMetrics) ObserveWebhook(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(outcome).Inc()
	m.webhookLatency.Observe(seconds)
}

func (m *PaymentMetrics) ObserveLedgerAppend(status string) {
	if m == nil {
		return
	}
	m.ledgerTotal.WithLabelValues(status).Inc()
}
