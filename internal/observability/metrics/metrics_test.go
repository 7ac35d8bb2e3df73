package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestObserveWebhookCountsAndTimes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.ObserveWebhook("ledger_written", 0.25)
	m.ObserveWebhook("ledger_written", 0.5)
	m.ObserveWebhook("duplicate", 0.01)

	mf := gather(t, reg, "agenda_payments_webhook_total")
	require.NotNil(t, mf)
	total := 0.0
	for _, metric := range mf.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	assert.Equal(t, 3.0, total)

	hist := gather(t, reg, "agenda_payments_webhook_latency_seconds")
	require.NotNil(t, hist)
	assert.Equal(t, uint64(3), hist.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestObserveLedgerAppendLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.ObserveLedgerAppend("ok")
	m.ObserveLedgerAppend("ok")
	m.ObserveLedgerAppend("error")

	mf := gather(t, reg, "agenda_payments_ledger_append_total")
	require.NotNil(t, mf)
	byLabel := map[string]float64{}
	for _, metric := range mf.GetMetric() {
		byLabel[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, byLabel["ok"])
	assert.Equal(t, 1.0, byLabel["error"])
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *PaymentMetrics
	m.ObserveCheckout("created")
	m.ObserveWebhook("ignored", 0)
	m.ObserveLedgerAppend("ok")
}
