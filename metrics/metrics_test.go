package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveEvent("start", "text", 10*time.Millisecond)
	m.ObserveEvent("start", "text", 20*time.Millisecond)
	m.OrderCompleted("Cash on Delivery")
	m.GeocodeAttempt("2", "found")

	families, err := reg.Gather()
	require.NoError(t, err)

	require.Equal(t, 2.0, counterValue(t, families, "order_bot_events_total", map[string]string{"stage": "start", "kind": "text"}))
	require.Equal(t, 1.0, counterValue(t, families, "order_bot_orders_completed_total", map[string]string{"method": "Cash on Delivery"}))
	require.Equal(t, 1.0, counterValue(t, families, "order_bot_geocode_attempts_total", map[string]string{"attempt": "2", "result": "found"}))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveEvent("start", "text", time.Second)
	m.ReceiptVerification("accepted")
	m.PaymentArtifact("static", "ok")
	m.Throttled()
	m.Fault()
}

func counterValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchLabels(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if want[p.GetName()] != p.GetValue() {
			return false
		}
	}
	return true
}
