package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "order_bot"

// Metrics holds the collectors for the order flow. A nil *Metrics is valid and records nothing.
type Metrics struct {
	events       *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	geocode      *prometheus.CounterVec
	receipts     *prometheus.CounterVec
	artifacts    *prometheus.CounterVec
	orders       *prometheus.CounterVec
	throttled    prometheus.Counter
	faults       prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound chat events by stage and kind.",
		}, []string{"stage", "kind"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Time spent handling one chat event.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		geocode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_attempts_total",
			Help:      "Geocoding attempts by attempt number and result.",
		}, []string{"attempt", "result"}),
		receipts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_verifications_total",
			Help:      "Receipt verification outcomes.",
		}, []string{"result"}),
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_artifact_total",
			Help:      "Payment artifact retrievals by provider and result.",
		}, []string{"provider", "result"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_completed_total",
			Help:      "Finalized orders by payment method label.",
		}, []string{"method"}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttled_events_total",
			Help:      "Events dropped by the per-chat rate limiter.",
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_faults_total",
			Help:      "Recovered panics while handling an event.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.stepDuration, m.geocode, m.receipts, m.artifacts, m.orders, m.throttled, m.faults)
	}
	return m
}

func (m *Metrics) ObserveEvent(stage, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(stage, kind).Inc()
	m.stepDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *Metrics) GeocodeAttempt(attempt, result string) {
	if m == nil {
		return
	}
	m.geocode.WithLabelValues(attempt, result).Inc()
}

func (m *Metrics) ReceiptVerification(result string) {
	if m == nil {
		return
	}
	m.receipts.WithLabelValues(result).Inc()
}

func (m *Metrics) PaymentArtifact(provider, result string) {
	if m == nil {
		return
	}
	m.artifacts.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) OrderCompleted(method string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(method).Inc()
}

func (m *Metrics) Throttled() {
	if m == nil {
		return
	}
	m.throttled.Inc()
}

func (m *Metrics) Fault() {
	if m == nil {
		return
	}
	m.faults.Inc()
}
