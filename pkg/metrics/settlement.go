package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records outcomes of payment intents and settlements.
type SettlementMetrics struct {
	intents  *prometheus.CounterVec
	settled  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewSettlementMetrics registers the payment metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intents_total",
		Help: "Payment intents minted with the provider, by result.",
	}, []string{"result"})
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_total",
		Help: "Settlement callbacks processed, by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Duration of the settlement transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(intents, settled, duration)
	return &SettlementMetrics{
		intents:  intents,
		settled:  settled,
		duration: duration,
	}
}

// IncIntent counts a payment-intent attempt by result (minted/failed).
func (m *SettlementMetrics) IncIntent(result string) {
	if m == nil || m.intents == nil {
		return
	}
	m.intents.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncSettled counts a processed settlement by outcome (success/failed/replayed/not_found/error).
func (m *SettlementMetrics) IncSettled(outcome string) {
	if m == nil || m.settled == nil {
		return
	}
	m.settled.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDuration records how long the settlement transaction took.
func (m *SettlementMetrics) ObserveDuration(outcome string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(outcome)).Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return strings.ReplaceAll(trimmed, " ", "_")
}
