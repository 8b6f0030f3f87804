package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	checks         *prometheus.CounterVec
	usageRecords   *prometheus.CounterVec
	consumeDenied  *prometheus.CounterVec
	sweepCancelled prometheus.Counter
}

// New registers the engine's instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entitle_checks_total",
			Help: "Entitlement checks by resolution reason.",
		}, []string{"reason"}),
		usageRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entitle_usage_records_total",
			Help: "Usage ledger increments by feature code.",
		}, []string{"feature"}),
		consumeDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entitle_consume_denied_total",
			Help: "Hard-limit consume attempts denied at the storage layer.",
		}, []string{"feature"}),
		sweepCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "entitle_boost_sweep_cancelled_total",
			Help: "Expired boosts flipped to cancelled by the sweep job.",
		}),
	}
	reg.MustRegister(m.checks, m.usageRecords, m.consumeDenied, m.sweepCancelled)
	return m
}

func (m *Metrics) IncCheck(reason string) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncUsageRecord(feature string) {
	if m == nil {
		return
	}
	m.usageRecords.WithLabelValues(feature).Inc()
}

func (m *Metrics) IncConsumeDenied(feature string) {
	if m == nil {
		return
	}
	m.consumeDenied.WithLabelValues(feature).Inc()
}

func (m *Metrics) AddSweepCancelled(n float64) {
	if m == nil {
		return
	}
	m.sweepCancelled.Add(n)
}
