package cloudsync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports sync counters to Prometheus. A nil *Metrics is valid and records nothing.
type Metrics struct {
	attempts    *prometheus.CounterVec
	pending     *prometheus.GaugeVec
	lastSuccess prometheus.Gauge
}

// NewMetrics registers the sync collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cableshop",
			Subsystem: "sync",
			Name:      "attempts_total",
			Help:      "Cloud sync attempts by result.",
		}, []string{"result"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cableshop",
			Subsystem: "sync",
			Name:      "pending_changes",
			Help:      "Unsynced local changes per entity type.",
		}, []string{"entity"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cableshop",
			Subsystem: "sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sync.",
		}),
	}
	reg.MustRegister(m.attempts, m.pending, m.lastSuccess)
	return m
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(result).Inc()
}

func (m *Metrics) setPending(entity string, count int) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(entity).Set(float64(count))
}

func (m *Metrics) markSynced(at time.Time) {
	if m == nil {
		return
	}
	m.lastSuccess.Set(float64(at.Unix()))
}
