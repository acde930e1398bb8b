package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts scheduling decisions by outcome so operators can watch
// rejection reasons trend.
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics registers the scheduling collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "upkeep",
			Subsystem: "scheduling",
			Name:      "decisions_total",
			Help:      "Scheduling decisions by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.decisions)
	return m
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}
