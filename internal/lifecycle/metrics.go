package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts lifecycle activity for the engine's Prometheus surface.
type Metrics struct {
	evaluations *prometheus.CounterVec
	failures    prometheus.Counter
	created     prometheus.Counter
	reactivated prometheus.Counter
	deprecated  prometheus.Counter
}

// NewMetrics registers the lifecycle counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triggerd",
			Name:      "trigger_evaluations_total",
			Help:      "Trigger condition evaluations by mode.",
		}, []string{"mode"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triggerd",
			Name:      "trigger_evaluation_failures_total",
			Help:      "Trigger evaluations that failed and were isolated.",
		}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triggerd",
			Name:      "notifications_created_total",
			Help:      "Notifications created by the lifecycle manager.",
		}),
		reactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triggerd",
			Name:      "notifications_reactivated_total",
			Help:      "Active notifications refreshed by a confirming detection.",
		}),
		deprecated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triggerd",
			Name:      "notifications_deprecated_total",
			Help:      "Notifications deactivated by the lifetime sweep.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.evaluations, m.failures, m.created, m.reactivated, m.deprecated)
	}
	return m
}
