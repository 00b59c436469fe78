// Package metrics exposes Prometheus instruments for the toast queue.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmylchreest/toastq/internal/model"
	"github.com/jmylchreest/toastq/internal/toast"
)

// Metrics groups the Prometheus instruments fed by the queue.
type Metrics struct {
	Events       *prometheus.CounterVec
	ActiveToasts prometheus.Gauge
	OpenToasts   prometheus.Gauge
}

// New registers all instruments with reg and returns them. Use a dedicated
// registry so tests stay isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toastq",
			Name:      "events_total",
			Help:      "Toast lifecycle transitions by kind and variant.",
		}, []string{"kind", "variant"}),

		ActiveToasts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "toastq",
			Name:      "active_toasts",
			Help:      "Toasts currently held by the queue, open or closing.",
		}),
		OpenToasts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "toastq",
			Name:      "open_toasts",
			Help:      "Toasts currently visible.",
		}),
	}

	// Pre-create every series so dashboards see zeros instead of gaps.
	for _, kind := range toast.EventKinds() {
		for _, v := range model.Variants() {
			m.Events.WithLabelValues(string(kind), string(v))
		}
	}

	reg.MustRegister(m.Events, m.ActiveToasts, m.OpenToasts)
	return m
}

// ObserveEvent counts one lifecycle transition. It has the signature of a
// queue event hook.
func (m *Metrics) ObserveEvent(e toast.Event) {
	m.Events.WithLabelValues(string(e.Kind), string(e.Variant.Normalize())).Inc()
}

// ObserveState updates the gauges from a broadcast. It has the signature of
// a queue listener.
func (m *Metrics) ObserveState(toasts []model.Toast) {
	open := 0
	for _, t := range toasts {
		if t.Open {
			open++
		}
	}
	m.ActiveToasts.Set(float64(len(toasts)))
	m.OpenToasts.Set(float64(open))
}
