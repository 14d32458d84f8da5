package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the asset registry.
type Metrics struct {
	UnitsRegistered   prometheus.Counter
	StatusChanges     *prometheus.CounterVec
	StatusChangeNoOps prometheus.Counter
}

// New creates and registers registry metrics on the default registerer.
func New() *Metrics {
	return &Metrics{
		UnitsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atomfleet_units_registered_total",
			Help: "Total number of reactor units registered.",
		}),
		StatusChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atomfleet_status_changes_total",
			Help: "Total number of applied unit status changes.",
		}, []string{"to_status"}),
		StatusChangeNoOps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atomfleet_status_change_noops_total",
			Help: "Status-change requests that matched the current status.",
		}),
	}
}

func (m *Metrics) IncrementUnitsRegistered() {
	m.UnitsRegistered.Inc()
}

func (m *Metrics) IncrementStatusChange(toStatus string) {
	m.StatusChanges.WithLabelValues(toStatus).Inc()
}

func (m *Metrics) IncrementStatusChangeNoOp() {
	m.StatusChangeNoOps.Inc()
}
