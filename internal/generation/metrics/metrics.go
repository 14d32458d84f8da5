package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the generation analytics engine.
type Metrics struct {
	RecordsStored  prometheus.Counter
	DuplicateYears prometheus.Counter
}

// New creates and registers generation metrics on the default registerer.
func New() *Metrics {
	return &Metrics{
		RecordsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atomfleet_generation_records_total",
			Help: "Total number of annual generation records stored.",
		}),
		DuplicateYears: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atomfleet_generation_duplicate_years_total",
			Help: "Rejected duplicate (unit, year) generation reports.",
		}),
	}
}

func (m *Metrics) IncrementRecordsStored() {
	m.RecordsStored.Inc()
}

func (m *Metrics) IncrementDuplicateYears() {
	m.DuplicateYears.Inc()
}
