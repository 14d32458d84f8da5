package generation

import (
	"time"

	"github.com/google/uuid"

	id "atomfleet/pkg/domain"
)

// GenerationRecord is one annual net-generation report for a unit. Records
// are immutable after creation: a second report for the same (unit, year)
// fails instead of overwriting, and corrections are a distinct explicit
// operation, never an implicit upsert.
type GenerationRecord struct {
	ID     uuid.UUID `json:"id"`
	UnitID id.UnitID `json:"unit_id"`
	Year   int       `json:"year"`
	// NetGenerationMWh is the net energy delivered to the grid that year.
	NetGenerationMWh float64 `json:"net_generation_mwh"`
	// ReferenceCapacityMW overrides the unit's net capacity as the
	// capacity-factor denominator for this year, e.g. after an uprate
	// mid-year.
	ReferenceCapacityMW *float64  `json:"reference_capacity_mw,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// TrendPoint is one year of a unit's capacity-factor trend.
type TrendPoint struct {
	Year           int     `json:"year"`
	CapacityFactor float64 `json:"capacity_factor"`
}
