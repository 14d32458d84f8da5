package audit

import "time"

// Event names emitted by the core. Kept as plain strings so sinks can fan
// out without importing domain packages.
const (
	EventUnitRegistered     = "unit_registered"
	EventStatusChanged      = "status_changed"
	EventAttributesUpdated  = "attributes_updated"
	EventGenerationRecorded = "generation_recorded"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	UnitID    string    `json:"unit_id"`
	Status    string    `json:"status,omitempty"`
	Note      string    `json:"note,omitempty"`
	Year      int       `json:"year,omitempty"`
}
