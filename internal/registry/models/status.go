package models

import (
	dErrors "atomfleet/pkg/domain-errors"
)

// UnitStatus is the closed operational-status enumeration. The transition
// graph is deliberately unconstrained: supervisory corrections and
// re-classifications can move a unit from any status to any other. The
// strict part is the history invariant kept by the tracker, not the graph.
type UnitStatus string

const (
	StatusPlanned           UnitStatus = "planned"
	StatusUnderConstruction UnitStatus = "under_construction"
	StatusOperational       UnitStatus = "operational"
	StatusShutdown          UnitStatus = "shutdown"
	StatusDecommissioned    UnitStatus = "decommissioned"
)

// AllStatuses lists every member, in lifecycle order.
func AllStatuses() []UnitStatus {
	return []UnitStatus{
		StatusPlanned,
		StatusUnderConstruction,
		StatusOperational,
		StatusShutdown,
		StatusDecommissioned,
	}
}

func (s UnitStatus) Valid() bool {
	switch s {
	case StatusPlanned, StatusUnderConstruction, StatusOperational,
		StatusShutdown, StatusDecommissioned:
		return true
	}
	return false
}

func (s UnitStatus) String() string { return string(s) }

// Retired reports whether the unit no longer produces: shutdown and
// decommissioned both count as retired in rollups.
func (s UnitStatus) Retired() bool {
	return s == StatusShutdown || s == StatusDecommissioned
}

// ParseUnitStatus validates a wire value against the enumeration.
func ParseUnitStatus(raw string) (UnitStatus, error) {
	s := UnitStatus(raw)
	if !s.Valid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown unit status %q", raw)
	}
	return s, nil
}
