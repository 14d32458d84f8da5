package models

import (
	"strings"
	"time"

	id "atomfleet/pkg/domain"
	dErrors "atomfleet/pkg/domain-errors"
)

// Unit is the aggregate root for one physical reactor unit: the mutable
// "current state" projection over the append-only status history.
//
// Invariants:
//   - Name is non-empty, at most 128 characters, unique within its site
//     (case-insensitive, enforced by the store)
//   - Power figures and design life are positive when present
//   - Lifecycle dates respect the chronological partial order: construction
//     start ≤ first criticality ≤ grid connection ≤ commercial operation ≤
//     permanent shutdown, checked pairwise when both ends are present
//   - Status is always a member of the closed enumeration
//   - Units are never deleted, only superseded in status
type Unit struct {
	ID         id.UnitID         `json:"id"`
	SiteID     id.SiteID         `json:"site_id"`
	DesignID   id.DesignID       `json:"design_id"`
	OperatorID id.OrganizationID `json:"operator_id"`
	OwnerID    id.OrganizationID `json:"owner_id"`
	Name       string            `json:"name"`

	ThermalPowerMW  *float64 `json:"thermal_power_mw,omitempty"`
	GrossPowerMW    *float64 `json:"gross_power_mw,omitempty"`
	NetPowerMW      *float64 `json:"net_power_mw,omitempty"`
	DesignLifeYears *int     `json:"design_life_years,omitempty"`

	ConstructionStart   *time.Time `json:"construction_start,omitempty"`
	FirstCriticality    *time.Time `json:"first_criticality,omitempty"`
	GridConnection      *time.Time `json:"grid_connection,omitempty"`
	CommercialOperation *time.Time `json:"commercial_operation,omitempty"`
	PermanentShutdown   *time.Time `json:"permanent_shutdown,omitempty"`

	Status    UnitStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Attributes carries the caller-supplied fields for registration.
type Attributes struct {
	SiteID     id.SiteID
	DesignID   id.DesignID
	OperatorID id.OrganizationID
	OwnerID    id.OrganizationID
	Name       string

	ThermalPowerMW  *float64
	GrossPowerMW    *float64
	NetPowerMW      *float64
	DesignLifeYears *int

	ConstructionStart   *time.Time
	FirstCriticality    *time.Time
	GridConnection      *time.Time
	CommercialOperation *time.Time
	PermanentShutdown   *time.Time

	InitialStatus UnitStatus
}

// AttributePatch is a partial update. Nil fields are left unchanged; there
// is no way to clear a set field through a patch.
type AttributePatch struct {
	Name *string

	ThermalPowerMW  *float64
	GrossPowerMW    *float64
	NetPowerMW      *float64
	DesignLifeYears *int

	ConstructionStart   *time.Time
	FirstCriticality    *time.Time
	GridConnection      *time.Time
	CommercialOperation *time.Time
	PermanentShutdown   *time.Time
}

// NewUnit validates attributes and constructs the aggregate. Catalog
// reference resolution belongs to the service; everything checkable from
// the attributes alone is checked here.
func NewUnit(unitID id.UnitID, attrs Attributes, now time.Time) (*Unit, error) {
	name := strings.TrimSpace(attrs.Name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unit name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unit name must be 128 characters or less")
	}
	if !attrs.InitialStatus.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown unit status %q", attrs.InitialStatus)
	}

	u := &Unit{
		ID:                  unitID,
		SiteID:              attrs.SiteID,
		DesignID:            attrs.DesignID,
		OperatorID:          attrs.OperatorID,
		OwnerID:             attrs.OwnerID,
		Name:                name,
		ThermalPowerMW:      attrs.ThermalPowerMW,
		GrossPowerMW:        attrs.GrossPowerMW,
		NetPowerMW:          attrs.NetPowerMW,
		DesignLifeYears:     attrs.DesignLifeYears,
		ConstructionStart:   attrs.ConstructionStart,
		FirstCriticality:    attrs.FirstCriticality,
		GridConnection:      attrs.GridConnection,
		CommercialOperation: attrs.CommercialOperation,
		PermanentShutdown:   attrs.PermanentShutdown,
		Status:              attrs.InitialStatus,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := u.validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// ApplyPatch merges a partial update and re-validates the merged result.
// The receiver is untouched when validation fails.
func (u *Unit) ApplyPatch(patch AttributePatch, now time.Time) error {
	merged := *u
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return dErrors.New(dErrors.CodeInvariantViolation, "unit name cannot be empty")
		}
		if len(name) > 128 {
			return dErrors.New(dErrors.CodeInvariantViolation, "unit name must be 128 characters or less")
		}
		merged.Name = name
	}
	if patch.ThermalPowerMW != nil {
		merged.ThermalPowerMW = patch.ThermalPowerMW
	}
	if patch.GrossPowerMW != nil {
		merged.GrossPowerMW = patch.GrossPowerMW
	}
	if patch.NetPowerMW != nil {
		merged.NetPowerMW = patch.NetPowerMW
	}
	if patch.DesignLifeYears != nil {
		merged.DesignLifeYears = patch.DesignLifeYears
	}
	if patch.ConstructionStart != nil {
		merged.ConstructionStart = patch.ConstructionStart
	}
	if patch.FirstCriticality != nil {
		merged.FirstCriticality = patch.FirstCriticality
	}
	if patch.GridConnection != nil {
		merged.GridConnection = patch.GridConnection
	}
	if patch.CommercialOperation != nil {
		merged.CommercialOperation = patch.CommercialOperation
	}
	if patch.PermanentShutdown != nil {
		merged.PermanentShutdown = patch.PermanentShutdown
	}
	if err := merged.validate(); err != nil {
		return err
	}
	merged.UpdatedAt = now
	*u = merged
	return nil
}

// SetStatus records a status transition on the projection.
func (u *Unit) SetStatus(status UnitStatus, now time.Time) {
	u.Status = status
	u.UpdatedAt = now
}

func (u *Unit) validate() error {
	for _, p := range []struct {
		name  string
		value *float64
	}{
		{"thermal power", u.ThermalPowerMW},
		{"gross power", u.GrossPowerMW},
		{"net power", u.NetPowerMW},
	} {
		if p.value != nil && *p.value <= 0 {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be positive", p.name)
		}
	}
	if u.DesignLifeYears != nil && *u.DesignLifeYears <= 0 {
		return dErrors.New(dErrors.CodeValidation, "design life must be positive")
	}
	return u.validateChronology()
}

// validateChronology enforces the lifecycle partial order. Each adjacent
// pair is compared only when both dates are present; equal dates are
// allowed (criticality and grid connection can share a day).
func (u *Unit) validateChronology() error {
	dates := []struct {
		name  string
		value *time.Time
	}{
		{"construction start", u.ConstructionStart},
		{"first criticality", u.FirstCriticality},
		{"grid connection", u.GridConnection},
		{"commercial operation", u.CommercialOperation},
		{"permanent shutdown", u.PermanentShutdown},
	}
	for i := 0; i < len(dates); i++ {
		if dates[i].value == nil {
			continue
		}
		for j := i + 1; j < len(dates); j++ {
			if dates[j].value == nil {
				continue
			}
			if dates[i].value.After(*dates[j].value) {
				return dErrors.Newf(dErrors.CodeValidation,
					"%s must not be after %s", dates[i].name, dates[j].name)
			}
		}
	}
	return nil
}
