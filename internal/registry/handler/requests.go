package handler

import (
	"strings"
	"time"

	"atomfleet/internal/registry/models"
	id "atomfleet/pkg/domain"
	dErrors "atomfleet/pkg/domain-errors"
)

// RegisterUnitRequest is the HTTP request body for POST /units.
type RegisterUnitRequest struct {
	SiteID     string `json:"site_id" validate:"required"`
	DesignID   string `json:"design_id" validate:"required"`
	OperatorID string `json:"operator_id" validate:"required"`
	OwnerID    string `json:"owner_id" validate:"required"`
	Name       string `json:"name" validate:"required,max=128"`

	ThermalPowerMW  *float64 `json:"thermal_power_mw" validate:"omitempty,gt=0"`
	GrossPowerMW    *float64 `json:"gross_power_mw" validate:"omitempty,gt=0"`
	NetPowerMW      *float64 `json:"net_power_mw" validate:"omitempty,gt=0"`
	DesignLifeYears *int     `json:"design_life_years" validate:"omitempty,gt=0"`

	ConstructionStart   *time.Time `json:"construction_start"`
	FirstCriticality    *time.Time `json:"first_criticality"`
	GridConnection      *time.Time `json:"grid_connection"`
	CommercialOperation *time.Time `json:"commercial_operation"`
	PermanentShutdown   *time.Time `json:"permanent_shutdown"`

	// InitialStatus defaults to planned when omitted.
	InitialStatus string `json:"initial_status"`

	// Parsed values (populated by Validate)
	parsedSiteID     id.SiteID
	parsedDesignID   id.DesignID
	parsedOperatorID id.OrganizationID
	parsedOwnerID    id.OrganizationID
	parsedStatus     models.UnitStatus
}

// Validate parses the typed fields.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterUnitRequest) Validate() error {
	var err error
	if r.parsedSiteID, err = id.ParseSiteID(r.SiteID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "site_id is not a valid identifier")
	}
	if r.parsedDesignID, err = id.ParseDesignID(r.DesignID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "design_id is not a valid identifier")
	}
	if r.parsedOperatorID, err = id.ParseOrganizationID(r.OperatorID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "operator_id is not a valid identifier")
	}
	if r.parsedOwnerID, err = id.ParseOrganizationID(r.OwnerID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "owner_id is not a valid identifier")
	}

	raw := strings.TrimSpace(r.InitialStatus)
	if raw == "" {
		r.parsedStatus = models.StatusPlanned
		return nil
	}
	status, err := models.ParseUnitStatus(raw)
	if err != nil {
		return err
	}
	r.parsedStatus = status
	return nil
}

// Attributes returns the validated registration attributes.
func (r *RegisterUnitRequest) Attributes() models.Attributes {
	return models.Attributes{
		SiteID:     r.parsedSiteID,
		DesignID:   r.parsedDesignID,
		OperatorID: r.parsedOperatorID,
		OwnerID:    r.parsedOwnerID,
		Name:       r.Name,

		ThermalPowerMW:  r.ThermalPowerMW,
		GrossPowerMW:    r.GrossPowerMW,
		NetPowerMW:      r.NetPowerMW,
		DesignLifeYears: r.DesignLifeYears,

		ConstructionStart:   r.ConstructionStart,
		FirstCriticality:    r.FirstCriticality,
		GridConnection:      r.GridConnection,
		CommercialOperation: r.CommercialOperation,
		PermanentShutdown:   r.PermanentShutdown,

		InitialStatus: r.parsedStatus,
	}
}

// ChangeStatusRequest is the HTTP request body for POST /units/{unitID}/status.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=512"`

	parsedStatus models.UnitStatus
}

// Validate parses the target status.
func (r *ChangeStatusRequest) Validate() error {
	status, err := models.ParseUnitStatus(strings.TrimSpace(r.Status))
	if err != nil {
		return err
	}
	r.parsedStatus = status
	r.Note = strings.TrimSpace(r.Note)
	return nil
}

// ParsedStatus returns the validated target status.
func (r *ChangeStatusRequest) ParsedStatus() models.UnitStatus {
	return r.parsedStatus
}

// UpdateAttributesRequest is the HTTP request body for PATCH /units/{unitID}.
// Absent fields are left unchanged.
type UpdateAttributesRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=128"`

	ThermalPowerMW  *float64 `json:"thermal_power_mw" validate:"omitempty,gt=0"`
	GrossPowerMW    *float64 `json:"gross_power_mw" validate:"omitempty,gt=0"`
	NetPowerMW      *float64 `json:"net_power_mw" validate:"omitempty,gt=0"`
	DesignLifeYears *int     `json:"design_life_years" validate:"omitempty,gt=0"`

	ConstructionStart   *time.Time `json:"construction_start"`
	FirstCriticality    *time.Time `json:"first_criticality"`
	GridConnection      *time.Time `json:"grid_connection"`
	CommercialOperation *time.Time `json:"commercial_operation"`
	PermanentShutdown   *time.Time `json:"permanent_shutdown"`
}

// Patch returns the partial update in domain form.
func (r *UpdateAttributesRequest) Patch() models.AttributePatch {
	return models.AttributePatch{
		Name: r.Name,

		ThermalPowerMW:  r.ThermalPowerMW,
		GrossPowerMW:    r.GrossPowerMW,
		NetPowerMW:      r.NetPowerMW,
		DesignLifeYears: r.DesignLifeYears,

		ConstructionStart:   r.ConstructionStart,
		FirstCriticality:    r.FirstCriticality,
		GridConnection:      r.GridConnection,
		CommercialOperation: r.CommercialOperation,
		PermanentShutdown:   r.PermanentShutdown,
	}
}
