package handler

import (
	"time"

	"atomfleet/internal/history"
	"atomfleet/internal/registry/models"
	"atomfleet/internal/registry/service"
)

// ChangeStatusResponse reports the unit after a status change. Changed is
// false when the unit already held the requested status.
type ChangeStatusResponse struct {
	Unit    *models.Unit `json:"unit"`
	Changed bool         `json:"changed"`
}

// FromChangeStatusResult converts the service result to the wire shape.
func FromChangeStatusResult(res *service.ChangeStatusResult) ChangeStatusResponse {
	return ChangeStatusResponse{Unit: res.Unit, Changed: res.Changed}
}

// HistoryResponse is the full status timeline of one unit.
type HistoryResponse struct {
	Intervals []history.StatusInterval `json:"intervals"`
}

// StatusAtResponse answers a point-in-time status query.
type StatusAtResponse struct {
	Status models.UnitStatus `json:"status"`
	At     time.Time         `json:"at"`
}

// ListUnitsResponse wraps a unit collection.
type ListUnitsResponse struct {
	Units []models.Unit `json:"units"`
}
