// Package handler exposes the unit registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"atomfleet/internal/history"
	"atomfleet/internal/registry/models"
	"atomfleet/internal/registry/service"
	id "atomfleet/pkg/domain"
	dErrors "atomfleet/pkg/domain-errors"
	"atomfleet/pkg/platform/httputil"
	"atomfleet/pkg/requestcontext"
)

// Service defines the interface for registry operations.
type Service interface {
	RegisterUnit(ctx context.Context, attrs models.Attributes) (*models.Unit, error)
	ChangeStatus(ctx context.Context, unitID id.UnitID, newStatus models.UnitStatus, note string) (*service.ChangeStatusResult, error)
	UpdateAttributes(ctx context.Context, unitID id.UnitID, patch models.AttributePatch) (*models.Unit, error)
	GetUnit(ctx context.Context, unitID id.UnitID) (*models.Unit, error)
	ListOperational(ctx context.Context) ([]models.Unit, error)
	HistoryOf(ctx context.Context, unitID id.UnitID) ([]history.StatusInterval, error)
	StatusAt(ctx context.Context, unitID id.UnitID, ts time.Time) (models.UnitStatus, error)
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registry handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/units", h.HandleRegisterUnit)
	r.Get("/units/operational", h.HandleListOperational)
	r.Get("/units/{unitID}", h.HandleGetUnit)
	r.Patch("/units/{unitID}", h.HandleUpdateAttributes)
	r.Post("/units/{unitID}/status", h.HandleChangeStatus)
	r.Get("/units/{unitID}/history", h.HandleHistory)
	r.Get("/units/{unitID}/status-at", h.HandleStatusAt)
}

// HandleRegisterUnit handles POST /units requests.
func (h *Handler) HandleRegisterUnit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterUnitRequest](w, r, h.logger)
	if !ok {
		return
	}

	unit, err := h.service.RegisterUnit(ctx, req.Attributes())
	if err != nil {
		h.logger.WarnContext(ctx, "unit registration rejected",
			"request_id", requestID,
			"name", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, unit)
}

// HandleGetUnit handles GET /units/{unitID} requests.
func (h *Handler) HandleGetUnit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	unitID, ok := h.unitIDParam(w, r)
	if !ok {
		return
	}

	unit, err := h.service.GetUnit(ctx, unitID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, unit)
}

// HandleUpdateAttributes handles PATCH /units/{unitID} requests.
func (h *Handler) HandleUpdateAttributes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	unitID, ok := h.unitIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateAttributesRequest](w, r, h.logger)
	if !ok {
		return
	}

	unit, err := h.service.UpdateAttributes(ctx, unitID, req.Patch())
	if err != nil {
		h.logger.WarnContext(ctx, "attribute update rejected",
			"request_id", requestID,
			"unit_id", unitID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, unit)
}

// HandleChangeStatus handles POST /units/{unitID}/status requests.
func (h *Handler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	unitID, ok := h.unitIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangeStatusRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.ChangeStatus(ctx, unitID, req.ParsedStatus(), req.Note)
	if err != nil {
		h.logger.WarnContext(ctx, "status change rejected",
			"request_id", requestID,
			"unit_id", unitID,
			"to_status", req.Status,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromChangeStatusResult(result))
}

// HandleHistory handles GET /units/{unitID}/history requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	unitID, ok := h.unitIDParam(w, r)
	if !ok {
		return
	}

	intervals, err := h.service.HistoryOf(ctx, unitID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Intervals: intervals})
}

// HandleStatusAt handles GET /units/{unitID}/status-at?t=RFC3339 requests.
func (h *Handler) HandleStatusAt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	unitID, ok := h.unitIDParam(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("t")
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "query parameter t is required"))
		return
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "t must be an RFC 3339 timestamp"))
		return
	}

	status, err := h.service.StatusAt(ctx, unitID, ts)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, StatusAtResponse{Status: status, At: ts})
}

// HandleListOperational handles GET /units/operational requests.
func (h *Handler) HandleListOperational(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	units, err := h.service.ListOperational(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListUnitsResponse{Units: units})
}

func (h *Handler) unitIDParam(w http.ResponseWriter, r *http.Request) (id.UnitID, bool) {
	unitID, err := id.ParseUnitID(chi.URLParam(r, "unitID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unit id is not a valid identifier"))
		return id.UnitID{}, false
	}
	return unitID, true
}
