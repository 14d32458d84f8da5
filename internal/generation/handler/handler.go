// Package handler exposes generation reporting and analytics over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"atomfleet/internal/generation"
	id "atomfleet/pkg/domain"
	dErrors "atomfleet/pkg/domain-errors"
	"atomfleet/pkg/platform/httputil"
	"atomfleet/pkg/requestcontext"
)

// Service defines the interface for generation operations.
type Service interface {
	RecordGeneration(ctx context.Context, unitID id.UnitID, year int, netGenerationMWh float64, referenceCapacityMW *float64) (*generation.GenerationRecord, error)
	CapacityFactor(ctx context.Context, unitID id.UnitID, year int) (float64, error)
	Trend(ctx context.Context, unitID id.UnitID) ([]generation.TrendPoint, error)
	DecayHeat(ctx context.Context, unitID id.UnitID, at time.Time) (float64, error)
}

// Handler wires generation endpoints to the generation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a generation handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts generation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/units/{unitID}/generation", h.HandleRecordGeneration)
	r.Get("/units/{unitID}/capacity-factor/{year}", h.HandleCapacityFactor)
	r.Get("/units/{unitID}/trend", h.HandleTrend)
	r.Get("/units/{unitID}/decay-heat", h.HandleDecayHeat)
}

// RecordGenerationRequest is the HTTP request body for POST /units/{unitID}/generation.
type RecordGenerationRequest struct {
	Year                int      `json:"year" validate:"required"`
	NetGenerationMWh    float64  `json:"net_generation_mwh" validate:"gte=0"`
	ReferenceCapacityMW *float64 `json:"reference_capacity_mw" validate:"omitempty,gt=0"`
}

// CapacityFactorResponse answers a single-year capacity factor query.
type CapacityFactorResponse struct {
	Year int `json:"year"`
	// CapacityFactorPercent is net generation over the year's full-power
	// potential, as a percentage.
	CapacityFactorPercent float64 `json:"capacity_factor_percent"`
}

// TrendResponse is the ascending per-year capacity factor series.
type TrendResponse struct {
	Points []generation.TrendPoint `json:"points"`
}

// DecayHeatResponse answers a residual heat estimate.
type DecayHeatResponse struct {
	At time.Time `json:"at"`
	// DecayHeatMW is the estimated residual thermal power.
	DecayHeatMW float64 `json:"decay_heat_mw"`
}

// HandleRecordGeneration handles POST /units/{unitID}/generation requests.
func (h *Handler) HandleRecordGeneration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	unitID, ok := h.unitIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RecordGenerationRequest](w, r, h.logger)
	if !ok {
		return
	}

	rec, err := h.service.RecordGeneration(ctx, unitID, req.Year, req.NetGenerationMWh, req.ReferenceCapacityMW)
	if err != nil {
		h.logger.WarnContext(ctx, "generation report rejected",
			"request_id", requestID,
			"unit_id", unitID,
			"year", req.Year,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, rec)
}

// HandleCapacityFactor handles GET /units/{unitID}/capacity-factor/{year} requests.
func (h *Handler) HandleCapacityFactor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	unitID, ok := h.unitIDParam(w, r)
	if !ok {
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "year must be an integer"))
		return
	}

	factor, err := h.service.CapacityFactor(ctx, unitID, year)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CapacityFactorResponse{Year: year, CapacityFactorPercent: factor})
}

// HandleTrend handles GET /units/{unitID}/trend requests.
func (h *Handler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	unitID, ok := h.unitIDParam(w, r)
	if !ok {
		return
	}

	points, err := h.service.Trend(ctx, unitID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, TrendResponse{Points: points})
}

// HandleDecayHeat handles GET /units/{unitID}/decay-heat?at=RFC3339 requests.
// An omitted at defaults to the current time.
func (h *Handler) HandleDecayHeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	unitID, ok := h.unitIDParam(w, r)
	if !ok {
		return
	}

	at := requestcontext.Now(ctx)
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "at must be an RFC 3339 timestamp"))
			return
		}
		at = parsed
	}

	heat, err := h.service.DecayHeat(ctx, unitID, at)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, DecayHeatResponse{At: at, DecayHeatMW: heat})
}

func (h *Handler) unitIDParam(w http.ResponseWriter, r *http.Request) (id.UnitID, bool) {
	unitID, err := id.ParseUnitID(chi.URLParam(r, "unitID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unit id is not a valid identifier"))
		return id.UnitID{}, false
	}
	return unitID, true
}
