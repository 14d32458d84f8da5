package reporting

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atomfleet/pkg/platform/httputil"
	"atomfleet/pkg/requestcontext"
)

// Handler exposes rollup reports over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts reporting endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/reports/country-rollup", h.HandleCountryRollup)
}

// CountryRollupResponse wraps the ordered per-country aggregates.
type CountryRollupResponse struct {
	Countries []CountryRollup `json:"countries"`
}

// HandleCountryRollup handles GET /reports/country-rollup requests.
func (h *Handler) HandleCountryRollup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rollups, err := h.service.Rollup(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "country rollup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CountryRollupResponse{Countries: rollups})
}
