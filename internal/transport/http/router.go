// Package httptransport assembles the HTTP surface: routes, the shared
// middleware chain, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"atomfleet/internal/platform/middleware"
	"atomfleet/pkg/platform/httputil"
)

// Registrar is anything that can mount routes on the router. Each domain
// handler implements it.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports the health of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs.
type Deps struct {
	Logger   *slog.Logger
	Handlers []Registrar
	// Checks maps a dependency name to its health probe. Nil entries are
	// skipped so optional backends cost nothing when unconfigured.
	Checks map[string]HealthChecker
}

// NewRouter builds the chi router with the full middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Tracing("atomfleet/http"))
	r.Use(middleware.Logger(deps.Logger))

	for _, h := range deps.Handlers {
		h.Register(r)
	}

	r.Get("/healthz", handleHealth(deps.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string)}
		status := http.StatusOK
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
