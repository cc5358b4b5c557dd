// Package web provides the HTTP API for the metering engine.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gatewaylabs/creditmeter/app"
	"github.com/gatewaylabs/creditmeter/ports"
)

// Handler provides the API endpoints.
type Handler struct {
	meter       *app.Meter
	usage       ports.UsageStore
	estimator   ports.TokenEstimator
	clock       ports.Clock
	ids         ports.IDGenerator
	logger      zerolog.Logger
	metricsPath string
}

// Deps contains dependencies for the web handler.
type Deps struct {
	Meter       *app.Meter
	Usage       ports.UsageStore
	Estimator   ports.TokenEstimator
	Clock       ports.Clock
	IDs         ports.IDGenerator
	Logger      zerolog.Logger
	MetricsPath string // empty disables the metrics endpoint
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		meter:       deps.Meter,
		usage:       deps.Usage,
		estimator:   deps.Estimator,
		clock:       deps.Clock,
		ids:         deps.IDs,
		logger:      deps.Logger,
		metricsPath: deps.MetricsPath,
	}
}

// Router returns the API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	if h.metricsPath != "" {
		r.Handle(h.metricsPath, promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/evaluate", h.Evaluate)
		r.Post("/estimate", h.Estimate)
		r.Post("/usage", h.RecordUsage)
		r.Get("/users/{id}/usage", h.UserUsage)
	})

	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
