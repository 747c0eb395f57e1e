package api

import (
	"collection-route-service/internal/api/handlers"
	"collection-route-service/internal/platform/logger"
	"collection-route-service/internal/services"
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	Lifecycle *services.Lifecycle
	Intake    *services.Intake
	Drivers   *services.DriverRegistry
	Threshold handlers.ThresholdStore
	// OracleProbe is optional; when set /health reports oracle reachability.
	OracleProbe func(ctx context.Context) error
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Log     logger.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.Nop{}
	} else {
		handlers.SetLogger(log)
	}

	health := &handlers.HealthHandler{Probe: d.OracleProbe}
	incidents := &handlers.IncidentHandler{Intake: d.Intake}
	zones := &handlers.ZoneHandler{Lifecycle: d.Lifecycle}
	routes := &handlers.RouteHandler{Lifecycle: d.Lifecycle}
	assignments := &handlers.AssignmentHandler{Lifecycle: d.Lifecycle}
	drivers := &handlers.DriverHandler{Drivers: d.Drivers}
	cfg := &handlers.ConfigHandler{Threshold: d.Threshold}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log))

	r.Get("/health", health.Health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/incidents", func(r chi.Router) {
		r.Post("/", incidents.Create)
		r.Get("/", incidents.List)
		r.Get("/{id}", incidents.Get)
		r.Post("/{id}/validate", incidents.Validate)
		r.Post("/{id}/cancel", incidents.Cancel)
	})

	r.Route("/zones/{zone}", func(r chi.Router) {
		r.Get("/severity", zones.Severity)
		r.Post("/check", zones.Check)
		r.Post("/recalculate", zones.Recalculate)
	})

	r.Route("/routes", func(r chi.Router) {
		r.Get("/", routes.List)
		r.Get("/{id}", routes.Get)
		r.Post("/{id}/assignments", routes.Assign)
	})

	r.Route("/assignments/{id}", func(r chi.Router) {
		r.Post("/start", assignments.Start)
		r.Post("/finish", assignments.Finish)
		r.Post("/cancel", assignments.Cancel)
	})

	r.Route("/drivers", func(r chi.Router) {
		r.Get("/", drivers.List)
		r.Post("/", drivers.Register)
		r.Put("/{id}/state", drivers.SetState)
	})

	r.Get("/config/threshold", cfg.GetThreshold)
	r.Put("/config/threshold", cfg.PutThreshold)

	return r
}
