/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zap request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus duration/count per route
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/clients/*      Client profiles and balances
  /api/workers/*      Worker reports
  /api/assignments/*  Assignment writes and daily view
  /api/holidays/*     Holiday calendar
  /api/reports/*      Scheduler history and trigger
  /api/scenarios/*    Demo data loaders
  /healthz            Database ping
  /metrics            Prometheus

SEE ALSO:
  - handlers.go: Handler implementations
  - metrics.go: Metrics and logging middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. m may be nil.
func NewRouter(h *Handler, m *Metrics, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", m.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/{id}/balance", h.GetClientBalance)
		})

		r.Route("/workers", func(r chi.Router) {
			r.Get("/{id}/balances", h.GetWorkerBalances)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", h.CreateAssignment)
			r.Get("/{id}/slots", h.GetAssignmentSlots)
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/runs", h.ListReportRuns)
			r.Post("/run", h.TriggerReports)
		})

		// Demo scenarios (development only)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
