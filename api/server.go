/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin dashboard

ROUTE GROUPS:
  /api/notifications/*  Manual push dispatch
  /api/checks/*         On-demand job triggers
  /api/punches          Punch inserts
  /api/technicians/*    Live sessions, reports, day close
  /api/holidays/*       Holiday calendar

SECURITY NOTE:
  No authentication middleware currently. The service is expected to run
  behind a gateway that handles auth.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Notification routes
		r.Route("/notifications", func(r chi.Router) {
			r.Post("/manual", h.SendManualNotification)
		})

		// On-demand job triggers
		r.Route("/checks", func(r chi.Router) {
			r.Post("/schedules", h.RunScheduleCheck)
			r.Post("/autolunch", h.RunAutoLunchCheck)
		})

		// Punch routes
		r.Post("/punches", h.CreatePunch)

		// Technician routes
		r.Route("/technicians", func(r chi.Router) {
			r.Get("/", h.ListTechnicianStatuses)
			r.Get("/{id}/status", h.GetTechnicianStatus)
			r.Get("/{id}/report", h.GetMonthlyReport)
			r.Post("/{id}/close", h.CloseTechnicianDay)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})
	})

	return r
}
