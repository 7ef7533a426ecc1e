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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/teams/*        Team-scoped workers, transactions, statements
  /api/workers        Worker registration
  /api/attendance/*   Attendance records and punch-out
  /api/transactions/* Manual transaction mutation
  /api/admin/*        Recalculation

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Team-scoped routes
		r.Route("/teams/{id}", func(r chi.Router) {
			r.Get("/workers", h.ListWorkers)
			r.Get("/ledger", h.GetLedger)
			r.Get("/transactions", h.ListTransactions)
			r.Post("/transactions", h.CreateTransaction)
		})

		// Worker routes
		r.Post("/workers", h.CreateWorker)

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", h.ListAttendanceRecords)
			r.Post("/", h.CreateAttendance)
			r.Post("/{id}/punch-out", h.PunchOut)
		})

		// Transaction mutation routes
		r.Route("/transactions", func(r chi.Router) {
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/recalculate", h.TriggerRecalc)
			r.Get("/recalculate/status", h.RecalcStatus)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
