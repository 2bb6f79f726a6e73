/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests from the operator UI

ROUTE GROUPS:
  /api/orders/*    Ledger view, create, edit, delete
  /api/snapshot    Backup download and restore
  /api/backups     Scheduled backups
  /api/scenarios   Demo ledgers (only when enabled)
  /api/*           KPIs, months, analysis, options
  /metrics         Prometheus scrape endpoint

SEE ALSO:
  - handlers.go: Handler implementations
  - app/app.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions holds the deployment switches of the router.
type RouterOptions struct {
	AllowedOrigins []string
	// Scenarios mounts the demo ledger routes. They overwrite the ledger.
	Scenarios bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)
			r.Put("/", h.EditOrders)
			r.Delete("/{position}", h.DeleteOrder)
			r.Delete("/by-id/{id}", h.DeleteOrderByID)
		})

		r.Get("/months", h.ListMonths)
		r.Get("/summary", h.GetSummary)
		r.Get("/occupancy", h.GetOccupancy)
		r.Get("/analysis", h.GetAnalysis)
		r.Get("/options", h.GetOptions)

		r.Route("/snapshot", func(r chi.Router) {
			r.Get("/", h.ExportSnapshot)
			r.Post("/", h.ImportSnapshot)
		})

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", h.GetBackups)
			r.Post("/run", h.RunBackup)
		})

		if opts.Scenarios {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
			})
		}
	})

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	return r
}
