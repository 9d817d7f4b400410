/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind a proxy
  3. Logger:     One zap line per request (logger.Middleware)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Metrics:    Prometheus request histograms, by route pattern
  6. CORS:       Cross-origin requests for a frontend

ROUTE GROUPS:
  /healthz              Liveness
  /metrics              Prometheus scrape endpoint
  /api/policy           Effective policy
  /api/stipends/*       Computation
  /api/events           Event store import
  /api/holidays         Working-day calendar
  /api/scenarios/*      Demo datasets

SECURITY NOTE:
  No authentication middleware. All endpoints are public; run behind the
  Kollel's internal network only.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kollel/stipend-engine/logger"
	"github.com/kollel/stipend-engine/metrics"
)

// RouterOptions carries the cross-cutting pieces of the router.
type RouterOptions struct {
	Logger         *zap.Logger
	Metrics        *metrics.Service
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Run-ID", "X-Report-Warnings"},
	}))

	r.Get("/healthz", h.Health)
	r.Method("GET", "/metrics", opts.Metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/policy", h.GetPolicy)

		// Computation
		r.Route("/stipends", func(r chi.Router) {
			r.Post("/compute", h.Compute)
			r.Post("/upload", h.Upload)
			r.Post("/stored", h.ComputeStored)
		})

		// Event store
		r.Route("/events", func(r chi.Router) {
			r.Post("/", h.ImportEvents)
			r.Delete("/", h.DeleteEvents)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/{id}/run", h.RunScenario)
			r.Post("/{id}/load", h.LoadScenario)
		})
	})

	return r
}
