/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:      Unique ID per request for tracing
  2. RequestLogger:  Structured request logging (slog)
  3. Recoverer:      Panic recovery (500 instead of crash)
  4. CORS:           Read-only cross-origin access for dashboards

ROUTE GROUPS:
  /health               Liveness + store connectivity
  /api/compliance/*     Compliance views (GET only)
  /api/properties/*     Per-property timing
  /api/scenarios/*      Demo datasets (dev only)

METHODS:
  Read routes accept GET and OPTIONS. Any other method gets a JSON 405.

SECURITY NOTE:
  No authentication middleware. Every route is read-only except scenario
  loading, which is only mounted in dev mode.

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

	"github.com/landbank/compliance-engine/logging"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AllowedOrigins defaults to "*".
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.MethodNotAllowed(MethodNotAllowed)

	r.Get("/health", h.Health)

	// Compliance routes
	readOnly(r, "/api/compliance", h.GetCompliance)
	readOnly(r, "/api/compliance/rules", h.ListRules)
	readOnly(r, "/api/compliance/milestones", h.PreviewMilestones)
	readOnly(r, "/api/compliance/penalty", h.GetPenalty)
	readOnly(r, "/api/compliance/runs", h.ListRuns)

	// Property routes
	readOnly(r, "/api/properties/{id}/timing", h.GetPropertyTiming)

	// Scenario routes
	if h.Scenarios != nil {
		r.Route("/api/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	}

	return r
}

// readOnly mounts a GET handler plus a bare OPTIONS responder.
func readOnly(r chi.Router, pattern string, fn http.HandlerFunc) {
	r.Get(pattern, fn)
	r.Options(pattern, Preflight)
}
