package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/enrollment-lookup/internal/api/http/handlers"
	"github.com/spec-kit/enrollment-lookup/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Lookup  *handlers.LookupHandler
	Metrics *observability.Metrics

	// Database is checked before every lookup; a failed ping answers 503.
	Database handlers.Pinger
	// RateLimiter is optional; nil leaves the lookup routes unlimited.
	RateLimiter *RateLimiter
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Get("/get_departments", lookupChain(cfg, cfg.Lookup.Departments)...)
	app.Get("/get_strands", lookupChain(cfg, cfg.Lookup.Strands)...)
	app.Get("/get_courses", lookupChain(cfg, cfg.Lookup.Courses)...)
}

func lookupChain(cfg RouteConfig, handler fiber.Handler) []fiber.Handler {
	chain := make([]fiber.Handler, 0, 3)
	if cfg.RateLimiter != nil {
		chain = append(chain, cfg.RateLimiter.Handle)
	}
	if cfg.Database != nil {
		chain = append(chain, requireDatabase(cfg.Database))
	}
	return append(chain, handler)
}
