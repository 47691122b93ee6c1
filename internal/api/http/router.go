package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/returnsdesk/oem-returns/internal/api/http/handlers"
	"github.com/returnsdesk/oem-returns/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Returns        *handlers.ReturnsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Snapshot)
	}

	returns := app.Group("/returns")
	returns.Get("", cfg.Returns.ListReturns)
	returns.Get("/:id", cfg.Returns.GetReturn)
	returns.Get("/:id/history", cfg.Returns.ListHistory)
	returns.Patch("/:id", cfg.AuthMiddleware.Handle, auth.RequireRole(), cfg.Returns.UpdateReturn)
}
