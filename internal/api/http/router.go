package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helphub/internal/api/http/handlers"
	"github.com/spec-kit/helphub/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Dashboard      *handlers.DashboardHandler
	Notify         *handlers.NotifyHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Ticket reads serve the dashboard UI;
// mutations and user notifications require an agent token.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/auth/login", cfg.Auth.Login)

	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)

	api.Get("/dashboard/stats", cfg.Dashboard.Stats)
	api.Get("/dashboard/categories", cfg.Dashboard.CategoryDistribution)
	api.Get("/dashboard/priorities", cfg.Dashboard.PriorityDistribution)
	api.Get("/dashboard/activity", cfg.Dashboard.RecentActivity)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)
	protected.Post("/tickets/:id/reclassify", cfg.Tickets.Reclassify)
	protected.Post("/dashboard/root-cause", cfg.Dashboard.RootCause)
	protected.Post("/notify", cfg.Notify.Notify)
}
