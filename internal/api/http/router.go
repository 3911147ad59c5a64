package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sundown-service/internal/api/http/handlers"
	"github.com/spec-kit/sundown-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Webhook   *handlers.WebhookHandler
	Dispatch  *handlers.DispatchHandler
	Clients   *handlers.ClientsHandler
	Signature *auth.SignatureMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/webhook/sms", cfg.Signature.Handle, cfg.Webhook.HandleInboundSMS)

	admin := app.Group("/admin")
	admin.Post("/dispatch/run", cfg.Dispatch.Run)
	admin.Get("/dispatch/stats", cfg.Dispatch.Stats)
	admin.Get("/clients/:phone", cfg.Clients.Get)
}
