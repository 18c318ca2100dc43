package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/pitch-review/internal/config"
	"github.com/noah-isme/pitch-review/internal/handler"
	"github.com/noah-isme/pitch-review/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler   *handler.SessionHandler
	ChallengeHandler *handler.ChallengeHandler
	PageHandler      *handler.PageHandler
	HealthProbes     map[string]handler.HealthProbe
	MetricsGatherer  prometheus.Gatherer
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler(deps.MetricsGatherer))

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	if deps.ChallengeHandler != nil {
		deps.ChallengeHandler.Register(api.Group("/challenges"))
	}

	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(api.Group("/sessions"))
	}

	// Server rendered page and its form posts.
	if deps.PageHandler != nil {
		deps.PageHandler.Register(app)
	}
}
