package server

import (
	"harvester/internal/core/harvest"
	"harvester/internal/core/run"
	"harvester/internal/health"
	"harvester/internal/platform/redis"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Harvest *harvest.Service
	Runs    *run.Service
	Redis   *redis.Service
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	healthHandler := health.NewHealthHandler(d.Redis)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	h := harvest.NewHandler(d.Harvest, d.Runs)
	api.Post("/harvest", h.HandleStart)
	api.Post("/harvest/:runId/stop", h.HandleStop)
	api.Get("/harvest/:runId", h.HandleGet)

	return healthHandler
}
