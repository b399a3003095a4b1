package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helphub/internal/persistence"
)

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	postgres *persistence.Postgres
	redis    *persistence.Redis
}

// NewHealthHandler constructs handler.
func NewHealthHandler(postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{postgres: postgres, redis: redis}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready GET /health/ready. Mock-mode storage and a missing cache are
// still ready; a configured backend that fails its ping is not.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true

	if h.postgres == nil || h.postgres.PoolHandle() == nil {
		checks["postgres"] = "mock"
	} else if err := h.postgres.Ping(c.UserContext()); err != nil {
		checks["postgres"] = "down"
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if h.redis == nil {
		checks["redis"] = "disabled"
	} else if err := h.redis.Ping(c.UserContext()); err != nil {
		checks["redis"] = "down"
	} else {
		checks["redis"] = "ok"
	}

	status := "ready"
	code := fiber.StatusOK
	if !healthy {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{"status": status, "checks": checks})
}
