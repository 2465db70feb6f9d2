package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/pharmacy-helpdesk/internal/api/dto"
	"github.com/spec-kit/pharmacy-helpdesk/internal/observability"
	"github.com/spec-kit/pharmacy-helpdesk/internal/persistence"
)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance. Nil backends are
// reported as not configured and do not fail readiness.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis, metrics: metrics}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(dto.Success(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	}))
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	switch {
	case !h.postgres.Configured():
		depStatus["postgres"] = "in-memory"
	case h.postgres.Ping(ctx) != nil:
		depStatus["postgres"] = "unavailable"
		ready = false
	default:
		depStatus["postgres"] = "ok"
	}

	switch {
	case !h.redis.Configured():
		depStatus["redis"] = "disabled"
	case h.redis.Ping(ctx) != nil:
		depStatus["redis"] = "unavailable"
		ready = false
	default:
		depStatus["redis"] = "ok"
	}

	if ready {
		return c.JSON(dto.Success(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		}))
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(
		dto.Failure("DEPENDENCY_UNAVAILABLE", "one or more dependencies unavailable", depStatus))
}

// Metrics exposes the in-process counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(dto.Success(h.metrics.Snapshot()))
}
