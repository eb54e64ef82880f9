package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-assist/backend/internal/health"
)

type HealthHandler struct {
	monitor *health.Monitor
}

func NewHealthHandler(monitor *health.Monitor) *HealthHandler {
	return &HealthHandler{
		monitor: monitor,
	}
}

// HandleHealth reports process liveness only. Dependency state lives in
// HandleServices so load balancers never cycle the pod over a flaky backend.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

func (h *HealthHandler) HandleServices(c *fiber.Ctx) error {
	status := h.monitor.Check(c.Context())

	return c.JSON(fiber.Map{
		"success": true,
		"data":    status,
	})
}
