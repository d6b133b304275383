package handlers

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks      map[string]Check
	gatewayMode string
	timeout     time.Duration
}

func NewHealthHandler(checks map[string]Check, gatewayMode string) *HealthHandler {
	return &HealthHandler{checks: checks, gatewayMode: gatewayMode, timeout: 2 * time.Second}
}

// HealthCheck handles GET /health. Any failing dependency turns the
// response into a 503.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	services := fiber.Map{}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			log.Printf("⚠️ Health check %s failed: %v", name, err)
			services[name] = "disconnected"
			status = "degraded"
			continue
		}
		services[name] = "connected"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":       status,
		"version":      "1.0.0",
		"gateway_mode": h.gatewayMode,
		"services":     services,
	})
}
