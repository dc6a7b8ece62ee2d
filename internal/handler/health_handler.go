package handler

import "github.com/gofiber/fiber/v3"

// HealthHandler reports liveness.
type HealthHandler struct {
	app     string
	storage string
}

// NewHealthHandler creates a health handler. storage names the analysis
// backend in use ("memory" or "postgres").
func NewHealthHandler(app, storage string) *HealthHandler {
	return &HealthHandler{app: app, storage: storage}
}

// Register sets up the health route.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "app": h.app, "storage": h.storage})
	})
}
