package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/gofiber/fiber/v3"
)

// clientErrors maps input sentinels to status and the message shown to clients.
var clientErrors = []struct {
	err    error
	status int
	msg    string
}{
	{port.ErrMissingFields, fiber.StatusBadRequest, "Missing required fields"},
	{port.ErrInvalidRepoURL, fiber.StatusBadRequest, "Invalid GitHub URL"},
	{port.ErrMissingMessage, fiber.StatusBadRequest, "Message is required"},
	{port.ErrMissingAPIKey, fiber.StatusUnauthorized, "API key required"},
	{port.ErrAnalysisNotFound, fiber.StatusNotFound, "analysis not found"},
	{port.ErrJobNotFound, fiber.StatusNotFound, "job not found"},
}

// fail writes {error} with the status matching err. Unknown errors are
// upstream failures: 500 with the raw message.
func fail(c fiber.Ctx, err error) error {
	for _, ce := range clientErrors {
		if errors.Is(err, ce.err) {
			return c.Status(ce.status).JSON(fiber.Map{"error": ce.msg})
		}
	}
	slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// queryLimit reads ?limit=, falling back to def when absent or invalid and
// capping at ceiling.
func queryLimit(c fiber.Ctx, def, ceiling int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, ceiling)
}
