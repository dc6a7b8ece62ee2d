package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/gofiber/fiber/v3"
)

const (
	auditActionKey   = "audit_action"
	auditResourceKey = "audit_resource_id"
)

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(action, resource, resourceID, details, ip, userAgent string) error
}

// SetAuditAction tags the current request with a domain action and the id of
// the resource it produced. Untagged requests are recorded as http_request.
func SetAuditAction(c fiber.Ctx, action, resourceID string) {
	c.Locals(auditActionKey, action)
	c.Locals(auditResourceKey, resourceID)
}

// AuditMiddleware records every request to writer.
func AuditMiddleware(writer AuditWriter) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		// Fiber reuses context buffers; copy before handing to the goroutine.
		method := strings.Clone(c.Method())
		path := strings.Clone(c.Path())
		ip := strings.Clone(c.IP())
		userAgent := strings.Clone(c.Get("User-Agent"))

		err := c.Next()

		action := domain.AuditActionHTTPRequest
		if a, ok := c.Locals(auditActionKey).(string); ok && a != "" {
			action = a
		}
		resourceID := path
		if id, ok := c.Locals(auditResourceKey).(string); ok && id != "" {
			resourceID = id
		}

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		details, _ := json.Marshal(map[string]any{
			"method":      method,
			"path":        path,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
		})

		go func() {
			if writeErr := writer.WriteAudit(action, "api", resourceID, string(details), ip, userAgent); writeErr != nil {
				slog.Error("failed to write audit log", "error", writeErr)
			}
		}()

		return err
	}
}
