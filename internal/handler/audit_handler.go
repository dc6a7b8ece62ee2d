package handler

import (
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/gofiber/fiber/v3"
)

// AuditHandler exposes the request audit trail.
type AuditHandler struct {
	store port.AuditStore
}

func NewAuditHandler(store port.AuditStore) *AuditHandler {
	return &AuditHandler{store: store}
}

func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("/audit/logs", h.ListLogs)
}

// ListLogs returns the newest records first. ?action= filters by action
// (http_request, analysis_run, chat, mcp_call).
func (h *AuditHandler) ListLogs(c fiber.Ctx) error {
	logs, err := h.store.ListAuditLogs(c.Context(), queryLimit(c, 100, 1000), c.Query("action"))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"count": len(logs),
	})
}
