package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ruzziq8-cell/buzzlab/internal/reminder"
	"github.com/ruzziq8-cell/buzzlab/internal/session"
)

// StatusHandler exposes the reminder engine's operational snapshot
type StatusHandler struct {
	engine   *reminder.Engine
	sessions *session.Store
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(engine *reminder.Engine, sessions *session.Store) *StatusHandler {
	return &StatusHandler{engine: engine, sessions: sessions}
}

// Handle responds with the engine status and session count
// GET /status
func (h *StatusHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"engine":   h.engine.Status(),
		"sessions": h.sessions.Count(),
	})
}

// Trigger runs one reminder tick synchronously and returns the resulting
// status. Same code path as the !trigger chat command.
// POST /admin/trigger
func (h *StatusHandler) Trigger(c *fiber.Ctx) error {
	h.engine.RunNow(c.Context())
	return c.JSON(fiber.Map{
		"triggered": true,
		"engine":    h.engine.Status(),
	})
}
