package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ruzziq8-cell/buzzlab/internal/session"
	"github.com/ruzziq8-cell/buzzlab/internal/transport"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	sessions  *session.Store
	transport transport.Client
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(sessions *session.Store, tc transport.Client) *HealthHandler {
	return &HealthHandler{
		sessions:  sessions,
		transport: tc,
		startedAt: time.Now(),
	}
}

// Handle responds with server health status. The transport not being ready is
// reported but does not fail the check: the HTTP surface is healthy even while
// the gateway is still pairing.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "healthy",
		"sessions":        h.sessions.Count(),
		"transport_ready": h.transport.Ready(c.Context()),
		"uptime":          time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}
