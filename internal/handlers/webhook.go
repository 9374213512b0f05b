package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/ruzziq8-cell/buzzlab/internal/logging"
	"github.com/ruzziq8-cell/buzzlab/internal/transport"
)

var log = logging.Component("handlers")

// MessageHandler interprets one inbound chat message and returns the reply
// text, if any.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg transport.Message) (string, bool)
}

// WebhookHandler receives inbound WhatsApp messages pushed by the gateway
type WebhookHandler struct {
	bot       MessageHandler
	transport transport.Client
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(bot MessageHandler, tc transport.Client) *WebhookHandler {
	return &WebhookHandler{bot: bot, transport: tc}
}

// HandleMessage handles one inbound message from the gateway
// POST /webhook/wa/message
//
// Always returns 200 once the message was interpreted: the gateway retries
// non-2xx deliveries, and re-running a command like !add would duplicate the
// task. A failed reply send is reported in the body instead.
func (h *WebhookHandler) HandleMessage(c *fiber.Ctx) error {
	var msg transport.Message
	if err := c.BodyParser(&msg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid message payload",
		})
	}
	if msg.From == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing sender",
		})
	}

	reply, handled := h.bot.HandleMessage(c.Context(), msg)
	if !handled {
		return c.JSON(fiber.Map{
			"handled": false,
		})
	}

	delivered := true
	if err := h.transport.SendMessage(c.Context(), msg.From, reply); err != nil {
		log.WithError(err).WithField("to", msg.From).Error("failed to send reply")
		delivered = false
	}

	return c.JSON(fiber.Map{
		"handled":   true,
		"delivered": delivered,
	})
}
