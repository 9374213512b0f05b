package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// WebhookAuth validates the shared gateway token on inbound webhook requests.
// The token is accepted either as "Authorization: Bearer <token>" or in the
// X-Gateway-Token header. An empty configured token disables the check, which
// is only sensible when the gateway runs on the same host.
func WebhookAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}

		presented := c.Get("X-Gateway-Token")
		if presented == "" {
			presented = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		}
		if presented == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing gateway token",
			})
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid gateway token",
			})
		}

		return c.Next()
	}
}
