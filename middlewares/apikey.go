package middlewares

import (
	"crypto/subtle"

	"refmart/helpers"

	"github.com/gofiber/fiber/v2"
)

// APIKeyAuth guards the mutating routes with a shared key header. Real
// identity lives in the upstream API layer; this keeps the core from being
// callable by accident.
func APIKeyAuth(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return helpers.JSONErrorStatus(c, fiber.StatusServiceUnavailable, "API_KEY_NOT_CONFIGURED")
		}
		got := c.Get("X-Api-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_API_KEY")
		}
		return c.Next()
	}
}
