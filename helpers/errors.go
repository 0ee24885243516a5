package helpers

import (
	"errors"

	"refmart/ledger"
	"refmart/logger"
	"refmart/matrix"
	"refmart/policy"

	"github.com/gofiber/fiber/v2"
)

// JSONEngineError maps the engine's error taxonomy onto HTTP responses.
// Configuration problems are operator-fixable, not retryable, so they get
// their own status and the offending path in the message.
func JSONEngineError(c *fiber.Ctx, err error) error {
	var cfgErr *policy.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		return JSONErrorStatus(c, fiber.StatusUnprocessableEntity, cfgErr.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return JSONError(c, "INSUFFICIENT_FUNDS")
	case errors.Is(err, matrix.ErrNoOpenSlot):
		return JSONErrorStatus(c, fiber.StatusConflict, "PLACEMENT_FAILED")
	}
	logger.Errorf("trigger failed: %v", err)
	return JSONErrorStatus(c, fiber.StatusInternalServerError, "INTERNAL_ERROR")
}
