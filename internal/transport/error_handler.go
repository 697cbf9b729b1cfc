package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/signalbay/outreach-engine/internal/observability"
	"go.uber.org/zap"
)

// CorrelationHeader carries the request correlation id; callers may
// supply their own, otherwise one is assigned.
const CorrelationHeader = "X-Correlation-Id"

// CorrelationMiddleware stamps every request with a correlation id and
// echoes it on the response, so a distribution request can be traced
// through registry, scheduler and dispatcher logs.
func CorrelationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := c.Get(CorrelationHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), correlationID))
		c.Set(CorrelationHeader, correlationID)
		return c.Next()
	}
}

func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}

		observability.WithContextLogger(logger, c.UserContext()).Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
