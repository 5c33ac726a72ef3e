package transport

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/message-scheduler/internal/observability"
)

// RequestID tags every request with the caller's X-Request-ID, or a fresh
// one, and carries it in the user context for logging.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(fiber.HeaderXRequestID, requestID)
		c.SetUserContext(observability.WithRequestID(c.UserContext(), requestID))
		return c.Next()
	}
}
