package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/trainstatus/pkg/trainstore"
)

const ServiceUnavailableMessage = "Service unavailable. Please retry."

// NewNoStore stops clients and proxies caching live status responses
func NewNoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, private")

		return c.Next()
	}
}

// NewTimeout gives every request a deadline through its user context. A request that runs out of time,
// or whose storage is unavailable, is answered with 503.
func NewTimeout(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()

		c.SetUserContext(ctx)

		err := c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, trainstore.ErrRepositoryUnavailable) {
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
			return c.Status(fiber.StatusServiceUnavailable).SendString(ServiceUnavailableMessage)
		}

		return err
	}
}
