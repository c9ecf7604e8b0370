package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const Version = "v1.0"

// APIVersion also reports the server clock so clients can build board windows against it
func APIVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":    "trainstatus",
		"version":    Version,
		"servertime": time.Now().UTC().Format(time.RFC3339),
	})
}
