package routes

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/travigo/trainstatus/pkg/trainstore"
)

// renderGroups reduces a value to the given sheriff groups and writes it as JSON
func renderGroups(c *fiber.Ctx, value interface{}, groups ...string) error {
	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, value)
	if err != nil {
		c.Status(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce response",
		})
	}

	return c.JSON(reduced)
}

// lookupFailed turns a lookup error into a response. Storage and deadline failures are passed up to the
// timeout middleware.
func lookupFailed(c *fiber.Ctx, err error) error {
	if errors.Is(err, trainstore.ErrNotFound) {
		c.Status(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return err
}

func splitList(value string) []string {
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}

	return list
}
