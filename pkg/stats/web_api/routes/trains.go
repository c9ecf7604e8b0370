package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/trainstatus/pkg/stats/calculator"
	"github.com/travigo/trainstatus/pkg/trainstore"
	"github.com/travigo/trainstatus/pkg/util"
)

func TrainsRouter(router fiber.Router, repository trainstore.Repository) {
	router.Get("/", func(c *fiber.Ctx) error {
		serviceDate := c.Query("date", util.ServiceDate(time.Now()))
		if _, err := util.ParseServiceDate(serviceDate); err != nil {
			c.Status(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "date must be formatted as YYYY-MM-DD",
			})
		}

		trainStats, err := calculator.GetTrains(c.UserContext(), repository, serviceDate)
		if err != nil {
			c.Status(fiber.StatusServiceUnavailable)
			return c.JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(trainStats)
	})
}
