package routes

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/trainstatus/pkg/stats"
)

func IdentificationRateRouter(router fiber.Router) {
	router.Get("/", getIdentificationRate)
}

func getIdentificationRate(c *fiber.Ctx) error {
	var sourcesList []string
	if sourcesListString := c.Query("sources", ""); sourcesListString != "" {
		sourcesList = strings.Split(sourcesListString, ",")
	}

	rateStats, err := stats.GetIdentificationRateStats(c.UserContext(), sourcesList)
	if err != nil {
		c.Status(fiber.StatusBadGateway)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(rateStats)
}
