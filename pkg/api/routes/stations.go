package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/senseyeio/duration"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/dataaggregator"
	"github.com/travigo/trainstatus/pkg/dataaggregator/query"
	"github.com/travigo/trainstatus/pkg/util"
)

const defaultBoardDuration = "PT2H"

func StationsRouter(router fiber.Router) {
	router.Get("/:crs/board", getStationBoard)
	router.Get("/:crs/delays", getStationDelays)
}

func getStationBoard(c *fiber.Ctx) error {
	from, to, err := boardWindow(c)
	if err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	board, err := dataaggregator.Lookup[[]*ctdf.StationBoardEntry](c.UserContext(), query.StationBoard{
		CRS:  util.NormaliseIdentifier(c.Params("crs")),
		From: from,
		To:   to,
	})
	if err != nil {
		return lookupFailed(c, err)
	}

	return renderGroups(c, board, "basic")
}

func getStationDelays(c *fiber.Ctx) error {
	from, to, err := boardWindow(c)
	if err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	delays, err := dataaggregator.Lookup[[]*ctdf.StationBoardEntry](c.UserContext(), query.StationDelays{
		CRS:  util.NormaliseIdentifier(c.Params("crs")),
		From: from,
		To:   to,
	})
	if err != nil {
		return lookupFailed(c, err)
	}

	return renderGroups(c, delays, "basic")
}

// boardWindow reads the from (RFC3339, default now) and ISO8601 duration (default two hours) parameters
func boardWindow(c *fiber.Ctx) (time.Time, time.Time, error) {
	from := time.Now()
	if fromString := c.Query("from"); fromString != "" {
		parsed, err := time.Parse(time.RFC3339, fromString)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}

	window, err := duration.ParseISO8601(c.Query("duration", defaultBoardDuration))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	return from, window.Shift(from), nil
}
