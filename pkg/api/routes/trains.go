package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/dataaggregator"
	"github.com/travigo/trainstatus/pkg/dataaggregator/query"
	"github.com/travigo/trainstatus/pkg/util"
)

func TrainsRouter(router fiber.Router) {
	router.Get("/", listTrains)
	router.Get("/status", getActiveTrainStatus)
	router.Get("/search", searchTrain)
	router.Get("/service/:serviceid", getTrainByService)
	router.Get("/:identifier", getTrain)
}

func listTrains(c *fiber.Ctx) error {
	filter := ctdf.TrainFilter{
		TDActive:       queryFlag(c, "td_active"),
		MovementActive: queryFlag(c, "movement_active"),
		ScheduleActive: queryFlag(c, "schedule_active"),
	}
	fields := splitList(c.Query("fields"))

	trains, err := dataaggregator.Lookup[[]*ctdf.Train](c.UserContext(), query.Trains{
		Filter: filter,
		Fields: fields,
	})
	if err != nil {
		return lookupFailed(c, err)
	}

	if len(fields) == 0 {
		if trains == nil {
			trains = []*ctdf.Train{}
		}
		return renderGroups(c, trains, "basic")
	}

	projected := make([]interface{}, 0, len(trains))
	for _, train := range trains {
		document, err := train.Project(fields)
		if err != nil {
			return err
		}
		projected = append(projected, document)
	}

	return c.JSON(projected)
}

func getActiveTrainStatus(c *fiber.Ctx) error {
	summaries, err := dataaggregator.Lookup[[]*ctdf.TrainStatusSummary](c.UserContext(), query.ActiveTrainStatus{})
	if err != nil {
		return lookupFailed(c, err)
	}

	return renderGroups(c, summaries, "basic")
}

func searchTrain(c *fiber.Ctx) error {
	headcode := util.NormaliseIdentifier(c.Query("headcode"))
	if headcode == "" {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "headcode must be provided",
		})
	}

	serviceDate := c.Query("date", util.ServiceDate(time.Now()))
	if _, err := util.ParseServiceDate(serviceDate); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "date must be formatted as YYYY-MM-DD",
		})
	}

	train, err := dataaggregator.Lookup[*ctdf.Train](c.UserContext(), query.TrainByHeadcode{
		Headcode:    headcode,
		ServiceDate: serviceDate,
	})
	if err != nil {
		return lookupFailed(c, err)
	}

	return renderGroups(c, train, "basic", "detailed")
}

func getTrainByService(c *fiber.Ctx) error {
	train, err := dataaggregator.Lookup[*ctdf.Train](c.UserContext(), query.TrainByService{
		ServiceID: util.NormaliseIdentifier(c.Params("serviceid")),
	})
	if err != nil {
		return lookupFailed(c, err)
	}

	return renderGroups(c, train, "basic", "detailed")
}

func getTrain(c *fiber.Ctx) error {
	train, err := dataaggregator.Lookup[*ctdf.Train](c.UserContext(), query.Train{
		PrimaryIdentifier: c.Params("identifier"),
	})
	if err != nil {
		return lookupFailed(c, err)
	}

	return renderGroups(c, train, "basic", "detailed")
}

// queryFlag reads an optional boolean filter, unset when the parameter is missing
func queryFlag(c *fiber.Ctx, key string) *bool {
	if c.Query(key) == "" {
		return nil
	}

	return ctdf.Bool(c.QueryBool(key))
}
