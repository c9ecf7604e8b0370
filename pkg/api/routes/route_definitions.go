package routes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/dataaggregator"
	"github.com/travigo/trainstatus/pkg/dataaggregator/query"
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail/railutils"
	"github.com/travigo/trainstatus/pkg/trainstore"
)

type routeDefinitions struct {
	repository trainstore.RouteRepository
	publisher  railutils.Publisher
	validate   *validator.Validate
}

// RouteDefinitionsRouter serves user-authored routes. Reads go through the data aggregator, writes go to
// the repository and, for routes bound to a headcode and day, on to the status engine.
func RouteDefinitionsRouter(router fiber.Router, repository trainstore.RouteRepository, publisher railutils.Publisher) {
	handler := &routeDefinitions{
		repository: repository,
		publisher:  publisher,
		validate:   validator.New(),
	}

	router.Get("/", handler.list)
	router.Post("/", handler.create)
	router.Delete("/", handler.deleteAll)
	router.Get("/:identifier", handler.get)
	router.Put("/:identifier", handler.replace)
	router.Delete("/:identifier", handler.delete)
}

func (h *routeDefinitions) list(c *fiber.Ctx) error {
	routes, err := dataaggregator.Lookup[[]*ctdf.RouteDefinition](c.UserContext(), query.Routes{})
	if err != nil {
		return lookupFailed(c, err)
	}

	return renderGroups(c, routes, "basic")
}

func (h *routeDefinitions) get(c *fiber.Ctx) error {
	route, err := dataaggregator.Lookup[*ctdf.RouteDefinition](c.UserContext(), query.Route{
		PrimaryIdentifier: c.Params("identifier"),
	})
	if err != nil {
		return lookupFailed(c, err)
	}

	return renderGroups(c, route, "basic", "detailed")
}

func (h *routeDefinitions) create(c *fiber.Ctx) error {
	return h.store(c, ctdf.NewRouteID(), time.Time{}, fiber.StatusCreated)
}

func (h *routeDefinitions) replace(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	existing, err := h.repository.Get(c.UserContext(), identifier)
	if err != nil {
		return lookupFailed(c, err)
	}

	return h.store(c, identifier, existing.CreationDateTime, fiber.StatusOK)
}

// store parses, validates and saves the request body as the route with the given identifier
func (h *routeDefinitions) store(c *fiber.Ctx, identifier string, created time.Time, status int) error {
	var route ctdf.RouteDefinition
	if err := c.BodyParser(&route); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "could not parse route definition",
		})
	}

	route.Normalise()

	if err := h.validate.Struct(route); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	now := time.Now()
	route.PrimaryIdentifier = identifier
	route.CreationDateTime = created
	if route.CreationDateTime.IsZero() {
		route.CreationDateTime = now
	}
	route.ModificationDateTime = now

	if err := h.repository.Put(c.UserContext(), &route); err != nil {
		return err
	}

	if event, bound := route.ScheduleEvent(now); bound && h.publisher != nil {
		if err := h.publisher.Publish(*event); err != nil {
			log.Error().Err(err).Str("route", identifier).Msg("Failed to publish route schedule")
		}
	}

	c.Status(status)
	return renderGroups(c, &route, "basic", "detailed")
}

func (h *routeDefinitions) delete(c *fiber.Ctx) error {
	err := h.repository.Delete(c.UserContext(), c.Params("identifier"))
	if err != nil {
		return lookupFailed(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *routeDefinitions) deleteAll(c *fiber.Ctx) error {
	deleted, err := h.repository.DeleteAll(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"deleted": deleted,
	})
}
