package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/trainstatus/pkg/api/routes"
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail/railutils"
	"github.com/travigo/trainstatus/pkg/trainstore"
)

type Options struct {
	RequestTimeout time.Duration

	RouteRepository trainstore.RouteRepository
	Publisher       railutils.Publisher
}

// NewApp builds the web API. Reads go through the global data aggregator.
func NewApp(options Options) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())
	webApp.Use(NewNoStore())
	webApp.Use(NewTimeout(options.RequestTimeout))

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.TrainsRouter(group.Group("/trains"))
	routes.StationsRouter(group.Group("/stations"))
	routes.RouteDefinitionsRouter(group.Group("/routes"), options.RouteRepository, options.Publisher)

	return webApp
}

func SetupServer(listen string, options Options) error {
	return NewApp(options).Listen(listen)
}
