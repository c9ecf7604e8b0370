package web_api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/trainstatus/pkg/api"
	"github.com/travigo/trainstatus/pkg/stats/web_api/routes"
	"github.com/travigo/trainstatus/pkg/trainstore"
)

func NewApp(repository trainstore.Repository) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(api.NewLogger())
	webApp.Use(api.NewNoStore())

	group := webApp.Group("/stats")

	group.Get("version", routes.APIVersion)
	routes.IdentificationRateRouter(group.Group("/identification_rate"))
	routes.TrainsRouter(group.Group("/trains"), repository)

	return webApp
}

func SetupServer(listen string, repository trainstore.Repository) error {
	return NewApp(repository).Listen(listen)
}
