package cli

import (
	"github.com/travigo/trainstatus/pkg/database"
	"github.com/travigo/trainstatus/pkg/elastic_client"
	"github.com/travigo/trainstatus/pkg/stats/web_api"
	"github.com/travigo/trainstatus/pkg/trainstore"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Provides train and identification statistics endpoints",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run stats server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8081",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(true); err != nil {
						return err
					}

					return web_api.SetupServer(c.String("listen"), trainstore.NewMongoRepository())
				},
			},
		},
	}
}
