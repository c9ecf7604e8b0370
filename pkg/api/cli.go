package api

import (
	"time"

	"github.com/travigo/trainstatus/pkg/dataaggregator/global"
	"github.com/travigo/trainstatus/pkg/database"
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail/railutils"
	"github.com/travigo/trainstatus/pkg/realtime/trainstatus"
	"github.com/travigo/trainstatus/pkg/redis_client"
	"github.com/travigo/trainstatus/pkg/trainstore"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the train status web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.DurationFlag{
						Name:  "request-timeout",
						Value: 30 * time.Second,
						Usage: "abandon requests that take longer than this",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					config, err := trainstatus.LoadConfig()
					if err != nil {
						return err
					}

					global.Setup(config.OnTimeTolerance)

					trainEventsQueue, err := redis_client.QueueConnection.OpenQueue(trainstatus.TrainEventsQueue)
					if err != nil {
						return err
					}

					return SetupServer(c.String("listen"), Options{
						RequestTimeout:  c.Duration("request-timeout"),
						RouteRepository: trainstore.NewMongoRouteRepository(),
						Publisher:       &railutils.QueuePublisher{Queue: trainEventsQueue},
					})
				},
			},
		},
	}
}
