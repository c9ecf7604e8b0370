package nationalrail

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/database"
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail/darwin"
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail/nrod"
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail/railutils"
	"github.com/travigo/trainstatus/pkg/realtime/trainstatus"
	"github.com/travigo/trainstatus/pkg/redis_client"
	"github.com/travigo/trainstatus/pkg/util"
	"github.com/urfave/cli/v2"
)

const networkRailAddress = "publicdatafeeds.networkrail.co.uk:61618"

type feedEnvironment struct {
	Publisher railutils.Publisher
	Stations  *railutils.TiplocCache
}

func setupFeed() (*feedEnvironment, error) {
	if err := database.Connect(); err != nil {
		return nil, err
	}
	if err := redis_client.Connect(); err != nil {
		return nil, err
	}

	queue, err := redis_client.QueueConnection.OpenQueue(trainstatus.TrainEventsQueue)
	if err != nil {
		return nil, err
	}

	return &feedEnvironment{
		Publisher: &railutils.QueuePublisher{Queue: queue},
		Stations:  railutils.NewTiplocCache(redis_client.Client),
	}, nil
}

// runUntilSignal runs the feed until SIGINT or SIGTERM
func runUntilSignal(run func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func networkRailSubscriber(env map[string]string, destination string) (*railutils.StompSubscriber, error) {
	username := env["TRAVIGO_NETWORKRAIL_USERNAME"]
	password := env["TRAVIGO_NETWORKRAIL_PASSWORD"]
	if username == "" || password == "" {
		return nil, errors.New("TRAVIGO_NETWORKRAIL_USERNAME and TRAVIGO_NETWORKRAIL_PASSWORD must be set")
	}

	return &railutils.StompSubscriber{
		Address:          util.GetEnvironmentOrDefault(env, "TRAVIGO_NETWORKRAIL_ADDRESS", networkRailAddress),
		Username:         username,
		Password:         password,
		Destination:      destination,
		SubscriptionName: env["TRAVIGO_NETWORKRAIL_SUBSCRIPTION"],
	}, nil
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "national-rail",
		Usage: "Ingest the GB rail feeds onto the train events queue",
		Subcommands: []*cli.Command{
			{
				Name:  "td",
				Usage: "forward Network Rail train describer berth steps",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "areas",
						Usage: "comma separated TD areas to forward, all when empty",
					},
				},
				Action: func(c *cli.Context) error {
					subscriber, err := networkRailSubscriber(util.GetEnvironmentVariables(), nrod.TDTopic)
					if err != nil {
						return err
					}

					feed, err := setupFeed()
					if err != nil {
						return err
					}

					var areas []string
					if c.String("areas") != "" {
						areas = strings.Split(strings.ToUpper(c.String("areas")), ",")
					}

					log.Info().Strs("areas", areas).Msg("Starting TD feed")

					client := &nrod.TDClient{
						Subscriber: subscriber,
						Publisher:  feed.Publisher,
						Areas:      areas,
					}

					return runUntilSignal(client.Run)
				},
			},
			{
				Name:  "vstp",
				Usage: "forward Network Rail very short term plan schedules",
				Action: func(c *cli.Context) error {
					subscriber, err := networkRailSubscriber(util.GetEnvironmentVariables(), nrod.VSTPTopic)
					if err != nil {
						return err
					}

					feed, err := setupFeed()
					if err != nil {
						return err
					}

					log.Info().Msg("Starting VSTP feed")

					client := &nrod.VSTPClient{
						Subscriber: subscriber,
						Publisher:  feed.Publisher,
						Stations:   feed.Stations,
					}

					return runUntilSignal(client.Run)
				},
			},
			{
				Name:  "darwin",
				Usage: "forward Darwin push port train status",
				Action: func(c *cli.Context) error {
					env := util.GetEnvironmentVariables()
					if env["TRAVIGO_NATIONALRAIL_PUSHPORT_ADDRESS"] == "" || env["TRAVIGO_NATIONALRAIL_PUSHPORT_QUEUE"] == "" {
						return errors.New("TRAVIGO_NATIONALRAIL_PUSHPORT_ADDRESS and TRAVIGO_NATIONALRAIL_PUSHPORT_QUEUE must be set")
					}

					feed, err := setupFeed()
					if err != nil {
						return err
					}

					log.Info().Msg("Starting Darwin push port feed")

					client := &darwin.StompClient{
						Subscriber: &railutils.StompSubscriber{
							Address:     env["TRAVIGO_NATIONALRAIL_PUSHPORT_ADDRESS"],
							Username:    env["TRAVIGO_NATIONALRAIL_PUSHPORT_USERNAME"],
							Password:    env["TRAVIGO_NATIONALRAIL_PUSHPORT_PASSWORD"],
							Destination: env["TRAVIGO_NATIONALRAIL_PUSHPORT_QUEUE"],
						},
						Publisher: feed.Publisher,
						Stations:  feed.Stations,
					}

					return runUntilSignal(client.Run)
				},
			},
		},
	}
}
