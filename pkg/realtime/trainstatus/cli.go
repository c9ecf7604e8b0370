package trainstatus

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/consumer"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/database"
	"github.com/travigo/trainstatus/pkg/elastic_client"
	"github.com/travigo/trainstatus/pkg/events"
	"github.com/travigo/trainstatus/pkg/redis_client"
	"github.com/travigo/trainstatus/pkg/trainstore"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "train-status",
		Usage: "Correlates TD, schedule and Darwin events into live train status",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run an instance of the train status engine",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-sweeper",
						Usage: "do not run the TD silence sweeper in this instance",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					config, err := LoadConfig()
					if err != nil {
						return err
					}

					eventsQueue, err := redis_client.QueueConnection.OpenQueue(events.EventsQueue)
					if err != nil {
						return err
					}

					registry := prometheus.NewRegistry()
					registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

					engine := NewEngine(
						trainstore.NewMongoRepository(),
						config,
						WithStats(NewStats(registry)),
						WithNotifier(&events.QueuePublisher{Queue: eventsQueue}),
						WithIdentifyRecorder(IndexIdentifyEvent),
					)

					redisConsumer := consumer.RedisConsumer{
						QueueName:       TrainEventsQueue,
						NumberConsumers: config.NumConsumers,
						BatchSize:       config.BatchSize,
						Timeout:         2 * time.Second,
						Consumer:        NewBatchConsumer(engine),
					}
					if err := redisConsumer.Setup(); err != nil {
						return err
					}

					ctx, cancel := context.WithCancel(context.Background())
					defer cancel()

					if !c.Bool("no-sweeper") {
						go engine.RunSweeper(ctx)
					}

					go consumer.StartStatsServer(ctx, TrainEventsQueue, registry)

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					cancel()
					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish
					flushCtx, flushCancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer flushCancel()
					elastic_client.Flush(flushCtx)

					return nil
				},
			},
			{
				Name:  "cleaner",
				Usage: "run the queue cleaner for the train events queue",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					go consumer.RunCleaner(time.Minute)

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals

					return nil
				},
			},
			{
				Name:  "requeue",
				Usage: "return rejected train events to the queue",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					returned, err := consumer.ReturnRejected(TrainEventsQueue)
					if err != nil {
						return err
					}

					log.Info().Int64("count", returned).Msg("Returned rejected train events")

					return nil
				},
			},
			{
				Name:  "inspect",
				Usage: "print the stored state of a train",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "primary identifier of the train",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()

					train, err := trainstore.NewMongoRepository().FindOne(ctx, &ctdf.TrainFilter{PrimaryIdentifier: c.String("id")})
					if errors.Is(err, trainstore.ErrNotFound) {
						log.Error().Str("id", c.String("id")).Msg("Train not found")
						return nil
					} else if err != nil {
						return err
					}

					pretty.Println(train)

					return nil
				},
			},
		},
	}
}
