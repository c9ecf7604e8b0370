package events

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/consumer"
	"github.com/travigo/trainstatus/pkg/ctdf"
	"github.com/travigo/trainstatus/pkg/database"
	"github.com/travigo/trainstatus/pkg/elastic_client"
	"github.com/travigo/trainstatus/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Provides the train status events runner",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run events consumer",
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

					redisConsumer := consumer.RedisConsumer{
						QueueName:       EventsQueue,
						NumberConsumers: 5,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        NewEventsBatchConsumer(),
					}
					if err := redisConsumer.Setup(); err != nil {
						return err
					}

					ctx, cancel := context.WithCancel(context.Background())
					defer cancel()
					go consumer.StartStatsServer(ctx, EventsQueue, prometheus.DefaultGatherer)

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish
					flushCtx, flushCancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer flushCancel()
					elastic_client.Flush(flushCtx)

					return nil
				},
			},
			{
				Name:  "test-event",
				Usage: "generate a test event",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					eventsQueue, err := redis_client.QueueConnection.OpenQueue(EventsQueue)
					if err != nil {
						log.Fatal().Err(err).Msg("Failed to start event queue")
					}

					publisher := &QueuePublisher{Queue: eventsQueue}

					return publisher.Notify(&ctdf.Event{
						Type:      ctdf.EventTypeTrainCreated,
						Timestamp: time.Now(),
						Body: &ctdf.TrainEventBody{
							Train: &ctdf.Train{
								PrimaryIdentifier: "GB:TRAIN:TEST",
								Headcode:          "1Z99",
								ServiceDate:       time.Now().Format("2006-01-02"),
							},
						},
					})
				},
			},
		},
	}
}
