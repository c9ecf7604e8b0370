package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/api"
	"github.com/travigo/trainstatus/pkg/archiver"
	"github.com/travigo/trainstatus/pkg/dataimporter"
	"github.com/travigo/trainstatus/pkg/events"
	"github.com/travigo/trainstatus/pkg/realtime"
	statscli "github.com/travigo/trainstatus/pkg/stats/cli"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("TRAVIGO_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("TRAVIGO_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "trainstatus",
		Description: "Live train running status correlated from TD, schedule and Darwin feeds",

		Commands: []*cli.Command{
			realtime.RegisterCLI(),
			events.RegisterCLI(),
			api.RegisterCLI(),
			dataimporter.RegisterCLI(),
			archiver.RegisterCLI(),
			statscli.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
