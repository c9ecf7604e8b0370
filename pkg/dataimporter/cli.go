package dataimporter

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/database"
	"github.com/travigo/trainstatus/pkg/dataimporter/insertrecords"
	"github.com/travigo/trainstatus/pkg/dataimporter/manager"
	"github.com/travigo/trainstatus/pkg/util"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "data-importer",
		Usage: "Import station reference data",
		Subcommands: []*cli.Command{
			{
				Name:  "corpus",
				Usage: "Import the Network Rail CORPUS extract into stations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "source",
						Value: manager.CorpusSource,
						Usage: "path or URL of the CORPUS JSON (optionally gzipped)",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
					defer stop()

					env := util.GetEnvironmentVariables()

					return manager.ImportCorpus(ctx, c.String("source"), manager.Credentials{
						Username: env["TRAVIGO_NETWORKRAIL_USERNAME"],
						Password: env["TRAVIGO_NETWORKRAIL_PASSWORD"],
					})
				},
			},
			{
				Name:  "insert-records",
				Usage: "Upsert hand maintained station and route records",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Value: "data/insert-records/",
						Usage: "directory of YAML insert record files",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					inserted, err := insertrecords.Insert(c.Context, c.String("dir"))
					if err != nil {
						return err
					}

					log.Info().Int("records", inserted).Msg("Inserted records")

					return nil
				},
			},
		},
	}
}
