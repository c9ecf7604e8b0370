package archiver

import (
	"github.com/rs/zerolog/log"
	"github.com/travigo/trainstatus/pkg/database"
	"github.com/travigo/trainstatus/pkg/trainstore"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "archiver",
		Usage: "Roll finished service days out of the live train set",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "bundle trains from before today into a tar.xz and mark them archived",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "output-directory",
						Usage:    "Directory to write the bundle to",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "bucket",
						Usage: "Upload the bundle to this Cloud Storage bucket",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					archiver := Archiver{
						Repository:      trainstore.NewMongoRepository(),
						OutputDirectory: c.String("output-directory"),
						CloudUpload:     c.String("bucket") != "",
						CloudBucketName: c.String("bucket"),
					}

					archived, err := archiver.Perform(c.Context)
					if err != nil {
						return err
					}

					log.Info().Int("archived", archived).Msg("Archiver finished")

					return nil
				},
			},
		},
	}
}
