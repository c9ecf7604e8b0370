package realtime

import (
	"github.com/travigo/trainstatus/pkg/realtime/nationalrail"
	"github.com/travigo/trainstatus/pkg/realtime/trainstatus"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "realtime",
		Usage: "Train status engine and the national rail feeds that drive it",
		Subcommands: []*cli.Command{
			trainstatus.RegisterCLI(),
			nationalrail.RegisterCLI(),
		},
	}
}
