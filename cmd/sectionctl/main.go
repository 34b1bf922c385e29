package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/section-speed/backend/internal/logging"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	logging.Setup(os.Stderr, "")

	app := &cli.App{
		Name:        "sectionctl",
		Usage:       "Match start/end checkpoint logs and report section speeds",
		Description: "Offline front end to the section speed analysis pipeline",

		Commands: []*cli.Command{
			analyzeCommand(),
			watchCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
