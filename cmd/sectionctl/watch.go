package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/section-speed/backend/internal/watch"
	"github.com/urfave/cli/v2"
)

func watchCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "start-dir", Usage: "Directory holding start checkpoint logs", Required: true},
		&cli.StringFlag{Name: "end-dir", Usage: "Directory holding end checkpoint logs (defaults to --start-dir)"},
		&cli.DurationFlag{Name: "debounce", Usage: "Quiet period before re-running", Value: watch.DefaultDebounce},
	}
	flags = append(append(flags, configFlags()...), outputFlags()...)

	return &cli.Command{
		Name:  "watch",
		Usage: "Re-run the analysis whenever checkpoint logs change",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg, err := configFromFlags(c)
			if err != nil {
				return err
			}
			in, err := inputsFromFlags(c)
			if err != nil {
				return err
			}

			run := func(ctx context.Context) error {
				started := time.Now()
				result, err := runOnce(ctx, c, cfg, in, os.Stdout)
				if err != nil {
					return err
				}
				log.Info().Int("matched", len(result.Records)).Dur("elapsed", time.Since(started)).Msg("re-analysis complete")
				return nil
			}

			// Initial run so outputs exist before the first change
			if err := run(c.Context); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("initial analysis failed")
			}

			dirs := []string{c.String("start-dir")}
			if end := c.String("end-dir"); end != "" && end != dirs[0] {
				dirs = append(dirs, end)
			}
			w := watch.New(dirs, []string{cfg.StartPrefix, cfg.EndPrefix}, c.Duration("debounce"), run)
			return w.Run(c.Context)
		},
	}
}
