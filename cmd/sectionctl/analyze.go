package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/section-speed/backend/internal/analysis"
	"github.com/section-speed/backend/internal/config"
	"github.com/section-speed/backend/internal/models"
	"github.com/section-speed/backend/internal/report"
	"github.com/section-speed/backend/internal/source"
	"github.com/urfave/cli/v2"
)

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "start-dir", Usage: "Directory holding start checkpoint logs"},
		&cli.StringFlag{Name: "end-dir", Usage: "Directory holding end checkpoint logs (defaults to --start-dir)"},
		&cli.StringFlag{Name: "zip", Usage: "Zip archive holding both sides' logs"},
	}
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "profile", Usage: "YAML analysis profile"},
		&cli.Float64Flag{Name: "section-km", Usage: "Section length in km"},
		&cli.Float64Flag{Name: "over-speed", Usage: "Over-speed threshold in km/h"},
		&cli.Float64Flag{Name: "speed-limit", Usage: "Posted speed limit shown in reports"},
		&cli.Float64Flag{Name: "min-transit", Usage: "Minimum plausible transit seconds"},
		&cli.Float64Flag{Name: "max-transit", Usage: "Maximum plausible transit seconds"},
		&cli.StringFlag{Name: "start-prefix", Usage: "File name prefix of start logs"},
		&cli.StringFlag{Name: "end-prefix", Usage: "File name prefix of end logs"},
		&cli.StringFlag{Name: "merge-policy", Usage: "earliest-wins or last-overwrite"},
		&cli.StringFlag{Name: "sort", Usage: "start or speed"},
		&cli.StringFlag{Name: "mode", Usage: "compact, verbose or auto"},
		&cli.StringFlag{Name: "tz", Usage: "Time zone of log wall-clock times"},
		&cli.IntFlag{Name: "workers", Usage: "Parallel file extractors (0 = GOMAXPROCS)"},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "csv", Usage: "Write matched records as CSV to this path"},
		&cli.StringFlag{Name: "html", Usage: "Write the HTML report to this path"},
		&cli.StringFlag{Name: "json", Usage: "Write the JSON report payload to this path"},
		&cli.BoolFlag{Name: "quiet", Usage: "Do not print the summary"},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Run one analysis and print the summary",
		Flags: append(append(inputFlags(), configFlags()...), outputFlags()...),
		Action: func(c *cli.Context) error {
			cfg, err := configFromFlags(c)
			if err != nil {
				return err
			}
			in, err := inputsFromFlags(c)
			if err != nil {
				return err
			}
			_, err = runOnce(c.Context, c, cfg, in, os.Stdout)
			return err
		},
	}
}

// configFromFlags layers defaults, the optional YAML profile and explicit flags.
func configFromFlags(c *cli.Context) (models.AnalysisConfig, error) {
	cfg := models.DefaultAnalysisConfig()

	if p := c.String("profile"); p != "" {
		loaded, err := config.LoadAnalysisProfile(p, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if c.IsSet("section-km") {
		cfg.SectionLengthKm = c.Float64("section-km")
	}
	if c.IsSet("over-speed") {
		cfg.OverSpeedKmh = c.Float64("over-speed")
	}
	if c.IsSet("speed-limit") {
		cfg.SpeedLimitKmh = c.Float64("speed-limit")
	}
	if c.IsSet("min-transit") {
		cfg.MinTransitSeconds = c.Float64("min-transit")
	}
	if c.IsSet("max-transit") {
		cfg.MaxTransitSeconds = c.Float64("max-transit")
	}
	if c.IsSet("start-prefix") {
		cfg.StartPrefix = c.String("start-prefix")
	}
	if c.IsSet("end-prefix") {
		cfg.EndPrefix = c.String("end-prefix")
	}
	if c.IsSet("merge-policy") {
		cfg.MergePolicy = models.MergePolicy(c.String("merge-policy"))
	}
	if c.IsSet("sort") {
		cfg.SortKey = models.SortKey(c.String("sort"))
	}
	if c.IsSet("mode") {
		cfg.ExtractMode = models.ExtractMode(c.String("mode"))
	}
	if c.IsSet("tz") {
		cfg.TimeZone = c.String("tz")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func inputsFromFlags(c *cli.Context) (analysis.Inputs, error) {
	startDir, endDir, zipPath := c.String("start-dir"), c.String("end-dir"), c.String("zip")

	switch {
	case zipPath != "" && startDir != "":
		return analysis.Inputs{}, errors.New("use either --zip or --start-dir, not both")
	case zipPath != "":
		zs := source.NewZipFileSource(zipPath)
		return analysis.Inputs{Start: zs, End: zs}, nil
	case startDir != "":
		if endDir == "" {
			endDir = startDir
		}
		return analysis.Inputs{
			Start: source.NewDirSource(startDir),
			End:   source.NewDirSource(endDir),
		}, nil
	default:
		return analysis.Inputs{}, errors.New("one of --start-dir or --zip is required")
	}
}

// runOnce executes the pipeline, writes the requested outputs and prints the summary.
func runOnce(ctx context.Context, c *cli.Context, cfg models.AnalysisConfig, in analysis.Inputs, out io.Writer) (*models.ResultSet, error) {
	pipeline := analysis.NewPipeline(nil, c.Int("workers"))
	result, err := pipeline.Run(ctx, cfg, in, nil)
	if err != nil {
		return nil, err
	}

	if err := writeOutputs(c, result); err != nil {
		return result, err
	}
	if !c.Bool("quiet") {
		printSummary(out, result)
	}
	return result, nil
}

func writeOutputs(c *cli.Context, result *models.ResultSet) error {
	payload := report.NewPayload(result)

	outputs := []struct {
		flag   string
		render func() ([]byte, error)
	}{
		{"csv", func() ([]byte, error) { return report.CSV(result.Records) }},
		{"html", payload.HTML},
		{"json", payload.JSON},
	}
	for _, o := range outputs {
		path := c.String(o.flag)
		if path == "" {
			continue
		}
		data, err := o.render()
		if err != nil {
			return err
		}
		if err := writeFileAtomic(path, data); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Info().Str("path", path).Str("format", o.flag).Msg("report written")
	}
	return nil
}

// writeFileAtomic replaces path so watchers of the output never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sectionctl-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func printSummary(out io.Writer, result *models.ResultSet) {
	s := result.Summary
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Start vehicles\t%d\n", s.StartCount)
	fmt.Fprintf(tw, "End vehicles\t%d\n", s.EndCount)
	fmt.Fprintf(tw, "Matched\t%d\n", s.MatchedCount)
	fmt.Fprintf(tw, "Start only / end only\t%d / %d\n", s.StartOnlyCount, s.EndOnlyCount)
	fmt.Fprintf(tw, "Rejected (transit window)\t%d\n", s.RejectedCount)
	fmt.Fprintf(tw, "Pass rate\t%.2f %%\n", s.PassRate)
	fmt.Fprintf(tw, "Mean transit\t%.2f s\n", s.MeanTransit)
	fmt.Fprintf(tw, "Mean speed\t%.2f km/h\n", s.MeanSpeed)
	fmt.Fprintf(tw, "Over speed (>= %.0f km/h)\t%d\n", s.OverSpeedKmh, s.OverSpeedCount)
	fmt.Fprintf(tw, "Merge policy\t%s\n", s.MergePolicy)
	tw.Flush()

	if len(result.TopWeekdayHours) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Busiest weekday hours:")
		for _, b := range result.TopWeekdayHours {
			fmt.Fprintf(out, "  %-16s %d\n", b.Label, b.Count)
		}
	}

	skipped := 0
	for _, d := range result.Diagnostics {
		if d.Skipped {
			skipped++
		}
	}
	if skipped > 0 {
		fmt.Fprintf(out, "\n%d file(s) skipped, see diagnostics\n", skipped)
	}
}
