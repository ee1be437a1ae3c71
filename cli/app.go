// Package cli contains the gapnav command line tool: config validation, scenario replay and
// cost plotting.
package cli

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"go.viam.com/dynamicgap/config"
	"go.viam.com/dynamicgap/diagnostics"
	"go.viam.com/dynamicgap/logging"
	"go.viam.com/dynamicgap/motionplan"
	"go.viam.com/dynamicgap/planner"
	"go.viam.com/dynamicgap/utils"
)

const (
	configFlag = "config"
	debugFlag  = "debug"
	outDirFlag = "out-dir"
	traceFlag  = "trace"
)

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "gapnav",
		Usage:           "run the dynamic gap planner offline",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "validate-config",
				Usage:     "check a planner config file",
				ArgsUsage: "<config.json>",
				Action:    ValidateConfigAction,
			},
			{
				Name:      "replay",
				Usage:     "run the planner over recorded scenarios",
				ArgsUsage: "<scenario.json>...",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:    configFlag,
						Aliases: []string{"c"},
						Usage:   "load planner configuration from `FILE`",
					},
					&cli.BoolFlag{
						Name:  traceFlag,
						Usage: "log every tick at info level, tagged with the scenario name",
					},
				},
				Action: ReplayAction,
			},
			{
				Name:      "plot",
				Usage:     "plot the candidate costs and trajectories of a scenario's last tick",
				ArgsUsage: "<scenario.json>",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:    configFlag,
						Aliases: []string{"c"},
						Usage:   "load planner configuration from `FILE`",
					},
					&cli.PathFlag{
						Name:     outDirFlag,
						Required: true,
						Usage:    "directory the images are written to",
					},
				},
				Action: PlotAction,
			},
		},
	}
}

func newLogger(c *cli.Context, cfg *config.PlannerConfig) logging.Logger {
	if c.Bool(debugFlag) {
		return logging.NewDebugLogger("gapnav")
	}
	logger := logging.NewLogger("gapnav")
	if level, err := cfg.Level(); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

func loadConfig(c *cli.Context) (*config.PlannerConfig, error) {
	path := c.Path(configFlag)
	if path == "" {
		return config.NewDefaultConfig(), nil
	}
	return config.Read(path)
}

// ValidateConfigAction reads and validates a planner config.
func ValidateConfigAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one config file")
	}
	cfg, err := config.Read(c.Args().First())
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s is valid: %s", c.Args().First(), cfg.String())
	return nil
}

// replayScenario runs one scenario on a fresh planner.
func replayScenario(ctx context.Context, path string, cfg *config.PlannerConfig, logger logging.Logger, trace bool) (
	[]planner.TickResult, error,
) {
	s, err := ReadScenario(path)
	if err != nil {
		return nil, err
	}
	if trace {
		ctx = logging.EnableDebugMode(ctx, s.Name)
	}
	p, err := planner.NewPlanner(config.NewHolder(cfg), prometheus.NewRegistry(), logger.Sublogger(s.Name))
	if err != nil {
		return nil, err
	}
	return Replay(ctx, p, s, time.Unix(0, 0).UTC())
}

// ReplayAction replays every scenario, up to utils.ParallelFactor at a time, and prints a summary
// of each.
func ReplayAction(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return errors.New("expected at least one scenario file")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c, cfg)

	var outMu sync.Mutex
	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(utils.ParallelFactor)
	for _, path := range c.Args().Slice() {
		path := path
		g.Go(func() error {
			results, err := replayScenario(ctx, path, cfg, logger, c.Bool(traceFlag))
			if err != nil {
				return errors.Wrapf(err, "replaying %q", path)
			}
			last := results[len(results)-1]
			summary, err := diagnostics.Summarize(last.Costs, cfg.LookaheadCount)
			if err != nil {
				return err
			}

			outMu.Lock()
			defer outMu.Unlock()
			printf(c.App.Writer, "%s: %d ticks, last decision %s, %d/%d feasible candidates",
				path, len(results), last.Decision.String(), summary.Feasible, summary.Candidates)
			if summary.Feasible > 0 {
				printf(c.App.Writer, "  scores: mean %.3f median %.3f min %.3f max %.3f",
					summary.Mean, summary.Median, summary.Min, summary.Max)
			}
			if last.Trajectory.Empty() {
				warningf(c.App.ErrWriter, "%s ends with no trajectory", path)
			}
			return nil
		})
	}
	return g.Wait()
}

// PlotAction replays a scenario and plots its last tick.
func PlotAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one scenario file")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	path := c.Args().First()
	results, err := replayScenario(c.Context, path, cfg, newLogger(c, cfg), false)
	if err != nil {
		return err
	}
	last := results[len(results)-1]

	dir := c.Path(outDirFlag)
	costsPath := outputPath(dir, path, "_costs", ".png")
	if err := diagnostics.PlotCosts(last.Costs, costsPath); err != nil {
		return err
	}
	trajPath := outputPath(dir, path, "_trajectory", ".png")
	if err := diagnostics.PlotTrajectories([]motionplan.Trajectory{last.Trajectory}, trajPath); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %s and %s", costsPath, trajPath)
	return nil
}
