// Package main runs monocular visual odometry on KITTI style sequences.
package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/monovo/logging"
)

const (
	flagSequences     = "sequences"
	flagSequence      = "sequence"
	flagCamera        = "camera"
	flagPreferredAxis = "preferred-axis"
	flagUseScale      = "use-scale"
	flagConfig        = "config"
	flagWhiteboard    = "whiteboard"
	flagStart         = "start"
	flagDebug         = "debug"
	flagLog           = "log"
)

func main() {
	logger := logging.NewLogger("monovo")
	app := newApp(&logger)
	if err := app.Run(os.Args); err != nil {
		logger.Errorw("monovo failed", "error", err)
		os.Exit(1)
	}
}

func newApp(logger *logging.Logger) *cli.App {
	return &cli.App{
		Name:  "monovo",
		Usage: "estimate camera trajectories from image sequences",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringSliceFlag{
				Name:  flagLog,
				Usage: "set the level of the loggers matching a pattern, as `PATTERN=LEVEL` (e.g. monovo.solver=debug)",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				*logger = logging.NewDebugLogger("monovo")
			}
			logging.RegisterLogger("monovo", *logger)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "run visual odometry on a sequence and compare it to its ground truth",
				UsageText: "monovo run --sequences <dir> --sequence <name> [other options]",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagSequences,
						Required: true,
						Usage:    "`DIR` holding the sequences and their poses",
					},
					&cli.StringFlag{
						Name:  flagSequence,
						Value: "00",
						Usage: "name of the sequence",
					},
					&cli.IntFlag{
						Name:  flagCamera,
						Value: 0,
						Usage: "camera whose images are used",
					},
					&cli.StringFlag{
						Name:  flagPreferredAxis,
						Usage: "only accept motions along this axis (x, y, z or 0, 1, 2)",
					},
					&cli.BoolFlag{
						Name:  flagUseScale,
						Usage: "scale motions with the ground truth",
					},
					&cli.PathFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load solver configuration from `FILE`",
					},
					&cli.PathFlag{
						Name:  flagWhiteboard,
						Usage: "save the trajectory plot to `FILE`",
					},
					&cli.IntFlag{
						Name:  flagStart,
						Value: 0,
						Usage: "index of the first frame",
					},
				},
				Action: func(c *cli.Context) error {
					args, err := runArgsFromContext(c)
					if err != nil {
						return err
					}
					solverLogger := (*logger).Sublogger("solver")
					if err := applyLogPatterns(c.StringSlice(flagLog), *logger); err != nil {
						return err
					}
					return runVisualOdometry(c.Context, args, *logger, solverLogger, c.App.Writer)
				},
			},
		},
	}
}

// applyLogPatterns parses PATTERN=LEVEL entries and applies them to the registered loggers.
func applyLogPatterns(entries []string, logger logging.Logger) error {
	if len(entries) == 0 {
		return nil
	}
	patterns := make([]logging.LoggerPatternConfig, 0, len(entries))
	for _, entry := range entries {
		pattern, level, ok := strings.Cut(entry, "=")
		if !ok {
			return errors.Errorf("log level %q should be PATTERN=LEVEL", entry)
		}
		if _, err := logging.LevelFromString(level); err != nil {
			return err
		}
		patterns = append(patterns, logging.LoggerPatternConfig{Pattern: pattern, Level: level})
	}
	return logging.UpdateLoggerConfig(patterns, logger)
}
