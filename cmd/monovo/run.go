package main

import (
	"context"
	"fmt"
	"io"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/monovo/dataset"
	"go.viam.com/monovo/logging"
	"go.viam.com/monovo/vision/odometry"
	"go.viam.com/monovo/vision/trajectory"
)

type runArgs struct {
	sequencesDir string
	sequence     string
	camera       int
	// preferredAxis overrides the configuration when set.
	preferredAxis *odometry.Axis
	useScale      bool
	configPath    string
	whiteboard    string
	start         int
}

func runArgsFromContext(c *cli.Context) (runArgs, error) {
	args := runArgs{
		sequencesDir: c.Path(flagSequences),
		sequence:     c.String(flagSequence),
		camera:       c.Int(flagCamera),
		useScale:     c.Bool(flagUseScale),
		configPath:   c.Path(flagConfig),
		whiteboard:   c.Path(flagWhiteboard),
		start:        c.Int(flagStart),
	}
	if c.IsSet(flagPreferredAxis) {
		axis, err := odometry.AxisFromString(c.String(flagPreferredAxis))
		if err != nil {
			return runArgs{}, err
		}
		args.preferredAxis = &axis
	}
	return args, nil
}

func solverConfig(args runArgs, seq *dataset.Sequence) (*odometry.SolverConfig, error) {
	cfg := odometry.DefaultSolverConfig(seq.Intrinsics)
	if args.configPath != "" {
		var err error
		cfg, err = odometry.LoadSolverConfig(args.configPath)
		if err != nil {
			return nil, err
		}
		if cfg.CamIntrinsics == nil {
			cfg.CamIntrinsics = seq.Intrinsics
		}
	}
	if args.preferredAxis != nil {
		cfg.PreferredAxis = *args.preferredAxis
	}
	return cfg, nil
}

func runVisualOdometry(ctx context.Context, args runArgs, logger, solverLogger logging.Logger, out io.Writer) error {
	seq, err := dataset.OpenKITTISequence(args.sequencesDir, args.sequence, args.camera)
	if err != nil {
		return err
	}
	if args.useScale && !seq.HasGroundTruth() {
		return errors.Errorf("sequence %s has no ground truth to scale motions with", args.sequence)
	}
	cfg, err := solverConfig(args, seq)
	if err != nil {
		return err
	}
	solver, err := odometry.NewSolver(cfg, solverLogger)
	if err != nil {
		return err
	}
	logger.Infow("running visual odometry",
		"sequence", seq.Name, "camera", seq.Camera, "frames", seq.NumFrames(), "use_scale", args.useScale)

	var wb *trajectory.Whiteboard
	if args.whiteboard != "" {
		wb = trajectory.NewWhiteboard(seq.NumFrames())
	}
	var predicted, groundTruth []r3.Vector
	var accepted, degraded int
	opts := odometry.RunOptions{Start: args.start, UseGroundTruthScale: args.useScale}
	err = odometry.RunSequence(ctx, solver, seq, opts, func(report odometry.StepReport) error {
		if report.Result.Accepted {
			accepted++
		}
		if report.Result.Degraded != nil {
			degraded++
		}
		if report.HasGroundTruth {
			predicted = append(predicted, report.Predicted)
			groundTruth = append(groundTruth, report.GroundTruth)
		}
		if wb != nil {
			wb.Plot(report.Index, report.Predicted, report.GroundTruth, report.HasGroundTruth, report.FrameRate)
		}
		logger.Debugw("frame",
			"index", report.Index,
			"x", report.Predicted.X, "y", report.Predicted.Y, "z", report.Predicted.Z,
			"scale", report.Scale, "fps", report.FrameRate)
		return nil
	})
	if err != nil {
		return err
	}
	if wb != nil {
		if err := wb.SavePNG(args.whiteboard); err != nil {
			return err
		}
		logger.Infow("saved trajectory plot", "path", args.whiteboard)
	}

	steps := seq.NumFrames() - args.start - 2
	return writeSummary(out, seq.Name, steps, accepted, degraded, predicted, groundTruth)
}

func writeSummary(out io.Writer, name string, steps, accepted, degraded int, predicted, groundTruth []r3.Vector) error {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(fmt.Sprintf("sequence %s", name))
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Frames processed", steps})
	t.AppendRow(table.Row{"Accepted motions", accepted})
	t.AppendRow(table.Row{"Degraded frames", degraded})
	if len(predicted) > 0 {
		summary, err := trajectory.Errors(predicted, groundTruth)
		if err != nil {
			return err
		}
		t.AppendSeparator()
		t.AppendRow(table.Row{"Mean error (m)", fmt.Sprintf("%.3f", summary.Mean)})
		t.AppendRow(table.Row{"Median error (m)", fmt.Sprintf("%.3f", summary.Median)})
		t.AppendRow(table.Row{"RMSE (m)", fmt.Sprintf("%.3f", summary.RMSE)})
		t.AppendRow(table.Row{"Max error (m)", fmt.Sprintf("%.3f", summary.Max)})
		t.AppendRow(table.Row{"Final error (m)", fmt.Sprintf("%.3f", summary.Final)})
	}
	t.Render()
	return nil
}
