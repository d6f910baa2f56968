package odometry

import (
	"context"
	"image"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/utils"
)

// FrameSource is an ordered sequence of frames, with optional ground truth poses.
type FrameSource interface {
	NumFrames() int
	Frame(i int) (image.Image, error)
	// GroundTruth returns the 4x4 world pose of frame i, if known.
	GroundTruth(i int) (*mat.Dense, bool)
}

// RunOptions configure RunSequence.
type RunOptions struct {
	// Start is the index of the first frame used for Setup.
	Start int
	// UseGroundTruthScale scales each motion by the distance between consecutive ground truth
	// positions instead of the triangulated points ratio.
	UseGroundTruthScale bool
	// FrameRateWindow is the number of frames the reported frame rate is averaged over.
	FrameRateWindow int
}

// StepReport describes a processed frame of a sequence.
type StepReport struct {
	Index          int
	Predicted      r3.Vector
	GroundTruth    r3.Vector
	HasGroundTruth bool
	Scale          float64
	FrameRate      float64
	Result         *StepResult
}

const defaultFrameRateWindow = 10

// RunSequence sets solver up on frames Start and Start+1 of src, with the ground truth pose of
// frame Start as initial pose, then steps through every following frame and reports it to onStep.
// It stops at the end of the sequence, when ctx is done or when onStep returns an error.
func RunSequence(ctx context.Context, solver *Solver, src FrameSource, opts RunOptions, onStep func(StepReport) error) error {
	n := src.NumFrames()
	if opts.Start < 0 || opts.Start+1 >= n {
		return errors.Errorf("need 2 frames from %d, sequence has %d", opts.Start, n)
	}
	window := opts.FrameRateWindow
	if window <= 0 {
		window = defaultFrameRateWindow
	}

	frame0, err := src.Frame(opts.Start)
	if err != nil {
		return err
	}
	frame1, err := src.Frame(opts.Start + 1)
	if err != nil {
		return err
	}
	var initialPose mat.Matrix
	if gt, ok := src.GroundTruth(opts.Start); ok && gt != nil {
		initialPose = gt
	}
	if err := solver.Setup(frame0, frame1, initialPose); err != nil {
		return err
	}

	prevGT, hasPrevGT := groundTruthPosition(src, opts.Start+1)
	rates := utils.NewRollingAverage(window)
	last := time.Now()
	for i := opts.Start + 2; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := src.Frame(i)
		if err != nil {
			return err
		}
		gt, hasGT := groundTruthPosition(src, i)

		var res *StepResult
		if opts.UseGroundTruthScale && hasGT && hasPrevGT {
			res, err = solver.StepWithScale(frame, GroundTruthScale(prevGT, gt))
		} else {
			res, err = solver.Step(frame)
		}
		if err != nil {
			return errors.Wrapf(err, "frame %d", i)
		}
		prevGT, hasPrevGT = gt, hasGT

		now := time.Now()
		if elapsed := now.Sub(last).Seconds(); elapsed > 0 {
			rates.Add(1 / elapsed)
		}
		last = now

		if onStep == nil {
			continue
		}
		report := StepReport{
			Index:          i,
			Predicted:      PosePosition(res.Pose),
			GroundTruth:    gt,
			HasGroundTruth: hasGT,
			Scale:          res.Scale,
			FrameRate:      rates.Average(),
			Result:         res,
		}
		if err := onStep(report); err != nil {
			return err
		}
	}
	return nil
}

func groundTruthPosition(src FrameSource, i int) (r3.Vector, bool) {
	gt, ok := src.GroundTruth(i)
	if !ok || gt == nil {
		return r3.Vector{}, false
	}
	return PosePosition(gt), true
}
