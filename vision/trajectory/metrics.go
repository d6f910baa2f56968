package trajectory

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Summary holds statistics of the position errors of a trajectory, in meters.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	RMSE   float64
	Max    float64
	// Final is the error of the last position.
	Final float64
}

// Errors compares estimated positions with the ground truth positions of the same frames.
func Errors(pred, gt []r3.Vector) (Summary, error) {
	if len(pred) != len(gt) {
		return Summary{}, errors.Errorf("got %d estimated positions and %d ground truth positions", len(pred), len(gt))
	}
	if len(pred) == 0 {
		return Summary{}, errors.New("no positions to compare")
	}
	dists := make(stats.Float64Data, len(pred))
	for i := range pred {
		dists[i] = pred[i].Sub(gt[i]).Norm()
	}
	mean, err := dists.Mean()
	if err != nil {
		return Summary{}, err
	}
	median, err := dists.Median()
	if err != nil {
		return Summary{}, err
	}
	maxErr, err := dists.Max()
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Count:  len(dists),
		Mean:   mean,
		Median: median,
		RMSE:   floats.Norm(dists, 2) / math.Sqrt(float64(len(dists))),
		Max:    maxErr,
		Final:  dists[len(dists)-1],
	}, nil
}
