package odometry

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/utils"
)

// ComputeScaleRatio estimates the scale of a unit translation from triangulated points. The
// homogeneous points (4xM) are moved by the 4x4 transform; both sets are dehomogenized and the
// result is the mean, over consecutive points, of the distance between them before the transform
// over the distance after. Pairs whose distances are zero or not finite are skipped.
func ComputeScaleRatio(transform, triangulated mat.Matrix) (float64, error) {
	if triangulated == nil {
		return 0, errors.Wrap(ErrDegenerateScale, "no triangulated points")
	}
	if r, c := transform.Dims(); r != 4 || c != 4 {
		return 0, errors.Errorf("transform should be 4x4, got %dx%d", r, c)
	}
	rows, n := triangulated.Dims()
	if rows != 4 {
		return 0, errors.Errorf("triangulated points should have 4 rows, got %d", rows)
	}
	if n < 2 {
		return 0, errors.Wrapf(ErrDegenerateScale, "need at least 2 triangulated points, got %d", n)
	}
	var moved mat.Dense
	moved.Mul(transform, triangulated)

	ratios := make([]float64, 0, n-1)
	prevBefore, okBefore := dehomogenize(triangulated, 0)
	prevAfter, okAfter := dehomogenize(&moved, 0)
	for i := 1; i < n; i++ {
		before, curOkBefore := dehomogenize(triangulated, i)
		after, curOkAfter := dehomogenize(&moved, i)
		if okBefore && okAfter && curOkBefore && curOkAfter {
			num := before.Distance(prevBefore)
			den := after.Distance(prevAfter)
			if den > 0 && utils.IsFinite(num, den) {
				ratios = append(ratios, num/den)
			}
		}
		prevBefore, prevAfter = before, after
		okBefore, okAfter = curOkBefore, curOkAfter
	}
	if len(ratios) == 0 {
		return 0, errors.Wrap(ErrDegenerateScale, "no usable pair of triangulated points")
	}
	ratio, err := stats.Mean(ratios)
	if err != nil {
		return 0, errors.Wrap(ErrDegenerateScale, err.Error())
	}
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, errors.Wrap(ErrDegenerateScale, "scale is not finite")
	}
	return ratio, nil
}

// dehomogenize returns column i of a 4xM matrix divided by its last coordinate.
func dehomogenize(pts mat.Matrix, i int) (r3.Vector, bool) {
	w := pts.At(3, i)
	if w == 0 || !utils.IsFinite(w) {
		return r3.Vector{}, false
	}
	v := r3.Vector{X: pts.At(0, i) / w, Y: pts.At(1, i) / w, Z: pts.At(2, i) / w}
	return v, utils.IsFinite(v.X, v.Y, v.Z)
}

// GroundTruthScale is the distance travelled between two consecutive ground truth positions.
func GroundTruthScale(prev, cur r3.Vector) float64 {
	return cur.Sub(prev).Norm()
}
