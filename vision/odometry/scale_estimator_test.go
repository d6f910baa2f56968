package odometry

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/rimage/transform"
)

func homogeneous(w float64, pts ...r3.Vector) *mat.Dense {
	m := mat.NewDense(4, len(pts), nil)
	for i, p := range pts {
		m.SetCol(i, []float64{p.X * w, p.Y * w, p.Z * w, w})
	}
	return m
}

func TestComputeScaleRatio(t *testing.T) {
	pts := homogeneous(1, r3.Vector{X: 0, Y: 0, Z: 5}, r3.Vector{X: 1, Y: 2, Z: 7}, r3.Vector{X: -3, Y: 1, Z: 9})
	rigid := transform.NewTransform(rotationY(0.3), mat.NewDense(3, 1, []float64{0.6, 0, 0.8}))

	ratio, err := ComputeScaleRatio(rigid, pts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ratio, test.ShouldAlmostEqual, 1, 1e-12)

	// the homogeneous scale does not matter
	ratio, err = ComputeScaleRatio(rigid, homogeneous(2.5, r3.Vector{X: 0, Y: 0, Z: 5}, r3.Vector{X: 1, Y: 2, Z: 7}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ratio, test.ShouldAlmostEqual, 1, 1e-12)

	stretch := mat.NewDiagDense(4, []float64{2, 2, 2, 1})
	ratio, err = ComputeScaleRatio(stretch, pts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ratio, test.ShouldAlmostEqual, 0.5, 1e-12)
}

func TestComputeScaleRatioDegenerate(t *testing.T) {
	rigid := transform.NewTransform(rotationY(0), mat.NewDense(3, 1, []float64{1, 0, 0}))

	_, err := ComputeScaleRatio(rigid, nil)
	test.That(t, errors.Is(err, ErrDegenerateScale), test.ShouldBeTrue)

	_, err = ComputeScaleRatio(rigid, homogeneous(1, r3.Vector{X: 1, Y: 1, Z: 1}))
	test.That(t, errors.Is(err, ErrDegenerateScale), test.ShouldBeTrue)

	// identical points have no usable distance
	same := r3.Vector{X: 1, Y: 2, Z: 3}
	_, err = ComputeScaleRatio(rigid, homogeneous(1, same, same, same))
	test.That(t, errors.Is(err, ErrDegenerateScale), test.ShouldBeTrue)

	// points at infinity are skipped
	atInfinity := homogeneous(1, r3.Vector{X: 1, Y: 2, Z: 3}, r3.Vector{X: 2, Y: 2, Z: 3}, r3.Vector{X: 3, Y: 2, Z: 3})
	atInfinity.Set(3, 1, 0)
	_, err = ComputeScaleRatio(rigid, atInfinity)
	test.That(t, errors.Is(err, ErrDegenerateScale), test.ShouldBeTrue)

	_, err = ComputeScaleRatio(mat.NewDense(3, 3, nil), homogeneous(1, same, same))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrDegenerateScale), test.ShouldBeFalse)
	_, err = ComputeScaleRatio(rigid, mat.NewDense(3, 2, nil))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGroundTruthScale(t *testing.T) {
	test.That(t, GroundTruthScale(r3.Vector{X: 1, Y: 1, Z: 1}, r3.Vector{X: 4, Y: 5, Z: 1}), test.ShouldEqual, 5)
	test.That(t, GroundTruthScale(r3.Vector{}, r3.Vector{}), test.ShouldEqual, 0)
}
