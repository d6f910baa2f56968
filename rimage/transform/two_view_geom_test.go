package transform

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestNormalizePoints(t *testing.T) {
	pts := []r2.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}
	normalized, T, err := normalizePoints(pts)
	test.That(t, err, test.ShouldBeNil)
	meanDist := 0.
	centroid := r2.Point{}
	for _, p := range normalized {
		meanDist += p.Norm() / 4
		centroid = centroid.Add(p)
	}
	test.That(t, meanDist, test.ShouldAlmostEqual, math.Sqrt(2))
	test.That(t, centroid.Norm(), test.ShouldAlmostEqual, 0)
	// T maps the original points onto the normalized ones
	test.That(t, T.At(0, 0)*pts[2].X+T.At(0, 2), test.ShouldAlmostEqual, normalized[2].X)

	_, _, err = normalizePoints([]r2.Point{{X: 1, Y: 1}, {X: 1, Y: 1}})
	test.That(t, errors.Is(err, ErrInsufficientCorrespondences), test.ShouldBeTrue)
}

func TestComputeEssentialMatrixAllPoints(t *testing.T) {
	R := rotationY(0.05)
	motion := r3.Vector{X: 0.8, Y: 0.05, Z: 0.1}
	_, pts1, pts2 := syntheticScene(50, R, motion, 1)
	x1 := testIntrinsics.NormalizePixels(pts1)
	x2 := testIntrinsics.NormalizePixels(pts2)

	E, err := ComputeEssentialMatrixAllPoints(x1, x2)
	test.That(t, err, test.ShouldBeNil)

	var expected mat.Dense
	expected.Mul(skew(motion), R)
	test.That(t, sameUpToSign(E, &expected, 1e-6), test.ShouldBeTrue)

	// epipolar constraint x2^T E x1 = 0
	for i := range x1 {
		h1 := mat.NewVecDense(3, []float64{x1[i].X, x1[i].Y, 1})
		h2 := mat.NewVecDense(3, []float64{x2[i].X, x2[i].Y, 1})
		test.That(t, mat.Inner(h2, E, h1), test.ShouldAlmostEqual, 0, 1e-9)
	}

	// singular values are (1, 1, 0)
	var svd mat.SVD
	test.That(t, svd.Factorize(E, mat.SVDNone), test.ShouldBeTrue)
	values := svd.Values(nil)
	test.That(t, values[0], test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, values[1], test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, values[2], test.ShouldAlmostEqual, 0, 1e-9)

	_, err = ComputeEssentialMatrixAllPoints(x1[:7], x2[:7])
	test.That(t, errors.Is(err, ErrInsufficientCorrespondences), test.ShouldBeTrue)
	_, err = ComputeEssentialMatrixAllPoints(x1[:9], x2[:8])
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecomposeEssentialMatrix(t *testing.T) {
	R := rotationY(-0.1)
	motion := r3.Vector{X: 0.2, Y: 0, Z: 1}
	var E mat.Dense
	E.Mul(skew(motion), R)

	R1, R2, tr, err := DecomposeEssentialMatrix(&E)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, IsRotationMatrix(R1, 1e-9), test.ShouldBeTrue)
	test.That(t, IsRotationMatrix(R2, 1e-9), test.ShouldBeTrue)
	test.That(t, mat.EqualApprox(R1, R, 1e-9) || mat.EqualApprox(R2, R, 1e-9), test.ShouldBeTrue)

	unit := motion.Normalize()
	got := r3.Vector{X: tr.At(0, 0), Y: tr.At(1, 0), Z: tr.At(2, 0)}
	test.That(t, math.Abs(got.Dot(unit)), test.ShouldAlmostEqual, 1, 1e-9)

	poses, err := GetPossibleCameraPoses(&E)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, poses, test.ShouldHaveLength, 4)
	for _, pose := range poses {
		r, c := pose.PoseMat.Dims()
		test.That(t, r, test.ShouldEqual, 3)
		test.That(t, c, test.ShouldEqual, 4)
		r, c = pose.Transform().Dims()
		test.That(t, r, test.ShouldEqual, 4)
		test.That(t, c, test.ShouldEqual, 4)
	}
}

func TestIsRotationMatrix(t *testing.T) {
	test.That(t, IsRotationMatrix(eye(3), 1e-12), test.ShouldBeTrue)
	test.That(t, IsRotationMatrix(rotationY(1.3), 1e-9), test.ShouldBeTrue)

	reflection := eye(3)
	reflection.Set(2, 2, -1)
	test.That(t, IsRotationMatrix(reflection, 1e-9), test.ShouldBeFalse)

	scaled := eye(3)
	scaled.Scale(2, scaled)
	test.That(t, IsRotationMatrix(scaled, 1e-9), test.ShouldBeFalse)
	test.That(t, IsRotationMatrix(eye(4), 1e-9), test.ShouldBeFalse)
}

func TestSampsonDistance(t *testing.T) {
	R := eye(3)
	motion := r3.Vector{X: 1}
	var E mat.Dense
	E.Mul(skew(motion), R)
	var e [9]float64
	copy(e[:], E.RawMatrix().Data)

	// pure x translation: epipolar lines are horizontal
	test.That(t, sampsonDistance(&e, r2.Point{X: 0.1, Y: 0.2}, r2.Point{X: 0.5, Y: 0.2}), test.ShouldAlmostEqual, 0)
	d := sampsonDistance(&e, r2.Point{X: 0.1, Y: 0.2}, r2.Point{X: 0.5, Y: 0.3})
	test.That(t, d, test.ShouldBeGreaterThan, 0)
	test.That(t, math.IsInf(sampsonDistance(&[9]float64{}, r2.Point{}, r2.Point{}), 1), test.ShouldBeTrue)
}
