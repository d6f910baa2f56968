package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/utils"
)

var testIntrinsics = &PinholeCameraIntrinsics{
	Width:  640,
	Height: 480,
	Fx:     700,
	Fy:     700,
	Ppx:    320,
	Ppy:    240,
}

// rotationY returns a rotation of angle radians about the y axis.
func rotationY(angle float64) *mat.Dense {
	c, s := math.Cos(angle), math.Sin(angle)
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

func skew(t r3.Vector) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -t.Z, t.Y,
		t.Z, 0, -t.X,
		-t.Y, t.X, 0,
	})
}

func applyMotion(R *mat.Dense, t r3.Vector, p r3.Vector) r3.Vector {
	return r3.Vector{
		X: R.At(0, 0)*p.X + R.At(0, 1)*p.Y + R.At(0, 2)*p.Z + t.X,
		Y: R.At(1, 0)*p.X + R.At(1, 1)*p.Y + R.At(1, 2)*p.Z + t.Y,
		Z: R.At(2, 0)*p.X + R.At(2, 1)*p.Y + R.At(2, 2)*p.Z + t.Z,
	}
}

// syntheticScene returns n random points in the coordinates of camera 1, and their pixels in
// camera 1 and in camera 2, where X2 = R X1 + t.
func syntheticScene(n int, R *mat.Dense, t r3.Vector, seed uint64) ([]r3.Vector, []r2.Point, []r2.Point) {
	rng := utils.NewSeededRand(seed)
	points := make([]r3.Vector, 0, n)
	pts1 := make([]r2.Point, 0, n)
	pts2 := make([]r2.Point, 0, n)
	for len(points) < n {
		p := r3.Vector{
			X: -4 + 8*rng.Float64(),
			Y: -3 + 6*rng.Float64(),
			Z: 5 + 15*rng.Float64(),
		}
		px1, ok1 := testIntrinsics.ProjectPoint(p)
		px2, ok2 := testIntrinsics.ProjectPoint(applyMotion(R, t, p))
		if !ok1 || !ok2 {
			continue
		}
		points = append(points, p)
		pts1 = append(pts1, px1)
		pts2 = append(pts2, px2)
	}
	return points, pts1, pts2
}

// sameUpToSign compares two matrices after normalizing them to unit Frobenius norm.
func sameUpToSign(a, b mat.Matrix, tol float64) bool {
	var an, bn, neg mat.Dense
	an.Scale(1/mat.Norm(a, 2), a)
	bn.Scale(1/mat.Norm(b, 2), b)
	neg.Scale(-1, &bn)
	return mat.EqualApprox(&an, &bn, tol) || mat.EqualApprox(&an, &neg, tol)
}
