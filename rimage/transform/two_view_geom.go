package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/utils"
)

// ErrInsufficientCorrespondences is returned when a two-view model cannot be estimated from the
// given point pairs, either because there are too few of them or because no consistent and
// finite model exists.
var ErrInsufficientCorrespondences = errors.New("insufficient correspondences")

// minEightPoints is the number of correspondences the linear eight point algorithm needs.
const minEightPoints = 8

// DecomposeEssentialMatrix factors E = U diag(1,1,0) V^T into the two rotations U W V^T and
// U W^T V^T and the translation direction u3, the last column of U. The four candidate motions are
// (R1, t), (R1, -t), (R2, t) and (R2, -t).
func DecomposeEssentialMatrix(essMat *mat.Dense) (*mat.Dense, *mat.Dense, *mat.Dense, error) {
	u, vt, ok := properSVD(essMat)
	if !ok {
		return nil, nil, nil, errors.New("failed to factorize essential matrix")
	}
	w := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		-1, 0, 0,
		0, 0, 1,
	})
	var r1, r2 mat.Dense
	r1.Product(u, w, vt)
	r2.Product(u, w.T(), vt)
	t := mat.NewDense(3, 1, mat.Col(nil, 2, u))
	return &r1, &r2, t, nil
}

// ComputeEssentialMatrixAllPoints fits an essential matrix to normalized image coordinates with
// the normalized eight point algorithm, such that pts2[i]^T E pts1[i] = 0. The singular values of
// the result are forced to (1, 1, 0).
func ComputeEssentialMatrixAllPoints(pts1, pts2 []r2.Point) (*mat.Dense, error) {
	if len(pts1) != len(pts2) {
		return nil, errors.New("sets of points pts1 and pts2 must have the same number of elements")
	}
	if len(pts1) < minEightPoints {
		return nil, errors.Wrapf(ErrInsufficientCorrespondences, "need at least %d points, got %d", minEightPoints, len(pts1))
	}
	points1, T1, err := normalizePoints(pts1)
	if err != nil {
		return nil, err
	}
	points2, T2, err := normalizePoints(pts2)
	if err != nil {
		return nil, err
	}

	m := mat.NewDense(len(points1), 9, nil)
	for i := range points1 {
		v1 := points1[i]
		v2 := points2[i]
		m.SetRow(i, []float64{
			v2.X * v1.X, v2.X * v1.Y, v2.X,
			v2.Y * v1.X, v2.Y * v1.Y, v2.Y,
			v1.X, v1.Y, 1,
		})
	}
	e, err := nullVector(m)
	if err != nil {
		return nil, err
	}
	E := mat.NewDense(3, 3, e)

	// undo the normalization: T2^T @ E @ T1
	E.Mul(T2.T(), E)
	E.Mul(E, T1)

	return projectToEssentialSpace(E)
}

// projectToEssentialSpace replaces the singular values of m by (1, 1, 0).
func projectToEssentialSpace(m *mat.Dense) (*mat.Dense, error) {
	u, vt, ok := properSVD(m)
	if !ok {
		return nil, errors.Wrap(ErrInsufficientCorrespondences, "failed to factorize essential matrix")
	}
	var E mat.Dense
	E.Product(u, mat.NewDiagDense(3, []float64{1, 1, 0}), vt)
	if !isFiniteDense(&E) {
		return nil, errors.Wrap(ErrInsufficientCorrespondences, "essential matrix is not finite")
	}
	return &E, nil
}

// nullVector returns the right singular vector of m associated to its smallest singular value.
func nullVector(m *mat.Dense) ([]float64, error) {
	rows, cols := m.Dims()
	kind := mat.SVDThin
	if rows < cols {
		kind = mat.SVDFull
	}
	var svd mat.SVD
	if ok := svd.Factorize(m, kind); !ok {
		return nil, errors.Wrap(ErrInsufficientCorrespondences, "failed to factorize the constraint matrix")
	}
	var V mat.Dense
	svd.VTo(&V)
	return mat.Col(nil, cols-1, &V), nil
}

// sampsonDistance returns the squared first order geometric error of the correspondence x1 <-> x2
// with respect to E, stored row major.
func sampsonDistance(e *[9]float64, x1, x2 r2.Point) float64 {
	ex1 := [3]float64{
		e[0]*x1.X + e[1]*x1.Y + e[2],
		e[3]*x1.X + e[4]*x1.Y + e[5],
		e[6]*x1.X + e[7]*x1.Y + e[8],
	}
	etx2 := [2]float64{
		e[0]*x2.X + e[3]*x2.Y + e[6],
		e[1]*x2.X + e[4]*x2.Y + e[7],
	}
	num := x2.X*ex1[0] + x2.Y*ex1[1] + ex1[2]
	den := ex1[0]*ex1[0] + ex1[1]*ex1[1] + etx2[0]*etx2[0] + etx2[1]*etx2[1]
	if den <= 0 {
		return math.Inf(1)
	}
	return num * num / den
}

// normalizePoints moves the centroid of pts to the origin and scales them so their mean distance
// to it is sqrt(2) (Hartley normalization). T maps homogeneous inputs to the returned points.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense, error) {
	var centroid r2.Point
	for _, pt := range pts {
		centroid = centroid.Add(pt)
	}
	centroid = centroid.Mul(1 / float64(len(pts)))

	var spread float64
	for _, pt := range pts {
		spread += pt.Sub(centroid).Norm()
	}
	spread /= float64(len(pts))
	if spread == 0 || !utils.IsFinite(spread) {
		return nil, nil, errors.Wrap(ErrInsufficientCorrespondences, "points are degenerate")
	}

	s := math.Sqrt2 / spread
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		out[i] = pt.Sub(centroid).Mul(s)
	}
	T := mat.NewDense(3, 3, []float64{
		s, 0, -s * centroid.X,
		0, s, -s * centroid.Y,
		0, 0, 1,
	})
	return out, T, nil
}

// eye returns the n x n identity.
func eye(n int) *mat.Dense {
	id := mat.NewDense(n, n, nil)
	for i := range n {
		id.Set(i, i, 1)
	}
	return id
}

func isFiniteDense(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := range r {
		for j := range c {
			if !utils.IsFinite(m.At(i, j)) {
				return false
			}
		}
	}
	return true
}

// properSVD returns the full SVD factors U and V^T of a 3x3 matrix with both negated as needed so
// that det(U) = det(V^T) = 1.
func properSVD(m mat.Matrix) (u, vt *mat.Dense, ok bool) {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return nil, nil, false
	}
	var uu, vv mat.Dense
	svd.UTo(&uu)
	svd.VTo(&vv)
	if mat.Det(&uu) < 0 {
		uu.Scale(-1, &uu)
	}
	vt = mat.DenseCopyOf(vv.T())
	if mat.Det(vt) < 0 {
		vt.Scale(-1, vt)
	}
	return &uu, vt, true
}
