package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CamPose stores the 3x4 pose matrix as well as the 3D Rotation and Translation matrices.
type CamPose struct {
	PoseMat     *mat.Dense
	Rotation    *mat.Dense
	Translation *mat.Dense
}

// NewCamPose creates a camera pose [R|t] from a rotation and a translation.
func NewCamPose(rotation, translation *mat.Dense) *CamPose {
	var pose mat.Dense
	pose.Augment(rotation, translation)
	return &CamPose{
		PoseMat:     &pose,
		Rotation:    mat.DenseCopyOf(rotation),
		Translation: mat.DenseCopyOf(translation),
	}
}

// Transform returns the 4x4 homogeneous transform of the pose.
func (cp *CamPose) Transform() *mat.Dense {
	return NewTransform(cp.Rotation, cp.Translation)
}

// GetPossibleCameraPoses computes all 4 possible poses from the essential matrix.
func GetPossibleCameraPoses(essMat *mat.Dense) ([]*CamPose, error) {
	R1, R2, t, err := DecomposeEssentialMatrix(essMat)
	if err != nil {
		return nil, err
	}
	var tOpp mat.Dense
	tOpp.Scale(-1, t)
	return []*CamPose{
		NewCamPose(R1, t),
		NewCamPose(R1, &tOpp),
		NewCamPose(R2, t),
		NewCamPose(R2, &tOpp),
	}, nil
}

// TriangulatePoint computes the homogeneous 3D point seen at x1 by the camera [I|0] and at x2 by
// the camera pose, both in normalized image coordinates, with the linear (DLT) method. The result
// is scaled so that its last coordinate is 1 whenever it is not at infinity.
func TriangulatePoint(pose *mat.Dense, x1, x2 r2.Point) (r3.Vector, float64, error) {
	row := func(p float64, P mat.Matrix, r int) []float64 {
		out := make([]float64, 4)
		for j := 0; j < 4; j++ {
			out[j] = p*P.At(2, j) - P.At(r, j)
		}
		return out
	}
	P := mat.NewDense(3, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	})
	A := mat.NewDense(4, 4, nil)
	A.SetRow(0, row(x1.X, P, 0))
	A.SetRow(1, row(x1.Y, P, 1))
	A.SetRow(2, row(x2.X, pose, 0))
	A.SetRow(3, row(x2.Y, pose, 1))

	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDFull); !ok {
		return r3.Vector{}, 0, errors.New("failed to factorize A")
	}
	var V mat.Dense
	svd.VTo(&V)
	X := mat.Col(nil, 3, &V)
	w := X[3]
	if w != 0 {
		X[0], X[1], X[2], w = X[0]/w, X[1]/w, X[2]/w, 1
	}
	return r3.Vector{X: X[0], Y: X[1], Z: X[2]}, w, nil
}

// cheiralityCheck returns the homogeneous triangulated points of the masked correspondences and
// which of them lie in front of both cameras, closer than maxDistance.
func cheiralityCheck(pose *CamPose, x1, x2 []r2.Point, mask []bool, maxDistance float64) ([]r3.Vector, []bool, int) {
	pts := make([]r3.Vector, len(x1))
	good := make([]bool, len(x1))
	count := 0
	for i := range x1 {
		if mask != nil && !mask[i] {
			continue
		}
		X, w, err := TriangulatePoint(pose.PoseMat, x1[i], x2[i])
		if err != nil || w == 0 {
			continue
		}
		pts[i] = X
		depth1 := X.Z
		depth2 := pose.Rotation.At(2, 0)*X.X + pose.Rotation.At(2, 1)*X.Y + pose.Rotation.At(2, 2)*X.Z +
			pose.Translation.At(2, 0)
		if depth1 > 0 && depth2 > 0 && depth1 < maxDistance && depth2 < maxDistance {
			good[i] = true
			count++
		}
	}
	return pts, good, count
}

// RecoveredPose is the motion selected from an essential matrix.
type RecoveredPose struct {
	NumInliers  int
	Rotation    *mat.Dense
	Translation *mat.Dense
	// Mask marks the correspondences supporting the chosen motion.
	Mask []bool
	// Triangulated holds one homogeneous point (4xM) per supporting correspondence, in the
	// camera coordinates of the first point set.
	Triangulated *mat.Dense
}

// TranslationVector returns the translation as a vector.
func (rp *RecoveredPose) TranslationVector() r3.Vector {
	return r3.Vector{X: rp.Translation.At(0, 0), Y: rp.Translation.At(1, 0), Z: rp.Translation.At(2, 0)}
}

// RecoverPose picks, among the four motions encoded by E, the one that places the most masked
// correspondences in front of both cameras and closer than maxDistance. pts1 and pts2 are pixels
// in the same order as given to FindEssentialMatrix; a nil mask uses every correspondence.
//
// The returned [R|t] maps coordinates of the first camera into the second: X2 = R X1 + t. When
// pts1 comes from frame N+1 and pts2 from frame N, [R|t] is therefore the pose of camera N+1 in
// camera N and a camera moving towards +x gives t along +x.
func RecoverPose(
	essMat *mat.Dense,
	pts1, pts2 []r2.Point,
	intrinsics *PinholeCameraIntrinsics,
	mask []bool,
	maxDistance float64,
) (*RecoveredPose, error) {
	if len(pts1) != len(pts2) {
		return nil, errors.Errorf("point sets must have the same length, got %d and %d", len(pts1), len(pts2))
	}
	if mask != nil && len(mask) != len(pts1) {
		return nil, errors.Errorf("mask has %d entries for %d points", len(mask), len(pts1))
	}
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	if maxDistance <= 0 {
		maxDistance = math.Inf(1)
	}
	poses, err := GetPossibleCameraPoses(essMat)
	if err != nil {
		return nil, err
	}
	x1 := intrinsics.NormalizePixels(pts1)
	x2 := intrinsics.NormalizePixels(pts2)

	bestCount := 0
	var bestPose *CamPose
	var bestPts []r3.Vector
	var bestGood []bool
	for _, pose := range poses {
		pts, good, count := cheiralityCheck(pose, x1, x2, mask, maxDistance)
		if count > bestCount {
			bestCount, bestPose, bestPts, bestGood = count, pose, pts, good
		}
	}
	if bestPose == nil {
		return nil, errors.Wrap(ErrInsufficientCorrespondences, "no motion places points in front of both cameras")
	}

	triangulated := mat.NewDense(4, bestCount, nil)
	col := 0
	for i, ok := range bestGood {
		if !ok {
			continue
		}
		triangulated.SetCol(col, []float64{bestPts[i].X, bestPts[i].Y, bestPts[i].Z, 1})
		col++
	}
	return &RecoveredPose{
		NumInliers:   bestCount,
		Rotation:     bestPose.Rotation,
		Translation:  bestPose.Translation,
		Mask:         bestGood,
		Triangulated: triangulated,
	}, nil
}

// NewTransform builds the 4x4 homogeneous transform [[R t], [0 1]].
func NewTransform(rotation, translation mat.Matrix) *mat.Dense {
	T := eye(4)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			T.Set(i, j, rotation.At(i, j))
		}
		T.Set(i, 3, translation.At(i, 0))
	}
	return T
}

// IsRotationMatrix reports whether R is orthonormal with determinant +1, within tol.
func IsRotationMatrix(R mat.Matrix, tol float64) bool {
	if r, c := R.Dims(); r != 3 || c != 3 {
		return false
	}
	var rrt mat.Dense
	rrt.Mul(R, R.T())
	if !mat.EqualApprox(&rrt, eye(3), tol) {
		return false
	}
	return math.Abs(mat.Det(R)-1) <= tol
}
