// Package odometry estimates the trajectory of a single camera from consecutive frames.
package odometry

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/rimage/transform"
	"go.viam.com/monovo/vision/keypoints"
)

// Motion3D contains the estimated 3D rotation and unit translation between 2 frames, with the
// points triangulated while choosing them.
type Motion3D struct {
	Rotation    *mat.Dense
	Translation *mat.Dense
	// Triangulated is 4xM, homogeneous, in the camera coordinates of the newer frame.
	Triangulated *mat.Dense
	NumInliers   int
}

// TranslationVector returns the translation as a vector.
func (m *Motion3D) TranslationVector() r3.Vector {
	return r3.Vector{X: m.Translation.At(0, 0), Y: m.Translation.At(1, 0), Z: m.Translation.At(2, 0)}
}

// Transform returns the 4x4 transform of the motion, with its translation multiplied by scale.
func (m *Motion3D) Transform(scale float64) *mat.Dense {
	var t mat.Dense
	t.Scale(scale, m.Translation)
	return transform.NewTransform(m.Rotation, &t)
}

// MatchFrames matches the keypoints of frame N+1 (cur) against those of frame N (prev) and returns
// the matched locations, aligned, in that order. Matches follow the keypoint order of prev.
func MatchFrames(cur, prev *keypoints.KeyPointSet, cfg *keypoints.MatchingConfig) ([]r2.Point, []r2.Point, error) {
	if cur.Len() == 0 || prev.Len() == 0 {
		return nil, nil, keypoints.ErrEmptyFeatureSet
	}
	matches, err := keypoints.MatchDescriptors(prev.Descriptors, cur.Descriptors, cfg)
	if err != nil {
		return nil, nil, err
	}
	prevPts, curPts, err := keypoints.GetMatchingKeyPoints(matches, prev.Points, cur.Points)
	if err != nil {
		return nil, nil, err
	}
	return curPts, prevPts, nil
}

// EstimateMotion estimates the motion of the camera from frame N (prevPts) to frame N+1 (curPts).
// The returned [R|t] is the pose of camera N+1 in the coordinates of camera N.
func EstimateMotion(curPts, prevPts []r2.Point, cfg *SolverConfig) (*Motion3D, error) {
	ess, err := transform.FindEssentialMatrix(curPts, prevPts, cfg.CamIntrinsics, *cfg.EssentialCfg)
	if err != nil {
		return nil, err
	}
	pose, err := transform.RecoverPose(ess.E, curPts, prevPts, cfg.CamIntrinsics, ess.Mask, cfg.MaxTriangulationDistance)
	if err != nil {
		return nil, err
	}
	if !transform.IsRotationMatrix(pose.Rotation, 1e-6) {
		return nil, errors.Wrap(ErrInsufficientCorrespondences, "recovered rotation is not a rotation")
	}
	return &Motion3D{
		Rotation:     pose.Rotation,
		Translation:  pose.Translation,
		Triangulated: pose.Triangulated,
		NumInliers:   pose.NumInliers,
	}, nil
}

// EstimateMotionFrom2Frames estimates the 3D motion of the camera from keypoints of frame N (prev)
// to keypoints of frame N+1 (cur). It also returns the number of matches used.
func EstimateMotionFrom2Frames(cur, prev *keypoints.KeyPointSet, cfg *SolverConfig) (*Motion3D, int, error) {
	curPts, prevPts, err := MatchFrames(cur, prev, cfg.MatchingCfg)
	if err != nil {
		return nil, 0, err
	}
	motion, err := EstimateMotion(curPts, prevPts, cfg)
	return motion, len(curPts), err
}
