package odometry

import (
	"github.com/pkg/errors"

	"go.viam.com/monovo/rimage/transform"
	"go.viam.com/monovo/vision/keypoints"
)

var (
	// ErrInsufficientCorrespondences is returned when too few matches are left to estimate a motion.
	ErrInsufficientCorrespondences = transform.ErrInsufficientCorrespondences
	// ErrEmptyFeatureSet is returned when a frame has no keypoints. It is also an
	// ErrInsufficientCorrespondences.
	ErrEmptyFeatureSet = keypoints.ErrEmptyFeatureSet
	// ErrDegenerateScale is returned when the scale cannot be computed from triangulated points.
	ErrDegenerateScale = errors.New("degenerate scale")
	// ErrNotInitialized is returned when the solver is used before Setup succeeded.
	ErrNotInitialized = errors.New("visual odometry solver is not set up")
)

// IsRecoverable reports whether err only affects the current frame.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInsufficientCorrespondences) || errors.Is(err, ErrDegenerateScale)
}
