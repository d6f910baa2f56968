package odometry

import (
	"image"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/logging"
	"go.viam.com/monovo/rimage/transform"
	"go.viam.com/monovo/vision/keypoints"
)

// SolverOption configures a Solver.
type SolverOption func(*Solver)

// WithExtractor replaces the ORB extractor built from the configuration.
func WithExtractor(extractor keypoints.Extractor) SolverOption {
	return func(s *Solver) {
		s.extractor = extractor
	}
}

// StepResult is what a call to Step produces.
type StepResult struct {
	// Frame counts the frames processed since Setup; the second setup frame is frame 1.
	Frame int
	Pose  *mat.Dense
	// Triangulated is a copy of the points of the last recovered motion, 4xM, homogeneous.
	Triangulated *mat.Dense
	// Scale is the scale resolved for this frame, whether or not the motion was accepted.
	Scale      float64
	Accepted   bool
	NumMatches int
	NumInliers int
	// Degraded holds the recoverable errors of the frame. The held motion was reused for the
	// ones preventing a new motion.
	Degraded error
}

// Solver accumulates the motion of a camera over a sequence of frames. It is not safe for
// concurrent use; frames must be given in order.
type Solver struct {
	cfg       *SolverConfig
	logger    logging.Logger
	extractor keypoints.Extractor

	initialized bool
	frame       int
	pose        *mat.Dense
	prevFrame   image.Image
	prevKps     *keypoints.KeyPointSet
	// rotation and translation are the held motion; translation carries its scale.
	rotation     *mat.Dense
	translation  *mat.Dense
	triangulated *mat.Dense
	lastScale    float64
}

// NewSolver returns an uninitialized solver for cfg.
func NewSolver(cfg *SolverConfig, logger logging.Logger, opts ...SolverOption) (*Solver, error) {
	if cfg == nil {
		return nil, errors.New("solver config is required")
	}
	if err := cfg.Validate("solver"); err != nil {
		return nil, err
	}
	s := &Solver{cfg: cfg, logger: logger, lastScale: 1}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractor == nil {
		extractor, err := keypoints.NewORBExtractor(cfg.KeyPointCfg)
		if err != nil {
			return nil, err
		}
		s.extractor = extractor
	}
	return s, nil
}

func (s *Solver) reset() {
	s.initialized = false
	s.frame = 0
	s.pose = nil
	s.prevFrame = nil
	s.prevKps = nil
	s.rotation = nil
	s.translation = nil
	s.triangulated = nil
	s.lastScale = 1
}

func (s *Solver) extract(frame image.Image) (*keypoints.KeyPointSet, error) {
	if frame == nil {
		return nil, errors.New("nil frame")
	}
	return s.extractor.Extract(frame)
}

// Setup starts a new sequence from its first two frames. The pose of frame0 is initialPose
// (identity when nil) and the pose after Setup is initialPose composed with the unit motion
// from frame0 to frame1. Any previous state is discarded; on error the solver is left
// uninitialized.
func (s *Solver) Setup(frame0, frame1 image.Image, initialPose mat.Matrix) error {
	s.reset()
	start := eye(4)
	if initialPose != nil {
		if r, c := initialPose.Dims(); r != 4 || c != 4 {
			return errors.Errorf("initial pose should be 4x4, got %dx%d", r, c)
		}
		start = mat.DenseCopyOf(initialPose)
	}
	kps0, err := s.extract(frame0)
	if err != nil {
		return errors.Wrap(err, "cannot extract keypoints of first frame")
	}
	kps1, err := s.extract(frame1)
	if err != nil {
		return errors.Wrap(err, "cannot extract keypoints of second frame")
	}
	motion, nMatches, err := EstimateMotionFrom2Frames(kps1, kps0, s.cfg)
	if err != nil {
		return errors.Wrap(err, "cannot estimate the initial motion")
	}

	var pose mat.Dense
	pose.Mul(start, motion.Transform(1))
	s.pose = &pose
	s.rotation = mat.DenseCopyOf(motion.Rotation)
	s.translation = mat.DenseCopyOf(motion.Translation)
	s.triangulated = motion.Triangulated
	s.prevFrame = frame1
	s.prevKps = kps1
	s.frame = 1
	s.initialized = true
	s.logger.Debugw("visual odometry set up", "matches", nMatches, "inliers", motion.NumInliers)
	return nil
}

// Step processes the next frame, resolving the scale from triangulated points.
func (s *Solver) Step(frame image.Image) (*StepResult, error) {
	return s.step(frame, math.NaN(), false)
}

// StepWithScale processes the next frame with a known scale, typically the distance travelled
// according to ground truth.
func (s *Solver) StepWithScale(frame image.Image, scale float64) (*StepResult, error) {
	if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, errors.Errorf("scale should be a finite non-negative number, got %v", scale)
	}
	return s.step(frame, scale, true)
}

func (s *Solver) step(frame image.Image, scale float64, external bool) (*StepResult, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	kps, err := s.extract(frame)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot extract keypoints of frame %d", s.frame+1)
	}
	res := &StepResult{Frame: s.frame + 1}

	curPts, prevPts, err := MatchFrames(kps, s.prevKps, s.cfg.MatchingCfg)
	res.NumMatches = len(curPts)
	var motion *Motion3D
	if err == nil {
		motion, err = EstimateMotion(curPts, prevPts, s.cfg)
	}
	if err != nil {
		if !IsRecoverable(err) {
			return nil, err
		}
		res.Degraded = multierr.Append(res.Degraded, err)
	}

	if !external {
		scale = s.lastScale
		if motion != nil {
			ratio, err := ComputeScaleRatio(motion.Transform(1), s.triangulated)
			if err == nil {
				scale = ratio
			} else {
				res.Degraded = multierr.Append(res.Degraded, err)
			}
		}
	}
	res.Scale = scale
	s.lastScale = scale

	if motion != nil {
		res.NumInliers = motion.NumInliers
		res.Accepted = ShouldAcceptMotion(motion.TranslationVector(), s.cfg.PreferredAxis, scale, s.cfg.MinScale)
		if res.Accepted {
			s.rotation = mat.DenseCopyOf(motion.Rotation)
			var t mat.Dense
			t.Scale(scale, motion.Translation)
			s.translation = &t
		}
		s.triangulated = motion.Triangulated
	}

	var pose mat.Dense
	pose.Mul(s.pose, transform.NewTransform(s.rotation, s.translation))
	s.pose = &pose
	s.frame = res.Frame

	s.prevFrame = frame
	s.prevKps = kps
	if res.NumMatches < s.cfg.FeatureLimit {
		fresh, err := s.extract(s.prevFrame)
		if err != nil {
			res.Degraded = multierr.Append(res.Degraded, errors.Wrap(err, "cannot replenish keypoints"))
		} else {
			s.prevKps = fresh
		}
	}

	res.Pose = mat.DenseCopyOf(s.pose)
	if s.triangulated != nil {
		res.Triangulated = mat.DenseCopyOf(s.triangulated)
	}
	if res.Degraded != nil {
		s.logger.Warnw("reusing previous motion", "frame", s.frame, "error", res.Degraded)
	}
	s.logger.Debugw("frame processed",
		"frame", s.frame,
		"matches", res.NumMatches,
		"inliers", res.NumInliers,
		"scale", res.Scale,
		"accepted", res.Accepted,
	)
	return res, nil
}

// Initialized reports whether Setup succeeded.
func (s *Solver) Initialized() bool {
	return s.initialized
}

// Pose returns a copy of the current absolute pose.
func (s *Solver) Pose() (*mat.Dense, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return mat.DenseCopyOf(s.pose), nil
}

// Position returns the position of the camera, the pose applied to Origin.
func (s *Solver) Position() (r3.Vector, error) {
	pose, err := s.Pose()
	if err != nil {
		return r3.Vector{}, err
	}
	return PosePosition(pose), nil
}

// Triangulated returns a copy of the points of the last recovered motion.
func (s *Solver) Triangulated() (*mat.Dense, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	if s.triangulated == nil {
		return nil, nil
	}
	return mat.DenseCopyOf(s.triangulated), nil
}

// LastScale returns the scale resolved at the last step, 1 before any step.
func (s *Solver) LastScale() float64 {
	return s.lastScale
}

// Origin returns the homogeneous origin of the camera frame.
func Origin() *mat.VecDense {
	return mat.NewVecDense(4, []float64{0, 0, 0, 1})
}

// PosePosition returns the translation of a 4x4 pose, the world position of its origin.
func PosePosition(pose mat.Matrix) r3.Vector {
	var p mat.VecDense
	p.MulVec(pose, Origin())
	return r3.Vector{X: p.AtVec(0), Y: p.AtVec(1), Z: p.AtVec(2)}
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
