package odometry

import (
	"image"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/logging"
	"go.viam.com/monovo/rimage/transform"
	"go.viam.com/monovo/utils"
	"go.viam.com/monovo/vision/keypoints"
	"go.viam.com/monovo/vision/keypoints/descriptors"
)

var testIntrinsics = &transform.PinholeCameraIntrinsics{
	Width:  640,
	Height: 480,
	Fx:     700,
	Fy:     700,
	Ppx:    320,
	Ppy:    240,
}

// synthFrame is a frame of a synthetic scene seen by a camera whose camera-to-world pose is pose.
type synthFrame struct {
	*image.Gray
	pose  *mat.Dense
	empty bool
}

func newSynthFrame(pose *mat.Dense) *synthFrame {
	return &synthFrame{Gray: image.NewGray(image.Rect(0, 0, 1, 1)), pose: pose}
}

// blankFrame has no keypoints at all.
func blankFrame() *synthFrame {
	f := newSynthFrame(cameraPose(0, 0, 0, 0))
	f.empty = true
	return f
}

// sceneExtractor projects world points in synthetic frames; every point has its own descriptor so
// matching is exact.
type sceneExtractor struct {
	points []r3.Vector
	descs  descriptors.Descriptors
	calls  map[image.Image]int
}

func newSceneExtractor(n int, seed uint64) *sceneExtractor {
	rng := utils.NewSeededRand(seed)
	ext := &sceneExtractor{calls: map[image.Image]int{}}
	for i := 0; i < n; i++ {
		ext.points = append(ext.points, r3.Vector{
			X: -15 + 40*rng.Float64(),
			Y: -4 + 8*rng.Float64(),
			Z: 10 + 30*rng.Float64(),
		})
		d := make(descriptors.Descriptor, 4)
		for j := range d {
			d[j] = rng.Uint64()
		}
		ext.descs = append(ext.descs, d)
	}
	return ext
}

func (ext *sceneExtractor) Extract(img image.Image) (*keypoints.KeyPointSet, error) {
	f, ok := img.(*synthFrame)
	if !ok {
		return nil, errors.New("not a synthetic frame")
	}
	ext.calls[img]++
	set := &keypoints.KeyPointSet{}
	if f.empty {
		return set, nil
	}
	for i, p := range ext.points {
		px, ok := testIntrinsics.ProjectPoint(worldToCamera(f.pose, p))
		if !ok || px.X < 0 || px.Y < 0 || px.X >= float64(testIntrinsics.Width) || px.Y >= float64(testIntrinsics.Height) {
			continue
		}
		set.Points = append(set.Points, px)
		set.Descriptors = append(set.Descriptors, ext.descs[i])
	}
	return set, nil
}

func rotationY(angle float64) *mat.Dense {
	c, s := math.Cos(angle), math.Sin(angle)
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

// cameraPose returns the camera-to-world pose of a camera at (x, y, z) turned by yaw about y.
func cameraPose(x, y, z, yaw float64) *mat.Dense {
	return transform.NewTransform(rotationY(yaw), mat.NewDense(3, 1, []float64{x, y, z}))
}

func worldToCamera(pose *mat.Dense, p r3.Vector) r3.Vector {
	d := []float64{p.X - pose.At(0, 3), p.Y - pose.At(1, 3), p.Z - pose.At(2, 3)}
	var out [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			// transposed rotation
			out[i] += pose.At(j, i) * d[j]
		}
	}
	return r3.Vector{X: out[0], Y: out[1], Z: out[2]}
}

// synthSequence is a FrameSource of synthetic frames with ground truth.
type synthSequence struct {
	frames []*synthFrame
}

// straightSequence moves the camera by step at every frame, mostly along +x, while it slowly
// turns about y.
func straightSequence(n int, step float64) *synthSequence {
	const heading = 0.2
	seq := &synthSequence{}
	for i := 0; i < n; i++ {
		d := step * float64(i)
		seq.frames = append(seq.frames, newSynthFrame(cameraPose(d*math.Cos(heading), 0, d*math.Sin(heading), 0.01*float64(i))))
	}
	return seq
}

func (seq *synthSequence) NumFrames() int {
	return len(seq.frames)
}

func (seq *synthSequence) Frame(i int) (image.Image, error) {
	if i < 0 || i >= len(seq.frames) {
		return nil, errors.Errorf("no frame %d", i)
	}
	return seq.frames[i], nil
}

func (seq *synthSequence) GroundTruth(i int) (*mat.Dense, bool) {
	if i < 0 || i >= len(seq.frames) {
		return nil, false
	}
	return seq.frames[i].pose, true
}

func newTestSolver(t *testing.T, ext keypoints.Extractor, edit func(*SolverConfig)) *Solver {
	t.Helper()
	cfg := DefaultSolverConfig(testIntrinsics)
	if edit != nil {
		edit(cfg)
	}
	solver, err := NewSolver(cfg, logging.NewTestLogger(t), WithExtractor(ext))
	test.That(t, err, test.ShouldBeNil)
	return solver
}

func rotationBlock(pose mat.Matrix) mat.Matrix {
	return mat.DenseCopyOf(pose).Slice(0, 3, 0, 3)
}

func relativeMotion(from, to *mat.Dense) *mat.Dense {
	var inv, rel mat.Dense
	if err := inv.Inverse(from); err != nil {
		panic(err)
	}
	rel.Mul(&inv, to)
	return &rel
}
