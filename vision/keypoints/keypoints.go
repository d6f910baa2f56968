// Package keypoints contains the implementation of keypoints in an image. For now:
// - FAST keypoints
// - BRIEF descriptors
// - ORB keypoints (oriented FAST + rotated BRIEF over an image pyramid)
// - LSH and brute force descriptor matching with a ratio test.
package keypoints

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/monovo/rimage"
	"go.viam.com/monovo/rimage/transform"
	"go.viam.com/monovo/vision/keypoints/descriptors"
)

// ErrEmptyFeatureSet is returned when a frame yields no keypoints to match. It is a kind of
// transform.ErrInsufficientCorrespondences.
var ErrEmptyFeatureSet = errors.Wrap(transform.ErrInsufficientCorrespondences, "empty feature set")

// KeyPoints is a slice of image.Point that contains several kps.
type KeyPoints []image.Point

// KeyPointSet is the output of an Extractor: keypoint locations in the input image frame and one
// descriptor per keypoint.
type KeyPointSet struct {
	Points       []r2.Point
	Descriptors  descriptors.Descriptors
	Orientations []float64
	// Levels holds the pyramid level each keypoint was detected at.
	Levels []int
}

// Len returns the number of keypoints in the set.
func (kps *KeyPointSet) Len() int {
	if kps == nil {
		return 0
	}
	return len(kps.Points)
}

// Extractor detects keypoints and computes their descriptors in an image. Implementations are
// deterministic: the same pixels always give the same set.
type Extractor interface {
	Extract(img image.Image) (*KeyPointSet, error)
}

// orientationRadius is the radius of the disc over which keypoint orientations are computed.
const orientationRadius = 15

// computeMaskOrientationFAST creates the mask used to compute orientations of corners: the half
// width of each row of a disc of radius 15.
func computeMaskOrientationFAST() []int {
	return []int{15, 15, 15, 15, 14, 14, 14, 13, 13, 12, 11, 10, 9, 8, 6, 3}
}

// ComputeKeypointsOrientations returns the intensity centroid angle of each keypoint, computed on a
// disc of radius 15. Pixels of the disc outside the image are ignored.
func ComputeKeypointsOrientations(img *image.Gray, kps KeyPoints) []float64 {
	mask := computeMaskOrientationFAST()
	bounds := img.Bounds()
	orientations := make([]float64, len(kps))
	for i, kp := range kps {
		m01, m10 := 0, 0
		for dy := -orientationRadius; dy <= orientationRadius; dy++ {
			y := kp.Y + dy
			if y < bounds.Min.Y || y >= bounds.Max.Y {
				continue
			}
			halfWidth := mask[int(math.Abs(float64(dy)))]
			rowSum := 0
			for dx := -halfWidth; dx <= halfWidth; dx++ {
				x := kp.X + dx
				if x < bounds.Min.X || x >= bounds.Max.X {
					continue
				}
				v := int(img.GrayAt(x, y).Y)
				m10 += v * dx
				rowSum += v
			}
			m01 += rowSum * dy
		}
		orientations[i] = math.Atan2(float64(m01), float64(m10))
	}
	return orientations
}

// RescaleKeypoints maps keypoints of a pyramid level back to the coordinates of the first level.
func RescaleKeypoints(kps KeyPoints, scale float64) []r2.Point {
	out := make([]r2.Point, len(kps))
	for i, kp := range kps {
		out[i] = r2.Point{X: float64(kp.X) * scale, Y: float64(kp.Y) * scale}
	}
	return out
}

// PlotKeypoints plots keypoints on image.
func PlotKeypoints(img image.Image, kps []r2.Point, outName string) error {
	bounds := img.Bounds()
	dc := gg.NewContext(bounds.Dx(), bounds.Dy())
	dc.DrawImage(img, -bounds.Min.X, -bounds.Min.Y)
	for _, p := range kps {
		rimage.DrawCircle(dc, image.Point{int(math.Round(p.X)), int(math.Round(p.Y))}, 3, color.RGBA{0, 0, 255, 128}, 1)
	}
	return dc.SavePNG(outName)
}
