package keypoints

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// FASTConfig holds the parameters of the FAST corner detector.
type FASTConfig struct {
	// Threshold is the intensity difference a circle pixel needs to count as brighter or darker.
	Threshold      int  `json:"threshold"`
	NMatchesCircle int  `json:"n_matches_circle"`
	NMSWinSize     int  `json:"nms_win_size"`
	Oriented       bool `json:"oriented"`
}

// FASTPixel is a detected corner and its score.
type FASTPixel struct {
	Point image.Point
	Score int
}

// FASTKeypoints stores keypoint locations, scores and orientations (nil if not oriented).
type FASTKeypoints struct {
	Points       KeyPoints
	Scores       []int
	Orientations []float64
}

var (
	// CrossIdx are the 4 compass points of the FAST circle.
	CrossIdx = []image.Point{{0, -3}, {3, 0}, {0, 3}, {-3, 0}}
	// CircleIdx is the Bresenham circle of radius 3 used by FAST, clockwise from the top.
	CircleIdx = []image.Point{
		{0, -3}, {1, -3}, {2, -2}, {3, -1},
		{3, 0}, {3, 1}, {2, 2}, {1, 3},
		{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
		{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
	}
)

// fastRadius is the radius of the FAST circle.
const fastRadius = 3

// DefaultFASTConfig returns the FAST-9 configuration used by the ORB extractor.
func DefaultFASTConfig() *FASTConfig {
	return &FASTConfig{
		Threshold:      20,
		NMatchesCircle: 9,
		NMSWinSize:     3,
		Oriented:       true,
	}
}

// LoadFASTConfiguration loads a FASTConfig from a json file.
func LoadFASTConfiguration(file string) (*FASTConfig, error) {
	var config FASTConfig
	//nolint:gosec
	configFile, err := os.Open(filepath.Clean(file))
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "cannot decode %q", file)
	}
	if err := config.Validate(file); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate ensures all parts of the FASTConfig are valid.
func (config *FASTConfig) Validate(path string) error {
	if config.Threshold < 1 || config.Threshold > 255 {
		return utils.NewConfigValidationError(path, errors.New("threshold should be in [1, 255]"))
	}
	if config.NMatchesCircle < 1 || config.NMatchesCircle > len(CircleIdx) {
		return utils.NewConfigValidationError(path, errors.Errorf("n_matches_circle should be in [1, %d]", len(CircleIdx)))
	}
	if config.NMSWinSize < 1 || config.NMSWinSize%2 == 0 {
		return utils.NewConfigValidationError(path, errors.New("nms_win_size should be a positive odd number"))
	}
	return nil
}

// GetPointValuesInNeighborhood returns the values of the pixels at the given offsets of pt.
func GetPointValuesInNeighborhood(img *image.Gray, pt image.Point, neighborhood []image.Point) []float64 {
	vals := make([]float64, len(neighborhood))
	for i, offset := range neighborhood {
		vals[i] = float64(img.GrayAt(pt.X+offset.X, pt.Y+offset.Y).Y)
	}
	return vals
}

// isValidSliceVals returns true if s contains at least n consecutive non-zero values, wrapping
// around the end of the slice.
func isValidSliceVals(s []float64, n int) bool {
	if n <= 0 {
		return true
	}
	run := 0
	for i := 0; i < 2*len(s); i++ {
		if s[i%len(s)] > 0 {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// getBrighterValues returns 1 where s is strictly above t and 0 elsewhere.
func getBrighterValues(s []float64, t float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		if v > t {
			out[i] = 1
		}
	}
	return out
}

// getDarkerValues returns 1 where s is strictly below t and 0 elsewhere.
func getDarkerValues(s []float64, t float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		if v < t {
			out[i] = 1
		}
	}
	return out
}

func sumOfPositiveValuesSlice(s []float64) float64 {
	sum := 0.
	for _, v := range s {
		if v > 0 {
			sum += v
		}
	}
	return sum
}

func sumOfNegativeValuesSlice(s []float64) float64 {
	sum := 0.
	for _, v := range s {
		if v < 0 {
			sum += v
		}
	}
	return sum
}

// fastScore returns the FAST score of a pixel of value p with circle values vals: the larger of
// the summed brighter and darker differences beyond the threshold. It is 0 when the pixel is not
// a corner.
func fastScore(p float64, vals []float64, cfg *FASTConfig) int {
	t := float64(cfg.Threshold)
	brighter := isValidSliceVals(getBrighterValues(vals, p+t), cfg.NMatchesCircle)
	darker := isValidSliceVals(getDarkerValues(vals, p-t), cfg.NMatchesCircle)
	if !brighter && !darker {
		return 0
	}
	diffs := make([]float64, len(vals))
	for i, v := range vals {
		switch {
		case v > p+t:
			diffs[i] = v - p - t
		case v < p-t:
			diffs[i] = v - p + t
		}
	}
	score := sumOfPositiveValuesSlice(diffs)
	if neg := -sumOfNegativeValuesSlice(diffs); neg > score {
		score = neg
	}
	return int(score)
}

// passesCrossTest quickly rejects pixels that cannot have a long enough arc: an arc of 9 or more
// circle pixels always contains at least 2 of the 4 compass points.
func passesCrossTest(img *image.Gray, pt image.Point, cfg *FASTConfig) bool {
	if cfg.NMatchesCircle < 9 {
		return true
	}
	p := float64(img.GrayAt(pt.X, pt.Y).Y)
	t := float64(cfg.Threshold)
	nBright, nDark := 0, 0
	for _, v := range GetPointValuesInNeighborhood(img, pt, CrossIdx) {
		if v > p+t {
			nBright++
		} else if v < p-t {
			nDark++
		}
	}
	return nBright >= 2 || nDark >= 2
}

// ComputeFAST computes the location of FAST corners in the image, after non maximum suppression
// of their scores. Pixels closer than the circle radius to the border are never corners. The
// result is in raster order.
func ComputeFAST(img *image.Gray, cfg *FASTConfig) []FASTPixel {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 2*fastRadius || h <= 2*fastRadius {
		return nil
	}
	scores := make([]int, w*h)
	for y := bounds.Min.Y + fastRadius; y < bounds.Max.Y-fastRadius; y++ {
		for x := bounds.Min.X + fastRadius; x < bounds.Max.X-fastRadius; x++ {
			pt := image.Point{x, y}
			if !passesCrossTest(img, pt, cfg) {
				continue
			}
			p := float64(img.GrayAt(x, y).Y)
			scores[(y-bounds.Min.Y)*w+(x-bounds.Min.X)] = fastScore(p, GetPointValuesInNeighborhood(img, pt, CircleIdx), cfg)
		}
	}

	half := cfg.NMSWinSize / 2
	var corners []FASTPixel
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := scores[y*w+x]
			if s == 0 || !isLocalMax(scores, w, h, x, y, half) {
				continue
			}
			corners = append(corners, FASTPixel{Point: image.Point{x + bounds.Min.X, y + bounds.Min.Y}, Score: s})
		}
	}
	return corners
}

// isLocalMax returns true if the score at (x, y) is strictly greater than the scores of the
// earlier pixels of its window and not smaller than the later ones, so plateaus keep one pixel.
func isLocalMax(scores []int, w, h, x, y, half int) bool {
	s := scores[y*w+x]
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			xx, yy := x+dx, y+dy
			if (dx == 0 && dy == 0) || xx < 0 || yy < 0 || xx >= w || yy >= h {
				continue
			}
			other := scores[yy*w+xx]
			before := dy < 0 || (dy == 0 && dx < 0)
			if other > s || (before && other == s) {
				return false
			}
		}
	}
	return true
}

// NewFASTKeypointsFromImage computes FAST keypoints in img, and their orientations when the
// config asks for them.
func NewFASTKeypointsFromImage(img *image.Gray, cfg *FASTConfig) *FASTKeypoints {
	corners := ComputeFAST(img, cfg)
	kps := &FASTKeypoints{
		Points: make(KeyPoints, len(corners)),
		Scores: make([]int, len(corners)),
	}
	for i, c := range corners {
		kps.Points[i] = c.Point
		kps.Scores[i] = c.Score
	}
	if cfg.Oriented {
		kps.Orientations = ComputeKeypointsOrientations(img, kps.Points)
	}
	return kps
}

// IsOriented returns true if FASTKeypoints contains orientations.
func (kps *FASTKeypoints) IsOriented() bool {
	return kps.Orientations != nil
}
