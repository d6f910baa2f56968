package keypoints

import (
	"encoding/json"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	uts "go.viam.com/utils"

	"go.viam.com/monovo/rimage"
	"go.viam.com/monovo/utils"
	"go.viam.com/monovo/vision/keypoints/descriptors"
)

// SamplingType is the distribution the BRIEF test locations are drawn from.
type SamplingType int

const (
	// Uniform draws the test locations uniformly in the patch.
	Uniform SamplingType = iota
	// Normal draws the test locations from a gaussian centered on the keypoint.
	Normal
)

// String returns the json name of the sampling type.
func (s SamplingType) String() string {
	switch s {
	case Uniform:
		return "uniform"
	case Normal:
		return "normal"
	default:
		return "unknown"
	}
}

// UnmarshalJSON accepts either the name of the sampling type or its integer value.
func (s *SamplingType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		switch strings.ToLower(name) {
		case "uniform":
			*s = Uniform
		case "normal", "gaussian":
			*s = Normal
		default:
			return errors.Errorf("unknown sampling type %q", name)
		}
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "sampling should be a string or an integer")
	}
	if v != int(Uniform) && v != int(Normal) {
		return errors.Errorf("unknown sampling type %d", v)
	}
	*s = SamplingType(v)
	return nil
}

// MarshalJSON writes the sampling type as its name.
func (s SamplingType) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// SamplePairs are N pairs of points used to create the BRIEF Descriptors of a patch.
type SamplePairs struct {
	P0 []image.Point
	P1 []image.Point
	N  int
}

// sampleHalfRange is the largest offset of a test location from the keypoint.
func sampleHalfRange(patchSize int) int {
	return patchSize/2 - 2
}

// DescriptorBorder returns the minimum distance from the image border a keypoint needs for all of
// its (possibly rotated) test locations to fall inside the image.
func DescriptorBorder(patchSize int) int {
	return int(math.Ceil(float64(sampleHalfRange(patchSize))*math.Sqrt2)) + 1
}

// GenerateSamplePairs generates n samples for a patch size with the chosen Sampling Type. The same
// seed always gives the same pairs.
func GenerateSamplePairs(dist SamplingType, n, patchSize int, seed uint64) *SamplePairs {
	src := utils.NewSeededRand(seed)
	h := float64(sampleHalfRange(patchSize))
	sample := func() []int {
		if dist == Normal {
			return utils.SampleNIntegersNormal(n, -h, h, src)
		}
		return utils.SampleNIntegersUniform(n, -h, h, src)
	}
	xs0, ys0, xs1, ys1 := sample(), sample(), sample(), sample()
	p0 := make([]image.Point, 0, n)
	p1 := make([]image.Point, 0, n)
	for i := 0; i < n; i++ {
		p0 = append(p0, image.Point{X: xs0[i], Y: ys0[i]})
		p1 = append(p1, image.Point{X: xs1[i], Y: ys1[i]})
	}
	return &SamplePairs{P0: p0, P1: p1, N: n}
}

// BRIEFConfig stores the parameters.
type BRIEFConfig struct {
	N              int          `json:"n"` // number of samples taken
	Sampling       SamplingType `json:"sampling"`
	UseOrientation bool         `json:"use_orientation"`
	PatchSize      int          `json:"patch_size"`
	Seed           uint64       `json:"seed"`
}

// DefaultBRIEFConfig returns a 256 bits oriented BRIEF configuration on 31x31 patches.
func DefaultBRIEFConfig() *BRIEFConfig {
	return &BRIEFConfig{
		N:              256,
		Sampling:       Normal,
		UseOrientation: true,
		PatchSize:      31,
	}
}

// LoadBRIEFConfiguration loads a BRIEFConfig from a json file.
func LoadBRIEFConfiguration(file string) (*BRIEFConfig, error) {
	var config BRIEFConfig
	//nolint:gosec
	configFile, err := os.Open(filepath.Clean(file))
	if err != nil {
		return nil, err
	}
	defer uts.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "cannot decode %q", file)
	}
	if err := config.Validate(file); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate ensures all parts of the BRIEFConfig are valid.
func (config *BRIEFConfig) Validate(path string) error {
	if config.N <= 0 || config.N%64 != 0 {
		return uts.NewConfigValidationError(path, errors.New("n should be a positive multiple of 64"))
	}
	if config.PatchSize < 7 {
		return uts.NewConfigValidationError(path, errors.New("patch_size should be >= 7"))
	}
	return nil
}

// briefBlurSize and briefBlurSigma define the smoothing applied before the binary tests.
const (
	briefBlurSize  = 7
	briefBlurSigma = 2.
)

// ComputeBRIEFDescriptors computes BRIEF descriptors on image img at keypoints kps. Keypoints
// closer to the border than DescriptorBorder get an all-zero descriptor; callers are expected to
// filter them out first.
func ComputeBRIEFDescriptors(img *image.Gray, sp *SamplePairs, kps *FASTKeypoints, cfg *BRIEFConfig) (descriptors.Descriptors, error) {
	if sp.N != cfg.N {
		return nil, errors.Errorf("got %d sample pairs for %d bits descriptors", sp.N, cfg.N)
	}
	if kps.Orientations != nil && len(kps.Orientations) != len(kps.Points) {
		return nil, errors.Errorf("got %d orientations for %d keypoints", len(kps.Orientations), len(kps.Points))
	}
	blurred, err := rimage.GaussianBlurGray(img, briefBlurSize, briefBlurSigma)
	if err != nil {
		return nil, err
	}
	// blurred starts at the origin
	bnd := img.Bounds()
	border := DescriptorBorder(cfg.PatchSize)
	inner := image.Rect(bnd.Min.X+border, bnd.Min.Y+border, bnd.Max.X-border, bnd.Max.Y-border)

	descs := make(descriptors.Descriptors, len(kps.Points))
	for k, kp := range kps.Points {
		// we store a descriptor as a uint64 array
		descriptor := make(descriptors.Descriptor, sp.N/64)
		descs[k] = descriptor
		if !kp.In(inner) {
			continue
		}
		cosTheta := 1.0
		sinTheta := 0.0
		if cfg.UseOrientation && kps.IsOriented() {
			sinTheta, cosTheta = math.Sincos(kps.Orientations[k])
		}
		for i := 0; i < sp.N; i++ {
			x0, y0 := float64(sp.P0[i].X), float64(sp.P0[i].Y)
			x1, y1 := float64(sp.P1[i].X), float64(sp.P1[i].Y)
			// rotated test locations (identity without orientation)
			outx0 := int(math.Round(cosTheta*x0 - sinTheta*y0))
			outy0 := int(math.Round(sinTheta*x0 + cosTheta*y0))
			outx1 := int(math.Round(cosTheta*x1 - sinTheta*y1))
			outy1 := int(math.Round(sinTheta*x1 + cosTheta*y1))
			x, y := kp.X-bnd.Min.X, kp.Y-bnd.Min.Y
			p0Val := blurred.GrayAt(x+outx0, y+outy0).Y
			p1Val := blurred.GrayAt(x+outx1, y+outy1).Y
			if p0Val > p1Val {
				descriptor.SetBit(i)
			}
		}
	}
	return descs, nil
}
