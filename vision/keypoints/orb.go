package keypoints

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/monovo/rimage"
	"go.viam.com/monovo/vision/keypoints/descriptors"
)

// ORBConfig contains the parameters / configs needed to compute ORB features.
type ORBConfig struct {
	MaxFeatures int          `json:"n_features"`
	Layers      int          `json:"n_layers"`
	ScaleFactor float64      `json:"scale_factor"`
	FastConf    *FASTConfig  `json:"fast"`
	BRIEFConf   *BRIEFConfig `json:"brief"`
}

// DefaultORBConfig returns the configuration of the default extractor: 3500 features over 8
// levels scaled by 1.2.
func DefaultORBConfig() *ORBConfig {
	return &ORBConfig{
		MaxFeatures: 3500,
		Layers:      8,
		ScaleFactor: 1.2,
		FastConf:    DefaultFASTConfig(),
		BRIEFConf:   DefaultBRIEFConfig(),
	}
}

// LoadORBConfiguration loads a ORBConfig from a json file.
func LoadORBConfiguration(file string) (*ORBConfig, error) {
	var config ORBConfig
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

// Validate ensures all parts of the ORBConfig are valid.
func (config *ORBConfig) Validate(path string) error {
	if config.MaxFeatures < 1 {
		return utils.NewConfigValidationError(path, errors.New("n_features should be >= 1"))
	}
	if config.Layers < 1 {
		return utils.NewConfigValidationError(path, errors.New("n_layers should be >= 1"))
	}
	if config.Layers > 1 && config.ScaleFactor <= 1 {
		return utils.NewConfigValidationError(path, errors.New("scale_factor should be greater than 1"))
	}
	if config.FastConf == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "fast")
	}
	if err := config.FastConf.Validate(path + ".fast"); err != nil {
		return err
	}
	if config.BRIEFConf == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "brief")
	}
	return config.BRIEFConf.Validate(path + ".brief")
}

type orbCandidate struct {
	level int
	point image.Point
	score int
}

// ComputeORBKeypoints compute ORB keypoints on gray image. Keypoints are returned in first level
// coordinates, sorted by decreasing FAST score.
func ComputeORBKeypoints(im *image.Gray, sp *SamplePairs, cfg *ORBConfig) (*KeyPointSet, error) {
	if im.Bounds().Min != (image.Point{}) {
		im = rimage.MakeGray(im)
	}
	border := DescriptorBorder(cfg.BRIEFConf.PatchSize)
	pyramid, err := rimage.GetImagePyramid(im, cfg.Layers, cfg.ScaleFactor, 2*border+1)
	if err != nil {
		return nil, err
	}

	var candidates []orbCandidate
	for i, level := range pyramid.Images {
		inner := level.Bounds().Inset(border)
		for _, c := range ComputeFAST(level, cfg.FastConf) {
			if c.Point.In(inner) {
				candidates = append(candidates, orbCandidate{level: i, point: c.Point, score: c.Score})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > cfg.MaxFeatures {
		candidates = candidates[:cfg.MaxFeatures]
	}

	set := &KeyPointSet{
		Points:      make([]r2.Point, len(candidates)),
		Descriptors: make(descriptors.Descriptors, len(candidates)),
		Levels:      make([]int, len(candidates)),
	}
	if cfg.FastConf.Oriented {
		set.Orientations = make([]float64, len(candidates))
	}
	// orientations and descriptors are computed level by level, in level coordinates
	byLevel := make([][]int, len(pyramid.Images))
	for k, c := range candidates {
		byLevel[c.level] = append(byLevel[c.level], k)
	}
	for i, idxs := range byLevel {
		if len(idxs) == 0 {
			continue
		}
		level := pyramid.Images[i]
		fastKps := &FASTKeypoints{Points: make(KeyPoints, len(idxs))}
		for j, k := range idxs {
			fastKps.Points[j] = candidates[k].point
		}
		if cfg.FastConf.Oriented {
			fastKps.Orientations = ComputeKeypointsOrientations(level, fastKps.Points)
		}
		descs, err := ComputeBRIEFDescriptors(level, sp, fastKps, cfg.BRIEFConf)
		if err != nil {
			return nil, err
		}
		rescaled := RescaleKeypoints(fastKps.Points, pyramid.Scales[i])
		for j, k := range idxs {
			set.Points[k] = rescaled[j]
			set.Descriptors[k] = descs[j]
			set.Levels[k] = i
			if fastKps.IsOriented() {
				set.Orientations[k] = fastKps.Orientations[j]
			}
		}
	}
	return set, nil
}

// ORBExtractor is the default Extractor: oriented FAST keypoints with rotated BRIEF descriptors.
type ORBExtractor struct {
	cfg   *ORBConfig
	pairs *SamplePairs
}

// NewORBExtractor validates cfg and draws the BRIEF sample pairs once for every frame.
func NewORBExtractor(cfg *ORBConfig) (*ORBExtractor, error) {
	if cfg == nil {
		cfg = DefaultORBConfig()
	}
	if err := cfg.Validate("kps"); err != nil {
		return nil, err
	}
	b := cfg.BRIEFConf
	return &ORBExtractor{
		cfg:   cfg,
		pairs: GenerateSamplePairs(b.Sampling, b.N, b.PatchSize, b.Seed),
	}, nil
}

// Extract computes ORB keypoints on the gray version of img.
func (e *ORBExtractor) Extract(img image.Image) (*KeyPointSet, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	return ComputeORBKeypoints(rimage.MakeGray(img), e.pairs, e.cfg)
}

// Config returns the extractor configuration.
func (e *ORBExtractor) Config() ORBConfig {
	return *e.cfg
}
