package odometry

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/monovo/rimage/transform"
	"go.viam.com/monovo/vision/keypoints"
)

// Axis selects a component of a translation.
type Axis int

const (
	// AxisNone disables the preferred axis check: every motion is accepted.
	AxisNone Axis = -1
	// AxisX is the camera x axis.
	AxisX Axis = 0
	// AxisY is the camera y axis.
	AxisY Axis = 1
	// AxisZ is the camera z (optical) axis.
	AxisZ Axis = 2
)

// String returns the name of the axis.
func (a Axis) String() string {
	switch a {
	case AxisNone:
		return "none"
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "invalid"
	}
}

// AxisFromString parses "none", "x", "y", "z" or the index of the axis.
func AxisFromString(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "-1", "":
		return AxisNone, nil
	case "x", "0":
		return AxisX, nil
	case "y", "1":
		return AxisY, nil
	case "z", "2":
		return AxisZ, nil
	default:
		return AxisNone, errors.Errorf("unknown axis %q", s)
	}
}

// UnmarshalJSON accepts the axis index or its name.
func (a *Axis) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		axis, err := AxisFromString(name)
		if err != nil {
			return err
		}
		*a = axis
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "axis should be a string or an integer")
	}
	*a = Axis(v)
	if !a.valid() {
		return errors.Errorf("unknown axis %d", v)
	}
	return nil
}

func (a Axis) valid() bool {
	return a >= AxisNone && a <= AxisZ
}

// SolverConfig contains the parameters of the visual odometry solver.
type SolverConfig struct {
	KeyPointCfg   *keypoints.ORBConfig               `json:"kps"`
	MatchingCfg   *keypoints.MatchingConfig          `json:"matching"`
	CamIntrinsics *transform.PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	EssentialCfg  *transform.EssentialConfig         `json:"essential"`
	// MaxTriangulationDistance rejects points triangulated further away; <= 0 disables the check.
	MaxTriangulationDistance float64 `json:"max_triangulation_distance"`
	PreferredAxis            Axis    `json:"preferred_axis"`
	// FeatureLimit is the number of matches under which the keypoints of the previous frame are
	// extracted again.
	FeatureLimit int     `json:"feature_limit"`
	MinScale     float64 `json:"min_scale"`
}

// DefaultSolverConfig returns the default solver configuration for a camera.
func DefaultSolverConfig(intrinsics *transform.PinholeCameraIntrinsics) *SolverConfig {
	essential := transform.DefaultEssentialConfig()
	return &SolverConfig{
		KeyPointCfg:              keypoints.DefaultORBConfig(),
		MatchingCfg:              keypoints.DefaultMatchingConfig(),
		CamIntrinsics:            intrinsics,
		EssentialCfg:             &essential,
		MaxTriangulationDistance: 500,
		PreferredAxis:            AxisNone,
		FeatureLimit:             2000,
		MinScale:                 0.1,
	}
}

// LoadSolverConfig loads a SolverConfig from a json file. Fields missing from the file keep their
// default values.
func LoadSolverConfig(path string) (*SolverConfig, error) {
	config := DefaultSolverConfig(nil)
	//nolint:gosec
	configFile, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(config); err != nil {
		return nil, errors.Wrapf(err, "cannot decode %q", path)
	}
	config.fillDefaults()
	return config, nil
}

// fillDefaults replaces sections explicitly set to null with their defaults.
func (config *SolverConfig) fillDefaults() {
	defaults := DefaultSolverConfig(nil)
	if config.KeyPointCfg == nil {
		config.KeyPointCfg = defaults.KeyPointCfg
	}
	if config.MatchingCfg == nil {
		config.MatchingCfg = defaults.MatchingCfg
	}
	if config.EssentialCfg == nil {
		config.EssentialCfg = defaults.EssentialCfg
	}
}

// Validate ensures all parts of the SolverConfig are valid.
func (config *SolverConfig) Validate(path string) error {
	if config.CamIntrinsics == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "intrinsic_parameters")
	}
	if err := config.CamIntrinsics.CheckValid(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if config.KeyPointCfg == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "kps")
	}
	if err := config.KeyPointCfg.Validate(path + ".kps"); err != nil {
		return err
	}
	if config.MatchingCfg == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "matching")
	}
	if err := config.MatchingCfg.Validate(path + ".matching"); err != nil {
		return err
	}
	if config.EssentialCfg == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "essential")
	}
	if err := config.EssentialCfg.Validate(path + ".essential"); err != nil {
		return err
	}
	if math.IsNaN(config.MaxTriangulationDistance) {
		return utils.NewConfigValidationError(path, errors.New("max_triangulation_distance is not a number"))
	}
	if !config.PreferredAxis.valid() {
		return utils.NewConfigValidationError(path, errors.Errorf("preferred_axis should be in [-1, 2], got %d", config.PreferredAxis))
	}
	if config.FeatureLimit < 0 {
		return utils.NewConfigValidationError(path, errors.New("feature_limit should be >= 0"))
	}
	if config.MinScale < 0 || math.IsNaN(config.MinScale) {
		return utils.NewConfigValidationError(path, errors.New("min_scale should be >= 0"))
	}
	return nil
}
