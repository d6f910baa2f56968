package keypoints

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/monovo/vision/keypoints/descriptors"
)

// MatchingAlgorithm selects the nearest neighbor search used by the matcher.
type MatchingAlgorithm string

const (
	// LSH is the approximate search over an LSHIndex.
	LSH MatchingAlgorithm = "lsh"
	// BruteForce compares every pair of descriptors.
	BruteForce MatchingAlgorithm = "brute_force"
)

// MatchingConfig contains the parameters for matching descriptors.
type MatchingConfig struct {
	Algorithm       MatchingAlgorithm `json:"algorithm"`
	TableNumber     int               `json:"table_number"`
	KeySize         int               `json:"key_size"`
	MultiProbeLevel int               `json:"multi_probe_level"`
	// Checks caps the number of distinct candidates compared per query; <= 0 means no cap.
	Checks int     `json:"checks"`
	Ratio  float64 `json:"ratio"`
	K      int     `json:"k"`
	Seed   uint64  `json:"seed"`
}

// DefaultMatchingConfig returns the LSH matcher with a 0.5 ratio test.
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		Algorithm:       LSH,
		TableNumber:     6,
		KeySize:         12,
		MultiProbeLevel: 1,
		Checks:          50,
		Ratio:           0.5,
		K:               2,
	}
}

// LoadMatchingConfiguration loads a MatchingConfig from a json file.
func LoadMatchingConfiguration(file string) (*MatchingConfig, error) {
	var config MatchingConfig
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

// Validate ensures all parts of the MatchingConfig are valid.
func (config *MatchingConfig) Validate(path string) error {
	switch config.Algorithm {
	case LSH:
		if config.TableNumber < 1 {
			return utils.NewConfigValidationError(path, errors.New("table_number should be >= 1"))
		}
		if config.KeySize < 1 || config.KeySize > maxLSHKeySize {
			return utils.NewConfigValidationError(path, errors.Errorf("key_size should be in [1, %d]", maxLSHKeySize))
		}
		if config.MultiProbeLevel < 0 || config.MultiProbeLevel > config.KeySize {
			return utils.NewConfigValidationError(path, errors.New("multi_probe_level should be in [0, key_size]"))
		}
	case BruteForce:
	case "":
		return utils.NewConfigValidationFieldRequiredError(path, "algorithm")
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown algorithm %q", config.Algorithm))
	}
	if config.K < 2 {
		return utils.NewConfigValidationError(path, errors.New("k should be >= 2 for the ratio test"))
	}
	if config.Ratio <= 0 || config.Ratio > 1 {
		return utils.NewConfigValidationError(path, errors.New("ratio should be in (0, 1]"))
	}
	return nil
}

// DescriptorMatch contains the index of a match in the first and second set of descriptors, and
// the hamming distance between them.
type DescriptorMatch struct {
	Idx1     int
	Idx2     int
	Distance int
}

// DescriptorMatches is a list of matches.
type DescriptorMatches []DescriptorMatch

func checkDescriptorSets(desc1, desc2 descriptors.Descriptors) error {
	if err := descriptors.CheckUniformLength(desc1); err != nil {
		return err
	}
	if err := descriptors.CheckUniformLength(desc2); err != nil {
		return err
	}
	if len(desc1) > 0 && len(desc2) > 0 && len(desc1[0]) != len(desc2[0]) {
		return errors.Errorf("descriptors of %d and %d bits cannot be compared", desc1[0].NBits(), desc2[0].NBits())
	}
	return nil
}

// nearestNeighbors returns the k train descriptors closest to q among cands, or among all of
// train when cands is nil, by increasing distance then index.
func nearestNeighbors(qi int, q descriptors.Descriptor, train descriptors.Descriptors, cands []int, k int) ([]DescriptorMatch, error) {
	best := make([]DescriptorMatch, 0, k+1)
	consider := func(j int) error {
		d, err := descriptors.HammingDistance(q, train[j])
		if err != nil {
			return err
		}
		m := DescriptorMatch{Idx1: qi, Idx2: j, Distance: d}
		pos := len(best)
		for pos > 0 && closerMatch(m, best[pos-1]) {
			pos--
		}
		if pos >= k {
			return nil
		}
		best = append(best, DescriptorMatch{})
		copy(best[pos+1:], best[pos:])
		best[pos] = m
		if len(best) > k {
			best = best[:k]
		}
		return nil
	}
	if cands == nil {
		for j := range train {
			if err := consider(j); err != nil {
				return nil, err
			}
		}
		return best, nil
	}
	for _, j := range cands {
		if err := consider(j); err != nil {
			return nil, err
		}
	}
	return best, nil
}

func closerMatch(a, b DescriptorMatch) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Idx2 < b.Idx2
}

// KnnMatch returns, for every query descriptor, its k nearest train descriptors by brute force.
func KnnMatch(query, train descriptors.Descriptors, k int) ([][]DescriptorMatch, error) {
	if err := checkDescriptorSets(query, train); err != nil {
		return nil, err
	}
	if k < 1 {
		return nil, errors.Errorf("k should be >= 1, got %d", k)
	}
	out := make([][]DescriptorMatch, len(query))
	for i, q := range query {
		nn, err := nearestNeighbors(i, q, train, nil, k)
		if err != nil {
			return nil, err
		}
		out[i] = nn
	}
	return out, nil
}

// MatchDescriptors matches desc1 against desc2 and keeps a match only when its distance is below
// cfg.Ratio times the distance of the second nearest neighbor. Matches follow the order of desc1.
func MatchDescriptors(desc1, desc2 descriptors.Descriptors, cfg *MatchingConfig) (DescriptorMatches, error) {
	if cfg == nil {
		cfg = DefaultMatchingConfig()
	}
	if len(desc1) == 0 || len(desc2) == 0 {
		return DescriptorMatches{}, nil
	}
	var knn [][]DescriptorMatch
	var err error
	switch cfg.Algorithm {
	case BruteForce:
		knn, err = KnnMatch(desc1, desc2, cfg.K)
	default:
		var idx *LSHIndex
		idx, err = NewLSHIndex(desc2, cfg.TableNumber, cfg.KeySize, cfg.MultiProbeLevel, cfg.Seed)
		if err != nil {
			return nil, err
		}
		knn, err = idx.KnnSearch(desc1, cfg.K, cfg.Checks)
	}
	if err != nil {
		return nil, err
	}
	matches := make(DescriptorMatches, 0, len(knn))
	for _, nn := range knn {
		if len(nn) < 2 {
			continue
		}
		if float64(nn[0].Distance) < cfg.Ratio*float64(nn[1].Distance) {
			matches = append(matches, nn[0])
		}
	}
	return matches, nil
}

// GetMatchingKeyPoints takes the matches and the keypoints and returns the corresponding keypoints that are matched.
func GetMatchingKeyPoints(matches DescriptorMatches, kps1, kps2 []r2.Point) ([]r2.Point, []r2.Point, error) {
	matchedKps1 := make([]r2.Point, len(matches))
	matchedKps2 := make([]r2.Point, len(matches))
	for i, match := range matches {
		if match.Idx1 < 0 || match.Idx1 >= len(kps1) {
			return nil, nil, errors.Errorf("match %d refers to keypoint %d of %d in first set", i, match.Idx1, len(kps1))
		}
		if match.Idx2 < 0 || match.Idx2 >= len(kps2) {
			return nil, nil, errors.Errorf("match %d refers to keypoint %d of %d in second set", i, match.Idx2, len(kps2))
		}
		matchedKps1[i] = kps1[match.Idx1]
		matchedKps2[i] = kps2[match.Idx2]
	}
	return matchedKps1, matchedKps2, nil
}
