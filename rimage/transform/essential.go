package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	rutils "go.viam.com/monovo/utils"
)

// EssentialConfig controls the robust essential matrix fit.
type EssentialConfig struct {
	// Confidence is the desired probability that at least one drawn sample is outlier free.
	Confidence float64 `json:"confidence"`
	// ThresholdPx is the maximum Sampson distance, in pixels, of an inlier.
	ThresholdPx   float64 `json:"threshold_px"`
	MaxIterations int     `json:"max_iterations"`
	Seed          uint64  `json:"seed"`
}

// DefaultEssentialConfig returns the configuration used when none is given.
func DefaultEssentialConfig() EssentialConfig {
	return EssentialConfig{
		Confidence:    0.9999,
		ThresholdPx:   1.0,
		MaxIterations: 1000,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *EssentialConfig) Validate(path string) error {
	if cfg.Confidence <= 0 || cfg.Confidence >= 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("confidence must be in (0, 1), got %v", cfg.Confidence))
	}
	if cfg.ThresholdPx <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("threshold_px must be positive, got %v", cfg.ThresholdPx))
	}
	if cfg.MaxIterations < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_iterations must be at least 1, got %d", cfg.MaxIterations))
	}
	return nil
}

// EssentialResult is the output of FindEssentialMatrix.
type EssentialResult struct {
	E          *mat.Dense
	Mask       []bool
	NumInliers int
}

// FindEssentialMatrix robustly estimates the essential matrix relating two sets of matched pixels
// seen by a camera with the given intrinsics, such that x2^T E x1 = 0 for the normalized
// coordinates x1 of pts1[i] and x2 of pts2[i]. Hypotheses come from the normalized eight point
// algorithm on random samples; the best one is refit on its inliers. The same inputs and seed
// always give the same result.
func FindEssentialMatrix(
	pts1, pts2 []r2.Point,
	intrinsics *PinholeCameraIntrinsics,
	cfg EssentialConfig,
) (*EssentialResult, error) {
	if len(pts1) != len(pts2) {
		return nil, errors.Errorf("point sets must have the same length, got %d and %d", len(pts1), len(pts2))
	}
	if len(pts1) < minEightPoints {
		return nil, errors.Wrapf(ErrInsufficientCorrespondences, "need at least %d points, got %d", minEightPoints, len(pts1))
	}
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	if err := cfg.Validate("essential"); err != nil {
		return nil, err
	}

	x1 := intrinsics.NormalizePixels(pts1)
	x2 := intrinsics.NormalizePixels(pts2)
	threshold := cfg.ThresholdPx / intrinsics.FocalMean()
	threshold *= threshold

	n := len(x1)
	rng := rutils.NewSeededRand(cfg.Seed)
	sample1 := make([]r2.Point, minEightPoints)
	sample2 := make([]r2.Point, minEightPoints)
	var scratch []int

	var best *mat.Dense
	bestInliers := 0
	maxIterations := cfg.MaxIterations
	for iter := 0; iter < maxIterations; iter++ {
		idx := rutils.SampleDistinctIndices(rng, n, minEightPoints, scratch)
		scratch = idx[:cap(idx)]
		for i, j := range idx {
			sample1[i] = x1[j]
			sample2[i] = x2[j]
		}
		model, err := ComputeEssentialMatrixAllPoints(sample1, sample2)
		if err != nil {
			continue
		}
		count := countInliers(model, x1, x2, threshold, nil)
		if count > bestInliers {
			best = model
			bestInliers = count
			maxIterations = adaptiveIterations(cfg.Confidence, float64(count)/float64(n), cfg.MaxIterations)
		}
		if bestInliers == n {
			break
		}
	}
	if best == nil || bestInliers < minEightPoints {
		return nil, errors.Wrap(ErrInsufficientCorrespondences, "no consistent essential matrix")
	}

	mask := make([]bool, n)
	countInliers(best, x1, x2, threshold, mask)
	in1 := make([]r2.Point, 0, bestInliers)
	in2 := make([]r2.Point, 0, bestInliers)
	for i, ok := range mask {
		if ok {
			in1 = append(in1, x1[i])
			in2 = append(in2, x2[i])
		}
	}
	if refit, err := ComputeEssentialMatrixAllPoints(in1, in2); err == nil {
		refitMask := make([]bool, n)
		if count := countInliers(refit, x1, x2, threshold, refitMask); count >= bestInliers {
			best, bestInliers, mask = refit, count, refitMask
		}
	}
	if !isFiniteDense(best) {
		return nil, errors.Wrap(ErrInsufficientCorrespondences, "essential matrix is not finite")
	}
	return &EssentialResult{E: best, Mask: mask, NumInliers: bestInliers}, nil
}

// countInliers returns the number of correspondences within threshold of the model, filling mask
// when it is not nil.
func countInliers(model *mat.Dense, x1, x2 []r2.Point, threshold float64, mask []bool) int {
	var e [9]float64
	copy(e[:], model.RawMatrix().Data)
	count := 0
	for i := range x1 {
		ok := sampsonDistance(&e, x1[i], x2[i]) <= threshold
		if ok {
			count++
		}
		if mask != nil {
			mask[i] = ok
		}
	}
	return count
}

// adaptiveIterations returns the number of samples needed to draw an outlier free one with the
// given confidence when a fraction inlierRatio of the data are inliers.
func adaptiveIterations(confidence, inlierRatio float64, maxIterations int) int {
	if inlierRatio >= 1 {
		return 1
	}
	outlierFree := math.Pow(inlierRatio, minEightPoints)
	if outlierFree <= 0 {
		return maxIterations
	}
	denom := math.Log(1 - outlierFree)
	if denom >= 0 {
		return maxIterations
	}
	iters := math.Ceil(math.Log(1-confidence) / denom)
	if math.IsNaN(iters) || iters > float64(maxIterations) {
		return maxIterations
	}
	return int(iters)
}
