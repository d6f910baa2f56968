package utils

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
)

// HammingDistance computes the number of differing bits between two bit-packed vectors.
func HammingDistance(p1, p2 []uint64) (int, error) {
	if len(p1) != len(p2) {
		return -1, errors.New("must have same length")
	}
	distance := 0
	for i := range p1 {
		distance += bits.OnesCount64(p1[i] ^ p2[i])
	}
	return distance, nil
}

// IsFinite returns true if none of the values is NaN or infinite.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
