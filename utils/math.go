package utils

import "math"

// ClampF64 restricts n to [lo, hi].
func ClampF64(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(n, hi))
}
