package utils

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NewSeededRand returns a deterministic generator for the given seed.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SampleNIntegersNormal draws n integers in [vMin, vMax] from a rounded normal centered on the
// interval. Sigma is chosen so that about 97.5% of draws land inside; the rest are redrawn.
func SampleNIntegersNormal(n int, vMin, vMax float64, src rand.Source) []int {
	dist := distuv.Normal{Mu: (vMax + vMin) / 2, Sigma: 0.2236 * (vMax - vMin), Src: src}
	return sampleRounded(n, vMin, vMax, dist.Rand)
}

// SampleNIntegersUniform draws n integers uniformly from [vMin, vMax].
func SampleNIntegersUniform(n int, vMin, vMax float64, src rand.Source) []int {
	dist := distuv.Uniform{Min: vMin, Max: vMax, Src: src}
	return sampleRounded(n, vMin, vMax, dist.Rand)
}

func sampleRounded(n int, vMin, vMax float64, draw func() float64) []int {
	out := make([]int, n)
	for i := range out {
		v := math.Round(draw())
		for v < vMin || v > vMax {
			v = math.Round(draw())
		}
		out[i] = int(v)
	}
	return out
}

// SampleDistinctIndices draws k distinct indices from [0, n) with a partial Fisher-Yates
// shuffle. scratch is reused when it has room for n entries.
func SampleDistinctIndices(rng *rand.Rand, n, k int, scratch []int) []int {
	if cap(scratch) < n {
		scratch = make([]int, n)
	}
	scratch = scratch[:n]
	for i := range scratch {
		scratch[i] = i
	}
	k = min(k, n)
	for i := range k {
		j := i + rng.IntN(n-i)
		scratch[i], scratch[j] = scratch[j], scratch[i]
	}
	return scratch[:k]
}
