package utils

import "github.com/montanaflynn/stats"

// RollingAverage is the mean of a fixed-size window of the most recent samples.
type RollingAverage struct {
	window []float64
	next   int
	filled int
}

// NewRollingAverage returns an empty window of numSamples values, at least one.
func NewRollingAverage(numSamples int) *RollingAverage {
	return &RollingAverage{window: make([]float64, max(numSamples, 1))}
}

// NumSamples returns the window size.
func (ra *RollingAverage) NumSamples() int {
	return len(ra.window)
}

// Add records x, overwriting the oldest sample once the window is full.
func (ra *RollingAverage) Add(x float64) {
	ra.window[ra.next] = x
	ra.next = (ra.next + 1) % len(ra.window)
	ra.filled = min(ra.filled+1, len(ra.window))
}

// Average returns the mean of the recorded samples, or 0 before the first Add.
func (ra *RollingAverage) Average() float64 {
	mean, err := stats.Mean(ra.window[:ra.filled])
	if err != nil {
		return 0
	}
	return mean
}
