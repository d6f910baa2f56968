package utils

import (
	"image"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestParallelForEachPixel(t *testing.T) {
	for _, size := range []image.Point{{0, 0}, {1, 1}, {3, 7}, {64, 48}} {
		var count atomic.Int64
		var sum atomic.Int64
		ParallelForEachPixel(size, func(x, y int) {
			count.Add(1)
			sum.Add(int64(y*size.X + x))
		})
		n := int64(size.X * size.Y)
		test.That(t, count.Load(), test.ShouldEqual, n)
		// every pixel visited exactly once
		test.That(t, sum.Load(), test.ShouldEqual, n*(n-1)/2)
	}
}
