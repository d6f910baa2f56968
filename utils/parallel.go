package utils

import (
	"image"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelForEachPixel calls f once for every (x, y) inside size. Rows are split into one
// contiguous band per processor. f must be safe for concurrent use on distinct pixels.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	if size.X <= 0 || size.Y <= 0 {
		return
	}
	bands := min(runtime.GOMAXPROCS(0), size.Y)
	rowsPerBand := (size.Y + bands - 1) / bands

	var wg sync.WaitGroup
	for top := 0; top < size.Y; top += rowsPerBand {
		bottom := min(top+rowsPerBand, size.Y)
		wg.Add(1)
		utils.PanicCapturingGo(func() {
			defer wg.Done()
			for y := top; y < bottom; y++ {
				for x := 0; x < size.X; x++ {
					f(x, y)
				}
			}
		})
	}
	wg.Wait()
}
