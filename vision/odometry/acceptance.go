package odometry

import (
	"math"

	"github.com/golang/geo/r3"
)

// component returns the absolute value of the axis component of t.
func component(t r3.Vector, axis Axis) float64 {
	switch axis {
	case AxisX:
		return math.Abs(t.X)
	case AxisY:
		return math.Abs(t.Y)
	case AxisZ:
		return math.Abs(t.Z)
	default:
		return math.NaN()
	}
}

// ShouldAcceptMotion decides whether a new relative motion replaces the one held by the solver.
// With AxisNone every motion is accepted; otherwise the translation has to be at least as large
// along the preferred axis as along the other two, and the scale has to exceed minScale.
func ShouldAcceptMotion(t r3.Vector, preferred Axis, scale, minScale float64) bool {
	if preferred == AxisNone {
		return true
	}
	c := component(t, preferred)
	if math.IsNaN(c) {
		return false
	}
	abs := t.Abs()
	largest := math.Max(abs.X, math.Max(abs.Y, abs.Z))
	return c >= largest && scale > minScale
}
