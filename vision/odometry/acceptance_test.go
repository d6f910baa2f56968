package odometry

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestShouldAcceptMotion(t *testing.T) {
	forward := r3.Vector{X: 0.1, Y: -0.2, Z: 0.97}
	for _, tc := range []struct {
		name      string
		t         r3.Vector
		preferred Axis
		scale     float64
		accept    bool
	}{
		{"disabled accepts anything", forward, AxisNone, 0, true},
		{"disabled accepts sideways motion", r3.Vector{X: 1}, AxisNone, 0.01, true},
		{"dominant preferred axis", forward, AxisZ, 1.2, true},
		{"negative dominant component", r3.Vector{Z: -1}, AxisZ, 1.2, true},
		{"scale at threshold", forward, AxisZ, 0.1, false},
		{"scale below threshold", forward, AxisZ, 0.05, false},
		{"other axis dominant", forward, AxisX, 1.2, false},
		{"tie counts as largest", r3.Vector{X: 0.6, Y: 0.6}, AxisY, 1, true},
		{"invalid axis", forward, Axis(5), 1, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, ShouldAcceptMotion(tc.t, tc.preferred, tc.scale, 0.1), test.ShouldEqual, tc.accept)
		})
	}
}
