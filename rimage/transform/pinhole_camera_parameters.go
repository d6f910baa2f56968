package transform

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrNoIntrinsics is returned when camera intrinsics are missing or unusable.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// PinholeCameraIntrinsics describes an undistorted pinhole camera. JSON keys follow the solver
// config file.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid reports the first unusable parameter, wrapped around ErrNoIntrinsics.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return errors.Wrap(ErrNoIntrinsics, "nil intrinsics")
	}
	switch {
	case params.Width <= 0 || params.Height <= 0:
		return errors.Wrapf(ErrNoIntrinsics, "image size %dx%d", params.Width, params.Height)
	case params.Fx <= 0 || params.Fy <= 0:
		return errors.Wrapf(ErrNoIntrinsics, "focal lengths fx=%v fy=%v", params.Fx, params.Fy)
	case params.Ppx < 0 || params.Ppy < 0:
		return errors.Wrapf(ErrNoIntrinsics, "principal point (%v, %v)", params.Ppx, params.Ppy)
	}
	return nil
}

// NormalizePixel applies the inverse camera matrix to a pixel.
func (params *PinholeCameraIntrinsics) NormalizePixel(pt r2.Point) r2.Point {
	return r2.Point{X: (pt.X - params.Ppx) / params.Fx, Y: (pt.Y - params.Ppy) / params.Fy}
}

// NormalizePixels is NormalizePixel over a slice.
func (params *PinholeCameraIntrinsics) NormalizePixels(pts []r2.Point) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		out[i] = params.NormalizePixel(pt)
	}
	return out
}

// ProjectPoint maps a camera-frame point to its unrounded pixel. ok is false for points at or
// behind the optical center.
func (params *PinholeCameraIntrinsics) ProjectPoint(pt r3.Vector) (px r2.Point, ok bool) {
	if pt.Z <= 0 {
		return r2.Point{X: -1, Y: -1}, false
	}
	return r2.Point{X: params.Fx*pt.X/pt.Z + params.Ppx, Y: params.Fy*pt.Y/pt.Z + params.Ppy}, true
}

// FocalMean is the average focal length, used to turn pixel thresholds into normalized units.
func (params *PinholeCameraIntrinsics) FocalMean() float64 {
	return (params.Fx + params.Fy) / 2
}
