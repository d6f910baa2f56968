package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// BorderPad selects how pixels outside the image are filled.
type BorderPad int

const (
	// BorderConstant pads with zeros.
	BorderConstant BorderPad = iota
	// BorderReplicate repeats the edge pixel: aaa|abcd|ddd.
	BorderReplicate
	// BorderReflect mirrors around the edge pixel: cb|abcd|cb.
	BorderReflect
)

// PaddingGray pads a gray image so that a kernel of size kernelSize anchored at anchor can be
// applied at every pixel of the original image.
func PaddingGray(img *image.Gray, kernelSize, anchor image.Point, border BorderPad) (*image.Gray, error) {
	if anchor.X < 0 || anchor.Y < 0 || anchor.X >= kernelSize.X || anchor.Y >= kernelSize.Y {
		return nil, errors.Errorf("anchor %v outside of kernel of size %v", anchor, kernelSize)
	}
	switch border {
	case BorderConstant, BorderReplicate, BorderReflect:
	default:
		return nil, errors.Errorf("unknown border padding %d", border)
	}
	rect := img.Bounds()
	w, h := rect.Dx(), rect.Dy()
	left, top := anchor.X, anchor.Y
	padded := image.NewGray(image.Rect(0, 0, w+kernelSize.X-1, h+kernelSize.Y-1))
	for y := 0; y < padded.Rect.Dy(); y++ {
		for x := 0; x < padded.Rect.Dx(); x++ {
			sx, okX := borderIndex(x-left, w, border)
			sy, okY := borderIndex(y-top, h, border)
			if !okX || !okY {
				continue
			}
			padded.SetGray(x, y, color.Gray{img.GrayAt(rect.Min.X+sx, rect.Min.Y+sy).Y})
		}
	}
	return padded, nil
}

// borderIndex maps an out of range coordinate back into [0, n). The bool is false for constant
// padding outside the image.
func borderIndex(i, n int, border BorderPad) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch border {
	case BorderReplicate:
		if i < 0 {
			return 0, true
		}
		return n - 1, true
	case BorderReflect:
		if n == 1 {
			return 0, true
		}
		period := 2 * (n - 1)
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - i
		}
		return i, true
	case BorderConstant:
		return 0, false
	default:
		return 0, false
	}
}
