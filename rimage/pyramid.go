package rimage

import (
	"image"
	"math"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ImagePyramid is a stack of progressively downscaled images. Scales[i] is the factor that maps
// level i coordinates back to level 0.
type ImagePyramid struct {
	Images []*image.Gray
	Scales []float64
}

// GetImagePyramid downscales img by scaleFactor per level, stopping early once a level would be
// smaller than minSize pixels on a side.
func GetImagePyramid(img *image.Gray, nLayers int, scaleFactor float64, minSize int) (*ImagePyramid, error) {
	if nLayers < 1 {
		return nil, errors.Errorf("number of layers should be at least 1, got %d", nLayers)
	}
	if nLayers > 1 && scaleFactor <= 1 {
		return nil, errors.Errorf("scale factor should be > 1, got %v", scaleFactor)
	}
	pyramid := &ImagePyramid{
		Images: []*image.Gray{img},
		Scales: []float64{1},
	}
	size := img.Bounds().Size()
	for i := 1; i < nLayers; i++ {
		scale := math.Pow(scaleFactor, float64(i))
		w := int(math.Round(float64(size.X) / scale))
		h := int(math.Round(float64(size.Y) / scale))
		if w < minSize || h < minSize {
			break
		}
		resized := resize.Resize(uint(w), uint(h), img, resize.Bilinear)
		pyramid.Images = append(pyramid.Images, MakeGray(resized))
		pyramid.Scales = append(pyramid.Scales, float64(size.X)/float64(w))
	}
	return pyramid, nil
}
