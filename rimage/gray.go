package rimage

import (
	"image"
	"image/draw"
)

// SameImgSize compares images to see if they're the same size.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Size() == g2.Bounds().Size()
}

// MakeGray converts any image to an image.Gray whose bounds start at the origin. The input is
// never modified or aliased.
func MakeGray(pic image.Image) *image.Gray {
	bounds := pic.Bounds()
	result := image.NewGray(image.Rectangle{Max: bounds.Size()})
	if gray, ok := pic.(*image.Gray); ok {
		for y := 0; y < bounds.Dy(); y++ {
			start := gray.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(result.Pix[y*result.Stride:y*result.Stride+bounds.Dx()], gray.Pix[start:start+bounds.Dx()])
		}
		return result
	}
	draw.Draw(result, result.Bounds(), pic, bounds.Min, draw.Src)
	return result
}
