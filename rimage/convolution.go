package rimage

import (
	"image"

	"go.viam.com/monovo/utils"
)

// ConvolveGray filters img with kernel. anchor is the kernel cell written back to each output
// pixel; the image is padded with border so the output keeps img's size.
//
//	blurred, err := ConvolveGray(img, kernel, image.Point{1, 1}, BorderReflect)
func ConvolveGray(img *image.Gray, kernel *Kernel, anchor image.Point, border BorderPad) (*image.Gray, error) {
	ksize := kernel.Size()
	padded, err := PaddingGray(img, ksize, anchor, border)
	if err != nil {
		return nil, err
	}
	size := img.Bounds().Size()
	out := image.NewGray(image.Rectangle{Max: size})
	utils.ParallelForEachPixel(size, func(x, y int) {
		var acc float64
		for ky := 0; ky < ksize.Y; ky++ {
			row := padded.Pix[padded.PixOffset(x, y+ky):]
			for kx := 0; kx < ksize.X; kx++ {
				acc += float64(row[kx]) * kernel.At(kx, ky)
			}
		}
		out.Pix[out.PixOffset(x, y)] = uint8(utils.ClampF64(acc+0.5, 0, 255))
	})
	return out, nil
}

// GaussianBlurGray smooths img with a normalized size x size gaussian, reflecting at the borders.
func GaussianBlurGray(img *image.Gray, size int, sigma float64) (*image.Gray, error) {
	kernel, err := GetGaussianKernel(size, sigma)
	if err != nil {
		return nil, err
	}
	center := image.Point{size / 2, size / 2}
	return ConvolveGray(img, kernel, center, BorderReflect)
}
