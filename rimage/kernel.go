package rimage

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// Kernel is a convolution matrix indexed as Content[y][x].
type Kernel struct {
	Content [][]float64
	Height  int
	Width   int
}

// NewKernel returns a zero kernel of the given size.
func NewKernel(width, height int) (*Kernel, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("kernel size must be positive, got %dx%d", width, height)
	}
	content := make([][]float64, height)
	for i := range content {
		content[i] = make([]float64, width)
	}
	return &Kernel{Content: content, Height: height, Width: width}, nil
}

// Size returns the kernel width and height as a point.
func (k *Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// At returns the value at column x, row y.
func (k *Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// Sum returns the sum of all the kernel entries.
func (k *Kernel) Sum() float64 {
	sum := 0.
	for _, row := range k.Content {
		for _, v := range row {
			sum += v
		}
	}
	return sum
}

// Normalize returns a copy of the kernel whose entries sum to 1. Kernels summing to 0 are
// returned unchanged.
func (k *Kernel) Normalize() *Kernel {
	normalized, _ := NewKernel(k.Width, k.Height)
	sum := k.Sum()
	if sum == 0 {
		sum = 1
	}
	for y := 0; y < k.Height; y++ {
		for x := 0; x < k.Width; x++ {
			normalized.Content[y][x] = k.Content[y][x] / sum
		}
	}
	return normalized
}

// GaussianFunction2D takes in a sigma and returns an isotropic 2D gaussian.
func GaussianFunction2D(sigma float64) func(p1, p2 float64) float64 {
	if sigma <= 0. {
		return func(p1, p2 float64) float64 {
			return 1.
		}
	}
	return func(p1, p2 float64) float64 {
		return math.Exp(-0.5*(p1*p1+p2*p2)/(sigma*sigma)) / (sigma * sigma * 2. * math.Pi)
	}
}

// GetGaussianKernel returns a normalized size x size gaussian kernel. size must be odd.
func GetGaussianKernel(size int, sigma float64) (*Kernel, error) {
	if size%2 == 0 {
		return nil, errors.Errorf("gaussian kernel size must be odd, got %d", size)
	}
	kernel, err := NewKernel(size, size)
	if err != nil {
		return nil, err
	}
	gaus2D := GaussianFunction2D(sigma)
	half := size / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			kernel.Content[y][x] = gaus2D(float64(x-half), float64(y-half))
		}
	}
	return kernel.Normalize(), nil
}

// GetSobelX returns the Sobel kernel in the x direction.
func GetSobelX() Kernel {
	return Kernel{
		[][]float64{
			{-1, 0, 1},
			{-2, 0, 2},
			{-1, 0, 1},
		},
		3,
		3,
	}
}
