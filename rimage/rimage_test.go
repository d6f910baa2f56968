package rimage

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/fogleman/gg"
	"go.viam.com/test"
)

func rampImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{uint8((x*7 + y*13) % 256)})
		}
	}
	return img
}

func TestMakeGray(t *testing.T) {
	src := rampImage(10, 8)
	sub := src.SubImage(image.Rect(2, 3, 7, 8)).(*image.Gray)
	gray := MakeGray(sub)
	test.That(t, gray.Bounds(), test.ShouldResemble, image.Rect(0, 0, 5, 5))
	test.That(t, gray.GrayAt(0, 0), test.ShouldResemble, src.GrayAt(2, 3))
	test.That(t, gray.GrayAt(4, 4), test.ShouldResemble, src.GrayAt(6, 7))

	// the copy does not alias the source
	gray.SetGray(0, 0, color.Gray{255})
	test.That(t, src.GrayAt(2, 3).Y, test.ShouldNotEqual, 255)

	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	rgba.Set(1, 1, color.RGBA{255, 255, 255, 255})
	g := MakeGray(rgba)
	test.That(t, g.GrayAt(1, 1).Y, test.ShouldEqual, 255)
	test.That(t, g.GrayAt(0, 0).Y, test.ShouldEqual, 0)
	test.That(t, SameImgSize(g, rgba), test.ShouldBeTrue)
	test.That(t, SameImgSize(g, src), test.ShouldBeFalse)
}

func TestPaddingGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	for x := 0; x < 4; x++ {
		img.SetGray(x, 0, color.Gray{uint8(10 * (x + 1))})
	}
	row := func(p *image.Gray) []uint8 {
		out := make([]uint8, p.Rect.Dx())
		for x := range out {
			out[x] = p.GrayAt(x, 1).Y
		}
		return out
	}
	kernelSize := image.Point{5, 3}
	anchor := image.Point{2, 1}

	constant, err := PaddingGray(img, kernelSize, anchor, BorderConstant)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, row(constant), test.ShouldResemble, []uint8{0, 0, 10, 20, 30, 40, 0, 0})

	replicate, err := PaddingGray(img, kernelSize, anchor, BorderReplicate)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, row(replicate), test.ShouldResemble, []uint8{10, 10, 10, 20, 30, 40, 40, 40})

	reflect, err := PaddingGray(img, kernelSize, anchor, BorderReflect)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, row(reflect), test.ShouldResemble, []uint8{30, 20, 10, 20, 30, 40, 30, 20})

	_, err = PaddingGray(img, kernelSize, image.Point{5, 0}, BorderReflect)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = PaddingGray(img, kernelSize, anchor, BorderPad(42))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConvolveGray(t *testing.T) {
	img := rampImage(20, 15)

	identity, err := NewKernel(3, 3)
	test.That(t, err, test.ShouldBeNil)
	identity.Content[1][1] = 1
	same, err := ConvolveGray(img, identity, image.Point{1, 1}, BorderReflect)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same.Pix, test.ShouldResemble, img.Pix)

	flat := image.NewGray(image.Rect(0, 0, 12, 9))
	for i := range flat.Pix {
		flat.Pix[i] = 100
	}
	blurred, err := GaussianBlurGray(flat, 7, 2)
	test.That(t, err, test.ShouldBeNil)
	for _, v := range blurred.Pix {
		test.That(t, v, test.ShouldEqual, 100)
	}

	// sobel on a horizontal ramp is clamped at zero on the falling side only
	sobel := GetSobelX()
	edges, err := ConvolveGray(img, &sobel, image.Point{1, 1}, BorderReplicate)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, edges.Bounds(), test.ShouldResemble, img.Bounds())

	_, err = GetGaussianKernel(4, 1)
	test.That(t, err, test.ShouldNotBeNil)
	k, err := GetGaussianKernel(5, 1.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, k.Sum(), test.ShouldAlmostEqual, 1)
	test.That(t, k.At(2, 2), test.ShouldBeGreaterThan, k.At(0, 0))
}

func TestGetImagePyramid(t *testing.T) {
	img := rampImage(120, 90)
	pyramid, err := GetImagePyramid(img, 4, 1.2, 16)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pyramid.Images, test.ShouldHaveLength, 4)
	test.That(t, pyramid.Scales[0], test.ShouldEqual, 1)
	test.That(t, pyramid.Images[1].Bounds().Dx(), test.ShouldEqual, 100)
	test.That(t, pyramid.Images[1].Bounds().Dy(), test.ShouldEqual, 75)
	test.That(t, pyramid.Scales[1], test.ShouldAlmostEqual, 1.2)
	for i := 1; i < len(pyramid.Scales); i++ {
		test.That(t, pyramid.Scales[i], test.ShouldBeGreaterThan, pyramid.Scales[i-1])
	}

	// stops before levels get too small
	small, err := GetImagePyramid(rampImage(20, 20), 8, 2, 8)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, small.Images, test.ShouldHaveLength, 2)

	_, err = GetImagePyramid(img, 0, 1.2, 16)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = GetImagePyramid(img, 3, 1, 16)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestImageFileRoundTrip(t *testing.T) {
	img := rampImage(16, 12)
	path := filepath.Join(t.TempDir(), "ramp.png")
	test.That(t, WriteImageToFile(path, img), test.ShouldBeNil)

	read, err := ReadImageFromFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, MakeGray(read).Pix, test.ShouldResemble, img.Pix)

	_, err = ReadImageFromFile(filepath.Join(t.TempDir(), "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDrawString(t *testing.T) {
	dc := gg.NewContext(200, 50)
	dc.SetColor(color.White)
	dc.Clear()
	DrawString(dc, "frame 12", image.Point{5, 5}, color.Black, 20)
	DrawCircle(dc, image.Point{150, 25}, 10, color.RGBA{255, 0, 0, 255}, 2)

	out := MakeGray(dc.Image())
	dark := 0
	for _, v := range out.Pix {
		if v < 128 {
			dark++
		}
	}
	test.That(t, dark, test.ShouldBeGreaterThan, 0)
	test.That(t, Font(), test.ShouldNotBeNil)
}
