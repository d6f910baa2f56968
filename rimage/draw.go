package rimage

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce  sync.Once
	goRegular *truetype.Font

	facesMu sync.Mutex
	faces   = map[float64]font.Face{}
)

// Font returns the parsed Go Regular font used for annotations.
func Font() *truetype.Font {
	fontOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			// the font is compiled in; failing to parse it is a build problem
			panic(err)
		}
		goRegular = f
	})
	return goRegular
}

// face returns a cached face of Font at the given point size.
func face(size float64) font.Face {
	facesMu.Lock()
	defer facesMu.Unlock()
	if f, ok := faces[size]; ok {
		return f
	}
	f := truetype.NewFace(Font(), &truetype.Options{Size: size})
	faces[size] = f
	return f
}

// DrawString writes text with its top-left corner at p.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(face(size))
	dc.SetColor(c)
	dc.DrawStringAnchored(text, float64(p.X), float64(p.Y), 0, 1)
}

// DrawCircle strokes a circle outline of the given line width.
func DrawCircle(dc *gg.Context, center image.Point, radius float64, c color.Color, width float64) {
	dc.Push()
	defer dc.Pop()
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawCircle(float64(center.X), float64(center.Y), radius)
	dc.Stroke()
}
