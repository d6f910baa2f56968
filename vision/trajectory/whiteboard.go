// Package trajectory draws and evaluates estimated camera trajectories.
package trajectory

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/montanaflynn/stats"

	"go.viam.com/monovo/rimage"
)

const (
	whiteboardSize = 600
	headerHeight   = 80
	pointRadius    = 1.5
	textSize       = 12
	// depthSpread is the height, in meters, over which point colors go from dark to full.
	depthSpread = 30
)

var (
	// PredictedColor is the color of estimated positions.
	PredictedColor = colorful.Color{R: 1}
	// GroundTruthColor is the color of ground truth positions.
	GroundTruthColor = colorful.Color{G: 1}
)

// Whiteboard is a top view (x, z) of a trajectory and its ground truth.
type Whiteboard struct {
	dc     *gg.Context
	origin image.Point
	// scale is in pixels per meter.
	scale float64
	total int
}

// NewWhiteboard returns a blank whiteboard for a sequence of total frames.
func NewWhiteboard(total int) *Whiteboard {
	wb := &Whiteboard{
		dc:     gg.NewContext(whiteboardSize, whiteboardSize),
		origin: image.Point{300, 450},
		scale:  0.5,
		total:  total,
	}
	wb.dc.SetColor(color.White)
	wb.dc.Clear()
	wb.dc.SetColor(color.Black)
	wb.dc.SetLineWidth(2)
	wb.dc.DrawRectangle(float64(wb.origin.X-5), float64(wb.origin.Y-5), 10, 10)
	wb.dc.Stroke()
	return wb
}

// PositionToPixel projects a world position on the whiteboard; z points up.
func (wb *Whiteboard) PositionToPixel(p r3.Vector) image.Point {
	return image.Point{
		X: wb.origin.X + int(p.X*wb.scale),
		Y: wb.origin.Y - int(p.Z*wb.scale),
	}
}

// Plot draws the positions of frame index and rewrites the header. gt is ignored when hasGT is
// false.
func (wb *Whiteboard) Plot(index int, predicted, gt r3.Vector, hasGT bool, frameRate float64) {
	wb.dc.SetColor(color.White)
	wb.dc.DrawRectangle(0, 0, whiteboardSize, headerHeight)
	wb.dc.Fill()

	rimage.DrawString(wb.dc, fmt.Sprintf("Framerate %d, Frame %d / %d", int(frameRate), index, wb.total),
		image.Point{20, 8}, color.Black, textSize)
	wb.drawPosition("pred", predicted, PredictedColor, image.Point{20, 28})
	if hasGT {
		wb.drawPosition("gt", gt, GroundTruthColor, image.Point{20, 48})
	}
}

func (wb *Whiteboard) drawPosition(name string, p r3.Vector, c colorful.Color, textPos image.Point) {
	px := wb.PositionToPixel(p)
	wb.dc.SetColor(DepthShade(c, p.Y))
	wb.dc.DrawCircle(float64(px.X), float64(px.Y), pointRadius)
	wb.dc.Fill()
	text := fmt.Sprintf("%s : x = %0.2fm y = %0.2fm z = %0.2fm", name, p.X, p.Y, p.Z)
	rimage.DrawString(wb.dc, text, textPos, color.Black, textSize)
}

// DepthShade darkens c according to the height y of the position it marks, lower being darker.
func DepthShade(c colorful.Color, y float64) colorful.Color {
	s, err := stats.Sigmoid([]float64{y / depthSpread})
	if err != nil || len(s) == 0 {
		return c
	}
	h, sat, v := c.Hsv()
	return colorful.Hsv(h, sat, v*s[0]).Clamped()
}

// Image returns the current whiteboard.
func (wb *Whiteboard) Image() image.Image {
	return wb.dc.Image()
}

// SavePNG writes the whiteboard to a png file.
func (wb *Whiteboard) SavePNG(path string) error {
	return wb.dc.SavePNG(path)
}
