package images

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// FrameGenerator creates deterministic BGR frames for replay and testing.
//
// Every frame is a solid background with zero or more solid squares drawn on
// top, so identical arguments always yield byte-identical frames.
//
// @example
// gen := NewFrameGenerator(100, 100)
// frame := gen.Frame(image.Rect(40, 40, 60, 60))
// defer frame.Close()
type FrameGenerator struct {
	Width      int
	Height     int
	Background color.RGBA
	Foreground color.RGBA
}

// NewFrameGenerator returns a generator of black frames with white squares.
func NewFrameGenerator(width, height int) *FrameGenerator {
	return &FrameGenerator{
		Width:      width,
		Height:     height,
		Background: color.RGBA{0, 0, 0, 0},
		Foreground: color.RGBA{255, 255, 255, 0},
	}
}

// Frame creates a frame with each rectangle filled in the foreground color.
//
// The caller owns the returned Mat.
func (g *FrameGenerator) Frame(squares ...image.Rectangle) gocv.Mat {
	frame := gocv.NewMatWithSize(g.Height, g.Width, gocv.MatTypeCV8UC3)
	g.Draw(&frame, squares...)
	return frame
}

// Draw renders into an existing Mat, reallocating it if the size differs.
func (g *FrameGenerator) Draw(dst *gocv.Mat, squares ...image.Rectangle) {
	if dst.Rows() != g.Height || dst.Cols() != g.Width || dst.Type() != gocv.MatTypeCV8UC3 {
		dst.Close()
		*dst = gocv.NewMatWithSize(g.Height, g.Width, gocv.MatTypeCV8UC3)
	}
	dst.SetTo(gocv.NewScalar(float64(g.Background.B), float64(g.Background.G), float64(g.Background.R), 0))
	for _, sq := range squares {
		// Rectangle treats Max as inclusive, image.Rectangle does not.
		r := image.Rect(sq.Min.X, sq.Min.Y, sq.Max.X-1, sq.Max.Y-1)
		gocv.Rectangle(dst, r, g.Foreground, -1)
	}
}
