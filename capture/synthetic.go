package capture

import (
	"fmt"
	"image"

	"github.com/nvr-ai/litterbox/images"
	"gocv.io/x/gocv"
)

// Script returns the squares drawn on frame i.
type Script func(i int) []image.Rectangle

// SquareBetween draws square on frames first through last, inclusive.
func SquareBetween(square image.Rectangle, first, last int) Script {
	return func(i int) []image.Rectangle {
		if i >= first && i <= last {
			return []image.Rectangle{square}
		}
		return nil
	}
}

// Synthetic is a deterministic, finite frame source driven by a Script.
type Synthetic struct {
	Generator *images.FrameGenerator
	Script    Script
	Frames    int

	next int
}

// NewSynthetic returns a source of n black frames of the given size with the
// squares described by script drawn in white.
func NewSynthetic(width, height, n int, script Script) *Synthetic {
	if script == nil {
		script = func(int) []image.Rectangle { return nil }
	}
	return &Synthetic{
		Generator: images.NewFrameGenerator(width, height),
		Script:    script,
		Frames:    n,
	}
}

// Read renders the next frame into dst.
func (s *Synthetic) Read(dst *gocv.Mat) error {
	if s.next >= s.Frames {
		return ErrEndOfStream
	}
	s.Generator.Draw(dst, s.Script(s.next)...)
	s.next++
	return nil
}

// Close is a no-op.
func (s *Synthetic) Close() error {
	return nil
}

func (s *Synthetic) String() string {
	return fmt.Sprintf("synthetic %dx%d x%d", s.Generator.Width, s.Generator.Height, s.Frames)
}
