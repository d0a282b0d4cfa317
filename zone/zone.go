// Package zone - region extraction and zone containment.
//
// A zone is an axis-aligned rectangle in pixel space whose bounds are
// inclusive on every side. Regions are connected foreground blobs taken from a
// motion mask; a region is in the zone when its bounding-box center is.
package zone

import (
	"fmt"
	"image"
)

// Rect is a pixel-space rectangle with inclusive bounds on both axes.
//
// Unlike image.Rectangle, a point on X2 or Y2 is inside.
type Rect struct {
	X1, Y1, X2, Y2 int
}

// FromFractions scales fractional bounds (0..1) to a frame of the given size.
// Pixel coordinates are truncated toward zero.
func FromFractions(x1, y1, x2, y2 float64, size image.Point) Rect {
	return Rect{
		X1: int(float64(size.X) * x1),
		Y1: int(float64(size.Y) * y1),
		X2: int(float64(size.X) * x2),
		Y2: int(float64(size.Y) * y2),
	}
}

// Contains reports whether p lies within r, bounds included.
func (r Rect) Contains(p image.Point) bool {
	return r.X1 <= p.X && p.X <= r.X2 && r.Y1 <= p.Y && p.Y <= r.Y2
}

// Rectangle converts r to an image.Rectangle for drawing.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// Region is one connected foreground blob.
type Region struct {
	// Box is the axis-aligned bounding rectangle.
	Box image.Rectangle
	// Area is the area enclosed by the region's outer contour.
	Area float64
	// Center is the bounding-box center, computed with integer division.
	Center image.Point
}

// NewRegion builds a Region from a bounding box and its contour area.
func NewRegion(box image.Rectangle, area float64) Region {
	return Region{
		Box:  box,
		Area: area,
		Center: image.Point{
			X: box.Min.X + box.Dx()/2,
			Y: box.Min.Y + box.Dy()/2,
		},
	}
}

// Classified is a region with its zone membership.
type Classified struct {
	Region
	InZone bool
}

// Result is the classification of one frame.
type Result struct {
	Regions   []Classified
	AnyInZone bool
}

// InZone returns how many regions are inside the zone.
func (r Result) InZone() int {
	n := 0
	for _, c := range r.Regions {
		if c.InZone {
			n++
		}
	}
	return n
}

// Accept reports whether a contour of the given area passes the noise filter.
// The bound is strict: an area equal to minArea is rejected.
func Accept(area, minArea float64) bool {
	return area > minArea
}

// Classify tags every region with whether its center lies in zone.
func Classify(regions []Region, zone Rect) Result {
	res := Result{Regions: make([]Classified, 0, len(regions))}
	for _, r := range regions {
		in := zone.Contains(r.Center)
		res.Regions = append(res.Regions, Classified{Region: r, InZone: in})
		res.AnyInZone = res.AnyInZone || in
	}
	return res
}
