package images

import (
	"fmt"
	"image"
	"math"
)

// AspectRatio names a frame aspect ratio (e.g., "16:9").
type AspectRatio string

const (
	AspectRatio169 AspectRatio = "16:9"
	AspectRatio43  AspectRatio = "4:3"
	AspectRatio54  AspectRatio = "5:4"
)

// Resolution is a common camera frame size.
type Resolution struct {
	Name        string
	AspectRatio AspectRatio
	Size        image.Point
}

// MegaPixels returns the pixel count in millions, rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Size.X <= 0 || r.Size.Y <= 0 {
		return 0
	}
	mp := float64(r.Size.X*r.Size.Y) / 1_000_000.0
	return math.Round(mp*100) / 100
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Size.X, r.Size.Y, r.MegaPixels())
}

// Resolutions are the frame sizes webcams and USB cameras commonly deliver,
// smallest first.
var Resolutions = []Resolution{
	{Name: "QVGA", AspectRatio: AspectRatio43, Size: image.Pt(320, 240)},
	{Name: "nHD", AspectRatio: AspectRatio169, Size: image.Pt(640, 360)},
	{Name: "VGA", AspectRatio: AspectRatio43, Size: image.Pt(640, 480)},
	{Name: "SVGA", AspectRatio: AspectRatio43, Size: image.Pt(800, 600)},
	{Name: "HD 720p", AspectRatio: AspectRatio169, Size: image.Pt(1280, 720)},
	{Name: "SXGA", AspectRatio: AspectRatio54, Size: image.Pt(1280, 1024)},
	{Name: "Full HD 1080p", AspectRatio: AspectRatio169, Size: image.Pt(1920, 1080)},
	{Name: "QHD 1440p", AspectRatio: AspectRatio169, Size: image.Pt(2560, 1440)},
	{Name: "4K UHD", AspectRatio: AspectRatio169, Size: image.Pt(3840, 2160)},
}

// LookupResolution returns the named resolution with exactly the given size.
func LookupResolution(size image.Point) (Resolution, bool) {
	for _, r := range Resolutions {
		if r.Size == size {
			return r, true
		}
	}
	return Resolution{}, false
}

// DescribeSize names a frame size for logs, falling back to WxH for
// non-standard sizes.
func DescribeSize(size image.Point) string {
	if r, ok := LookupResolution(size); ok {
		return r.String()
	}
	return fmt.Sprintf("%dx%d", size.X, size.Y)
}
