package zone

import (
	"gocv.io/x/gocv"
)

// Classifier extracts regions from motion masks and classifies them against a
// fixed zone.
type Classifier struct {
	// MinArea is the exclusive lower bound on contour area.
	MinArea float64
	// Zone is the pixel-space zone of interest.
	Zone Rect
}

// NewClassifier returns a Classifier for zone that drops contours whose area
// is not greater than minArea.
func NewClassifier(minArea float64, zone Rect) *Classifier {
	return &Classifier{MinArea: minArea, Zone: zone}
}

// Extract returns the outer contours of mask whose area exceeds minArea.
//
// Nested contours are ignored. The mask must be a single channel 8-bit image;
// every non-zero pixel counts as foreground.
func Extract(mask gocv.Mat, minArea float64) []Region {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	regions := make([]Region, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if !Accept(area, minArea) {
			continue
		}
		regions = append(regions, NewRegion(gocv.BoundingRect(contour), area))
	}
	return regions
}

// Classify extracts the regions of mask and tags each against the zone.
func (c *Classifier) Classify(mask gocv.Mat) Result {
	if mask.Empty() {
		return Result{}
	}
	return Classify(Extract(mask, c.MinArea), c.Zone)
}
