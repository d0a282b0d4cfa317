// Package overlay - annotation of monitored frames.
package overlay

import (
	"image"
	"image/color"

	"github.com/nvr-ai/litterbox/zone"
	"gocv.io/x/gocv"
)

// Colors used on annotated frames.
var (
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 0}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

const (
	ZoneLabel   = "Litter Box Zone"
	RegionLabel = "In Litter Box"
	Banner      = "CAT IN LITTER BOX"
)

// BannerOrigin is the baseline origin of the occupancy banner.
var BannerOrigin = image.Pt(10, 30)

const (
	lineThickness = 2
	labelScale    = 0.5
	bannerScale   = 1.0
	labelOffset   = 10
)

// Draw annotates frame in place.
//
// Regions inside the zone are outlined in yellow and labelled; the others are
// outlined in green. The zone is always outlined in green. The banner is drawn
// only when at least one region is in the zone.
func Draw(frame *gocv.Mat, z zone.Rect, res zone.Result) {
	for _, r := range res.Regions {
		if r.InZone {
			gocv.Rectangle(frame, r.Box, Yellow, lineThickness)
			gocv.PutText(frame, RegionLabel, image.Pt(r.Box.Min.X, r.Box.Min.Y-labelOffset),
				gocv.FontHersheySimplex, labelScale, Yellow, lineThickness)
			continue
		}
		gocv.Rectangle(frame, r.Box, Green, lineThickness)
	}

	gocv.Rectangle(frame, z.Rectangle(), Green, lineThickness)
	gocv.PutText(frame, ZoneLabel, image.Pt(z.X1, z.Y1-labelOffset),
		gocv.FontHersheySimplex, labelScale, Green, lineThickness)

	if res.AnyInZone {
		gocv.PutText(frame, Banner, BannerOrigin, gocv.FontHersheySimplex, bannerScale, Red, lineThickness)
	}
}
