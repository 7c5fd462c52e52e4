package render

import (
	"fmt"
	"image"
	"image/draw"
	"strconv"

	"github.com/trippieshadow66/Spotection/internal/occupancy"
	"github.com/trippieshadow66/Spotection/internal/stallmap"
)

// Overlay draws the annotated camera frame: stall polygon outlines colored
// by smoothed occupancy, the stall id at each polygon centroid, optional
// detector diagnostics, and a fixed-position summary line.
//
// diag may be nil to skip the raw/adjusted box diagnostics.
func Overlay(frame image.Image, stalls []stallmap.Stall, smoothed map[int]bool, diag *occupancy.Result) *image.RGBA {
	out := image.NewRGBA(frame.Bounds())
	draw.Draw(out, out.Bounds(), frame, frame.Bounds().Min, draw.Src)

	// Detector diagnostics underneath the stall outlines.
	if diag != nil {
		for _, box := range append(append([]occupancy.AdjustedBox{}, diag.Matched...), diag.Leftover...) {
			drawRectOutline(out, box.Raw.Rect, colorRawBox, 2)
			drawRectOutline(out, box.Adjusted, colorAdjusted, 1)
			center := box.Adjusted.Center()
			drawDot(out, center, colorAdjusted, 3)
			drawLabel(out, int(center.X)-10, int(center.Y)-8, "adj", colorAdjusted)
		}
	}

	for _, stall := range stalls {
		c := statusColor(smoothed[stall.ID])
		drawPolygon(out, stall.Points, c, 2)
		centroid := stall.Points.Centroid()
		drawCenteredLabel(out, int(centroid.X), int(centroid.Y), strconv.Itoa(stall.ID), c)
	}

	drawSummary(out, stalls, smoothed)
	return out
}

// drawSummary renders the "Occupied: x/y  Free: z" box at the top-left.
func drawSummary(out *image.RGBA, stalls []stallmap.Stall, smoothed map[int]bool) {
	total := len(stalls)
	occupied := 0
	for _, stall := range stalls {
		if smoothed[stall.ID] {
			occupied++
		}
	}

	text := fmt.Sprintf("Occupied: %d/%d  Free: %d", occupied, total, total-occupied)
	w := labelWidth(text)
	fillRect(out, image.Rect(10, 10, 10+w+20, 36), colorBlack)
	drawLabel(out, 20, 28, text, colorText)
}
