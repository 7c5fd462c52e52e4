package render

import (
	"fmt"
	"image"
	"sort"
	"strconv"

	"github.com/trippieshadow66/Spotection/internal/stallmap"
)

// Schematic layout constants, sized to match the overlay's readability at
// dashboard scale.
const (
	cellWidth  = 120
	cellHeight = 80
	padX       = 30
	padY       = 25
	marginX    = 80
	marginY    = 80
)

// Schematic renders the lane-grouped top-down map: lanes ascending by lane
// number become columns left to right, stalls within a lane are ordered by
// polygon centroid Y to preserve the physical front/back ordering, and each
// stall is a fixed-size rectangle colored by smoothed occupancy.
//
// A lot with zero stalls renders an explanatory placeholder canvas rather
// than failing.
func Schematic(stalls []stallmap.Stall, smoothed map[int]bool) *image.RGBA {
	if len(stalls) == 0 {
		return placeholderCanvas()
	}

	lanes := groupByLane(stalls)

	rows := 0
	for _, lane := range lanes {
		if len(lane.stalls) > rows {
			rows = len(lane.stalls)
		}
	}
	cols := len(lanes)

	width := marginX*2 + cols*(cellWidth+padX)
	height := marginY*2 + rows*(cellHeight+padY)

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	fillRect(canvas, canvas.Bounds(), colorCanvasBG)

	for col, lane := range lanes {
		headerX := marginX + col*(cellWidth+padX)
		drawLabel(canvas, headerX+5, 40, fmt.Sprintf("Lane %d", lane.number), colorHeader)

		for row, stall := range lane.stalls {
			x1 := marginX + col*(cellWidth+padX)
			y1 := marginY + row*(cellHeight+padY)
			cell := image.Rect(x1, y1, x1+cellWidth, y1+cellHeight)

			fillRect(canvas, cell, statusColor(smoothed[stall.ID]))
			drawRectBorder(canvas, cell)
			drawCenteredLabel(canvas, x1+cellWidth/2, y1+cellHeight/2, strconv.Itoa(stall.ID), colorText)
		}
	}

	return canvas
}

type laneColumn struct {
	number int
	stalls []stallmap.Stall
}

// groupByLane buckets stalls per lane, lanes ascending, stalls by centroid
// vertical position within each lane.
func groupByLane(stalls []stallmap.Stall) []laneColumn {
	byLane := make(map[int][]stallmap.Stall)
	for _, s := range stalls {
		byLane[s.Lane] = append(byLane[s.Lane], s)
	}

	numbers := make([]int, 0, len(byLane))
	for n := range byLane {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	lanes := make([]laneColumn, 0, len(numbers))
	for _, n := range numbers {
		group := byLane[n]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Points.Centroid().Y < group[j].Points.Centroid().Y
		})
		lanes = append(lanes, laneColumn{number: n, stalls: group})
	}
	return lanes
}

// drawRectBorder outlines a cell with a 2px white border.
func drawRectBorder(canvas *image.RGBA, cell image.Rectangle) {
	fillRect(canvas, image.Rect(cell.Min.X, cell.Min.Y, cell.Max.X, cell.Min.Y+2), colorText)
	fillRect(canvas, image.Rect(cell.Min.X, cell.Max.Y-2, cell.Max.X, cell.Max.Y), colorText)
	fillRect(canvas, image.Rect(cell.Min.X, cell.Min.Y, cell.Min.X+2, cell.Max.Y), colorText)
	fillRect(canvas, image.Rect(cell.Max.X-2, cell.Min.Y, cell.Max.X, cell.Max.Y), colorText)
}

// placeholderCanvas renders the zero-stall map.
func placeholderCanvas() *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, 600, 300))
	fillRect(canvas, canvas.Bounds(), colorCanvasBG)
	drawCenteredLabel(canvas, 300, 150, "No stalls configured", colorText)
	return canvas
}
