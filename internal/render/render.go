// Package render produces the two visual artifacts of a detection cycle:
// the annotated camera overlay and the lane-grouped schematic map. Both are
// written as new timestamped JPEG files, never overwritten in place, so
// "most recent file in folder" stays a valid read pattern for consumers.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/trippieshadow66/Spotection/internal/geometry"
)

var (
	colorOccupied = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	colorFree     = color.RGBA{R: 40, G: 200, B: 40, A: 255}
	colorRawBox   = color.RGBA{R: 0, G: 200, B: 220, A: 255}
	colorAdjusted = color.RGBA{R: 220, G: 0, B: 220, A: 255}
	colorText     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorHeader   = color.RGBA{R: 240, G: 220, B: 40, A: 255}
	colorCanvasBG = color.RGBA{R: 38, G: 38, B: 38, A: 255}
	colorBlack    = color.RGBA{A: 255}
)

// statusColor maps a smoothed occupancy decision to its display color.
func statusColor(occupied bool) color.RGBA {
	if occupied {
		return colorOccupied
	}
	return colorFree
}

// WriteTimestamped encodes img as JPEG into dir under a millisecond
// timestamped name like prefix_1719876543210.jpg and returns the full path.
func WriteTimestamped(dir, prefix string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%d.jpg", prefix, time.Now().UnixMilli()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 85}); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}

// drawLine draws a 1px line between two points.
func drawLine(img *image.RGBA, a, b geometry.Point, c color.RGBA) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	steps := math.Max(math.Abs(dx), math.Abs(dy))
	if steps < 1 {
		img.SetRGBA(int(a.X), int(a.Y), c)
		return
	}
	for i := 0.0; i <= steps; i++ {
		x := a.X + dx*i/steps
		y := a.Y + dy*i/steps
		img.SetRGBA(int(x), int(y), c)
	}
}

// drawThickLine draws a line with the given stroke width.
func drawThickLine(img *image.RGBA, a, b geometry.Point, c color.RGBA, width int) {
	for ox := -width / 2; ox <= width/2; ox++ {
		for oy := -width / 2; oy <= width/2; oy++ {
			off := geometry.Point{X: float64(ox), Y: float64(oy)}
			drawLine(img,
				geometry.Point{X: a.X + off.X, Y: a.Y + off.Y},
				geometry.Point{X: b.X + off.X, Y: b.Y + off.Y}, c)
		}
	}
}

// drawPolygon outlines a closed polygon.
func drawPolygon(img *image.RGBA, poly geometry.Polygon, c color.RGBA, width int) {
	for i := range poly {
		j := (i + 1) % len(poly)
		drawThickLine(img, poly[i], poly[j], c, width)
	}
}

// drawRectOutline outlines an axis-aligned rectangle.
func drawRectOutline(img *image.RGBA, r geometry.Rect, c color.RGBA, width int) {
	drawPolygon(img, geometry.Polygon{
		{X: r.X1, Y: r.Y1}, {X: r.X2, Y: r.Y1}, {X: r.X2, Y: r.Y2}, {X: r.X1, Y: r.Y2},
	}, c, width)
}

// fillRect fills an axis-aligned rectangle.
func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// drawDot fills a small square marker centered on pt.
func drawDot(img *image.RGBA, pt geometry.Point, c color.RGBA, radius int) {
	fillRect(img, image.Rect(int(pt.X)-radius, int(pt.Y)-radius, int(pt.X)+radius+1, int(pt.Y)+radius+1), c)
}

// drawLabel renders text with its baseline starting at (x, y).
func drawLabel(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: c},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// labelWidth returns the pixel width of text in the label face.
func labelWidth(text string) int {
	return font.MeasureString(basicfont.Face7x13, text).Ceil()
}

// drawCenteredLabel renders text centered on (cx, cy).
func drawCenteredLabel(img *image.RGBA, cx, cy int, text string, c color.RGBA) {
	drawLabel(img, cx-labelWidth(text)/2, cy+basicfont.Face7x13.Height/3, text, c)
}
