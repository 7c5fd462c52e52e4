// Package geometry provides the 2D primitives used for stall polygons and
// detector bounding boxes: point-in-polygon tests, areas, centroids and
// axis-aligned rectangle intersection.
package geometry

import "math"

// Point is a single 2D coordinate in image space.
type Point struct {
	X float64
	Y float64
}

// Polygon is an ordered list of vertices. Stall polygons are closed
// implicitly, the last vertex connects back to the first.
type Polygon []Point

// Rect is an axis-aligned rectangle, X1/Y1 top-left and X2/Y2 bottom-right
// in image coordinates (Y grows downward).
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// Area returns the absolute polygon area using the shoelace formula.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	var sum float64
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return math.Abs(sum) / 2
}

// Centroid returns the vertex mean. For stall labelling this matches the
// reference behavior better than the exact area centroid, operators place
// vertices roughly evenly around the stall.
func (p Polygon) Centroid() Point {
	if len(p) == 0 {
		return Point{}
	}
	var c Point
	for _, pt := range p {
		c.X += pt.X
		c.Y += pt.Y
	}
	c.X /= float64(len(p))
	c.Y /= float64(len(p))
	return c
}

// Contains reports whether pt lies inside the polygon, using the even-odd
// ray crossing rule. Points exactly on an edge may fall on either side.
func (p Polygon) Contains(pt Point) bool {
	if len(p) < 3 {
		return false
	}
	inside := false
	j := len(p) - 1
	for i := 0; i < len(p); i++ {
		if (p[i].Y > pt.Y) != (p[j].Y > pt.Y) &&
			pt.X < (p[j].X-p[i].X)*(pt.Y-p[i].Y)/(p[j].Y-p[i].Y)+p[i].X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Bounds returns the axis-aligned bounding rectangle of the polygon.
func (p Polygon) Bounds() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	r := Rect{X1: p[0].X, Y1: p[0].Y, X2: p[0].X, Y2: p[0].Y}
	for _, pt := range p[1:] {
		r.X1 = math.Min(r.X1, pt.X)
		r.Y1 = math.Min(r.Y1, pt.Y)
		r.X2 = math.Max(r.X2, pt.X)
		r.Y2 = math.Max(r.Y2, pt.Y)
	}
	return r
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 { return r.X2 - r.X1 }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 { return r.Y2 - r.Y1 }

// Area returns the rectangle area, zero for degenerate rectangles.
func (r Rect) Area() float64 {
	if r.X2 <= r.X1 || r.Y2 <= r.Y1 {
		return 0
	}
	return r.Width() * r.Height()
}

// Center returns the rectangle midpoint.
func (r Rect) Center() Point {
	return Point{X: (r.X1 + r.X2) / 2, Y: (r.Y1 + r.Y2) / 2}
}

// Intersect returns the overlapping region of two rectangles. The result
// has zero Area when the rectangles do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
		X2: math.Min(r.X2, o.X2),
		Y2: math.Min(r.Y2, o.Y2),
	}
}

// Shrink moves every edge inward by margin pixels. A rectangle smaller than
// twice the margin collapses to a zero-area rectangle at its center.
func (r Rect) Shrink(margin float64) Rect {
	out := Rect{X1: r.X1 + margin, Y1: r.Y1 + margin, X2: r.X2 - margin, Y2: r.Y2 - margin}
	if out.X2 <= out.X1 || out.Y2 <= out.Y1 {
		c := r.Center()
		return Rect{X1: c.X, Y1: c.Y, X2: c.X, Y2: c.Y}
	}
	return out
}

// KeepBottom retains only the lower frac of the rectangle's height. Under an
// angled camera the lower portion of a vehicle box approximates the ground
// contact footprint rather than the roofline.
func (r Rect) KeepBottom(frac float64) Rect {
	if frac <= 0 || frac >= 1 {
		return r
	}
	return Rect{X1: r.X1, Y1: r.Y2 - r.Height()*frac, X2: r.X2, Y2: r.Y2}
}
