// Package occupancy decides per-stall occupancy for one frame: geometric
// assignment of detector boxes to stall polygons, plus temporal smoothing
// of the raw per-frame decisions.
package occupancy

import (
	"time"

	"github.com/trippieshadow66/Spotection/internal/conf"
	"github.com/trippieshadow66/Spotection/internal/detector"
	"github.com/trippieshadow66/Spotection/internal/geometry"
	"github.com/trippieshadow66/Spotection/internal/stallmap"
)

// AdjustedBox pairs a detector box with its normalized footprint rectangle.
// Kept around after assignment so the overlay renderer can draw diagnostics.
type AdjustedBox struct {
	Raw      detector.Box
	Adjusted geometry.Rect
}

// Result is the raw single-frame occupancy decision for one lot.
type Result struct {
	Timestamp time.Time
	Raw       map[int]bool  // stall id -> occupied, before smoothing
	Matched   []AdjustedBox // boxes consumed by a stall
	Leftover  []AdjustedBox // boxes that matched no stall
}

// OccupiedCount returns the number of stalls marked occupied.
func (r *Result) OccupiedCount() int {
	n := 0
	for _, occ := range r.Raw {
		if occ {
			n++
		}
	}
	return n
}

// Engine assigns vehicle boxes to stall polygons. One engine instance is
// shared by all cycles of a detect task.
type Engine struct {
	vehicleClasses map[int]bool
	minBoxArea     float64
	stallOverlap   float64
	boxOverlap     float64
	shrinkMargin   float64
	keepBottom     float64
}

// NewEngine builds an engine from the detector and occupancy settings.
func NewEngine(det *conf.DetectorSettings, occ *conf.OccupancySettings) *Engine {
	classes := make(map[int]bool, len(det.VehicleClasses))
	for _, c := range det.VehicleClasses {
		classes[c] = true
	}
	return &Engine{
		vehicleClasses: classes,
		minBoxArea:     det.MinBoxArea,
		stallOverlap:   occ.StallOverlap,
		boxOverlap:     occ.BoxOverlap,
		shrinkMargin:   occ.ShrinkMargin,
		keepBottom:     occ.KeepBottomFraction,
	}
}

// Assign computes raw occupancy for one frame.
//
// Boxes are first filtered to vehicle classes and a minimum raw area, then
// normalized: shrunk inward to limit spillover into neighboring stalls and
// reduced to the lower vertical fraction approximating the ground-contact
// footprint. Stalls are visited in ascending id order, the documented
// deterministic tie-break when two stalls could claim the same box. A stall
// is occupied when an adjusted box center lies inside its polygon, or when
// the intersection with the stall's bounding rectangle covers enough of the
// stall or of the box. A matched box is removed from the pool, one vehicle
// occupies at most one stall per cycle.
//
// Polygon overlap uses the stall's axis-aligned bounding rectangle, a known
// approximation for non-rectangular stalls; the exact test is the polygon
// containment check on the adjusted center.
func (e *Engine) Assign(stalls []stallmap.Stall, boxes []detector.Box) *Result {
	result := &Result{
		Timestamp: time.Now(),
		Raw:       make(map[int]bool, len(stalls)),
	}

	pool := e.normalize(boxes)

	for _, stall := range stalls {
		result.Raw[stall.ID] = false
		stallBounds := stall.Points.Bounds()
		stallArea := stallBounds.Area()
		if stallArea <= 0 {
			continue
		}

		for i, box := range pool {
			if e.claims(stall, stallBounds, stallArea, box.Adjusted) {
				result.Raw[stall.ID] = true
				result.Matched = append(result.Matched, box)
				pool = append(pool[:i], pool[i+1:]...)
				break
			}
		}
	}

	result.Leftover = pool
	return result
}

// normalize filters the detector output and computes adjusted footprints.
func (e *Engine) normalize(boxes []detector.Box) []AdjustedBox {
	var out []AdjustedBox
	for _, b := range boxes {
		if !e.vehicleClasses[b.ClassID] {
			continue
		}
		if b.Area() <= e.minBoxArea {
			continue
		}
		adjusted := b.Rect.Shrink(e.shrinkMargin).KeepBottom(e.keepBottom)
		out = append(out, AdjustedBox{Raw: b, Adjusted: adjusted})
	}
	return out
}

// claims reports whether the adjusted box satisfies the stall's occupancy
// condition.
func (e *Engine) claims(stall stallmap.Stall, stallBounds geometry.Rect, stallArea float64, adjusted geometry.Rect) bool {
	if stall.Points.Contains(adjusted.Center()) {
		return true
	}

	interArea := adjusted.Intersect(stallBounds).Area()
	if interArea <= 0 {
		return false
	}
	if interArea/stallArea >= e.stallOverlap {
		return true
	}
	boxArea := adjusted.Area()
	return boxArea > 0 && interArea/boxArea >= e.boxOverlap
}
