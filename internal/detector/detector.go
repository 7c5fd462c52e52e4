// Package detector abstracts the external vehicle detection capability:
// image in, list of boxes with class id and confidence out.
package detector

import (
	"context"

	"github.com/trippieshadow66/Spotection/internal/geometry"
)

// Box is one detection returned by the capability. Coordinates are in
// image space. No ordering is guaranteed among returned boxes.
type Box struct {
	Rect       geometry.Rect
	ClassID    int
	Confidence float64
}

// Detector runs vehicle detection on a single JPEG-encoded frame.
// Implementations are stateless per call.
type Detector interface {
	Detect(ctx context.Context, imageJPEG []byte) ([]Box, error)
}

// Area returns the raw box area in pixels.
func (b Box) Area() float64 {
	return b.Rect.Area()
}
