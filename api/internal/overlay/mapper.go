// Package overlay turns model-reported detections into a heat layer aligned
// with the image as it is displayed.
package overlay

import (
	"math"

	"nodule-lens/api/internal/analysis/types"
)

// DefaultRadiusScale is a tuned visual constant, not a derived one.
const DefaultRadiusScale = 2.0

// Geometry is a detection in surface pixels.
type Geometry struct {
	X, Y float64
	R    float64
}

// Map projects a normalized detection onto a w×h surface. ok is false while
// the surface has no measured size yet; callers skip drawing in that case.
//
// The radius follows min(w, h) so blobs keep their proportions for any
// aspect ratio.
func Map(d types.Detection, w, h int, radiusScale float64) (g Geometry, ok bool) {
	if w <= 0 || h <= 0 {
		return Geometry{}, false
	}
	fw, fh := float64(w), float64(h)
	return Geometry{
		X: d.X / 100 * fw,
		Y: d.Y / 100 * fh,
		R: d.DisplayRadius / 100 * math.Min(fw, fh) * radiusScale,
	}, true
}
