// Package gesture turns hand landmarks into volume decisions: the pinch
// distance, its mapping to a percentage and an action, hand-state
// classification, frame-rate smoothing and the chart history.
package gesture

import (
	"image"
	"math"

	"github.com/ayusman/handvol/internal/detector"
)

// Distance returns the Euclidean distance between two pixel points,
// truncated to an integer.
func Distance(a, b image.Point) int {
	return int(math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y)))
}

// PixelDistance returns the thumb-tip to index-tip distance in pixels for a
// frame of the given size.
func PixelDistance(hand *detector.HandLandmarks, width, height int) int {
	if hand == nil {
		return 0
	}
	thumb := hand.Pixel(detector.ThumbTip, width, height)
	index := hand.Pixel(detector.IndexTip, width, height)
	return Distance(thumb, index)
}

// normalizedSpan measures the distance between two landmarks in normalized
// units and scales it by the frame width.
func normalizedSpan(hand *detector.HandLandmarks, a, b, width int) float64 {
	pa, pb := hand.Points[a], hand.Points[b]
	return math.Hypot(pb.X-pa.X, pb.Y-pa.Y) * float64(width)
}
