package gesture

import (
	"fmt"

	"github.com/ayusman/handvol/internal/detector"
)

// HandState is the coarse pose shown on the dashboard badges.
type HandState string

const (
	StateNone    HandState = "—"
	StateOpen    HandState = "Open"
	StateClosed  HandState = "Closed"
	StatePinched HandState = "Pinched"
)

// Thresholds for ClassifyByDistance, in pixels.
const (
	openSpan  = 80
	pinchSpan = 40
)

// Classifier maps a hand to a HandState for a frame of the given size.
type Classifier func(hand *detector.HandLandmarks, width, height int) HandState

// ClassifierByName returns the classifier registered as "distance" or
// "fingers".
func ClassifierByName(name string) (Classifier, error) {
	switch name {
	case "distance":
		return ClassifyByDistance, nil
	case "fingers":
		return ClassifyByFingers, nil
	}
	return nil, fmt.Errorf("unknown hand classifier %q", name)
}

// ClassifyByDistance looks at the thumb-index and thumb-middle spans:
// both wide is Open, a tight thumb-index span is Pinched, anything else is
// Closed.
func ClassifyByDistance(hand *detector.HandLandmarks, width, _ int) HandState {
	if hand == nil {
		return StateNone
	}

	thumbIndex := normalizedSpan(hand, detector.ThumbTip, detector.IndexTip, width)
	thumbMiddle := normalizedSpan(hand, detector.ThumbTip, detector.MiddleTip, width)

	switch {
	case thumbIndex > openSpan && thumbMiddle > openSpan:
		return StateOpen
	case thumbIndex < pinchSpan:
		return StatePinched
	default:
		return StateClosed
	}
}

var fingerJoints = [][2]int{
	{detector.IndexTip, detector.IndexPIP},
	{detector.MiddleTip, detector.MiddlePIP},
	{detector.RingTip, detector.RingPIP},
	{detector.PinkyTip, detector.PinkyPIP},
}

// ClassifyByFingers counts raised fingers: a finger is up when its tip is
// above its PIP joint, the thumb when its tip is right of its IP joint.
// Five is Open, at most one is Closed, anything between is Pinched.
func ClassifyByFingers(hand *detector.HandLandmarks, width, height int) HandState {
	if hand == nil {
		return StateNone
	}

	h, w := float64(height), float64(width)
	open := 0
	for _, j := range fingerJoints {
		if hand.Points[j[0]].Y*h < hand.Points[j[1]].Y*h {
			open++
		}
	}
	if hand.Points[detector.ThumbTip].X*w > hand.Points[detector.ThumbIP].X*w {
		open++
	}

	switch {
	case open >= 5:
		return StateOpen
	case open <= 1:
		return StateClosed
	default:
		return StatePinched
	}
}
