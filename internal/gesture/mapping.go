package gesture

import (
	"errors"
	"math"
	"sync"
	"time"
)

// Action is the discrete volume command derived from a distance.
type Action string

const (
	ActionNone     Action = "none"
	ActionIncrease Action = "increase"
	ActionDecrease Action = "decrease"
)

// DefaultDebounce is the minimum gap between two fired step actions.
const DefaultDebounce = 120 * time.Millisecond

// ErrInvalidCalibration is returned when MaxDist does not exceed MinDist.
var ErrInvalidCalibration = errors.New("max distance must be greater than min distance")

// Calibration is the pinch range, in pixels, mapped to 0-100%.
type Calibration struct {
	MinDist int `json:"min_dist"`
	MaxDist int `json:"max_dist"`
}

// DefaultCalibration is the range used by the dashboard.
func DefaultCalibration() Calibration {
	return Calibration{MinDist: 25, MaxDist: 160}
}

// Validate rejects empty or inverted ranges.
func (c Calibration) Validate() error {
	if c.MaxDist <= c.MinDist {
		return ErrInvalidCalibration
	}
	return nil
}

// Percent maps a distance to a volume percentage clamped to [0, 100].
func (c Calibration) Percent(dist int) float64 {
	span := float64(c.MaxDist - c.MinDist)
	if span <= 0 {
		return 0
	}
	return clamp(float64(dist-c.MinDist)/span*100, 0, 100)
}

// Action returns decrease below the range, increase above it and none inside.
func (c Calibration) Action(dist int) Action {
	switch {
	case dist < c.MinDist:
		return ActionDecrease
	case dist > c.MaxDist:
		return ActionIncrease
	default:
		return ActionNone
	}
}

// StatusFor labels an action for display.
func StatusFor(a Action) string {
	switch a {
	case ActionDecrease:
		return "Decreasing"
	case ActionIncrease:
		return "Increasing"
	default:
		return "Stable"
	}
}

// Stepper decides when step actions fire. Actions outside the calibrated
// range fire at most once per debounce interval.
type Stepper struct {
	mu        sync.Mutex
	cal       Calibration
	debounce  time.Duration
	lastFired time.Time
}

// NewStepper creates a Stepper. A non-positive debounce uses DefaultDebounce.
func NewStepper(cal Calibration, debounce time.Duration) *Stepper {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Stepper{cal: cal, debounce: debounce}
}

// SetCalibration replaces the active range.
func (s *Stepper) SetCalibration(cal Calibration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cal = cal
}

// Calibration returns the active range.
func (s *Stepper) Calibration() Calibration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cal
}

// Decide returns the action for dist and whether it should fire at now.
// The debounce clock only advances when an action fires.
func (s *Stepper) Decide(dist int, now time.Time) (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action := s.cal.Action(dist)
	if action == ActionNone {
		return action, false
	}
	if now.Sub(s.lastFired) <= s.debounce {
		return action, false
	}
	s.lastFired = now
	return action, true
}

// AbsoluteMapper sets the volume directly from the distance, ignoring
// small changes to avoid flicker.
type AbsoluteMapper struct {
	MinDist  int
	MaxDist  int
	Deadband float64
}

// DefaultAbsoluteMapper matches the synced web demo: 10-150px, 2% dead-band.
func DefaultAbsoluteMapper() AbsoluteMapper {
	return AbsoluteMapper{MinDist: 10, MaxDist: 150, Deadband: 2}
}

// Target returns the volume percentage for dist.
func (m AbsoluteMapper) Target(dist int) float64 {
	lo, hi := float64(m.MinDist), float64(m.MaxDist)
	if hi <= lo {
		return 0
	}
	d := clamp(float64(dist), lo, hi)
	return (d - lo) / (hi - lo) * 100
}

// ShouldSet reports whether target differs enough from current to apply.
func (m AbsoluteMapper) ShouldSet(target, current float64) bool {
	return math.Abs(target-current) > m.Deadband
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
