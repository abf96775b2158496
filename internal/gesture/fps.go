package gesture

import "time"

// fpsAlpha is the weight of the newest instantaneous rate.
const fpsAlpha = 0.1

// FPSMeter smooths the frame rate with an exponential moving average.
// It is not safe for concurrent use; the frame loop owns it.
type FPSMeter struct {
	fps  float64
	prev time.Time
}

// NewFPSMeter starts measuring from start.
func NewFPSMeter(start time.Time) *FPSMeter {
	return &FPSMeter{prev: start}
}

// Tick records a frame at now and returns the smoothed rate. A
// non-positive interval leaves the rate unchanged.
func (m *FPSMeter) Tick(now time.Time) float64 {
	dt := now.Sub(m.prev).Seconds()
	if dt > 0 {
		m.fps = (1-fpsAlpha)*m.fps + fpsAlpha*(1/dt)
	}
	m.prev = now
	return m.fps
}

// FPS returns the current smoothed rate.
func (m *FPSMeter) FPS() float64 {
	return m.fps
}
