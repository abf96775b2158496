package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// DefaultIdleAfter is how long a still scene must last before it counts as idle.
const DefaultIdleAfter = 2 * time.Second

const (
	blurKernel   = 21
	pixelDiffCut = 25
	motionScale  = 0.25
)

// MotionDetector compares consecutive frames and reports the share of pixels
// that changed. Frames are downscaled and blurred first to ignore sensor
// noise.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector reports motion when more than threshold percent of the
// pixels change between two frames.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect returns whether frame differs from the previous one and the
// percentage of changed pixels. The first frame only primes the detector.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(*frame, &small, image.Point{}, motionScale, motionScale, gocv.InterpolationArea)

	gray := gocv.NewMat()
	defer gray.Close()
	if small.Channels() > 1 {
		gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)
	} else {
		small.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !m.primed || m.prev.Rows() != gray.Rows() || m.prev.Cols() != gray.Cols() {
		gray.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prev, &diff)
	gocv.Threshold(diff, &diff, pixelDiffCut, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	gray.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset forgets the previous frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primed = false
}

// Close releases the stored frame.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev.Close()
	m.primed = false
}

// IdleTracker turns per-frame motion results into an idle flag. The scene
// becomes idle once no motion has been seen for the configured period.
type IdleTracker struct {
	after      time.Duration
	lastMotion time.Time
}

// NewIdleTracker starts tracking at now. A non-positive after uses
// DefaultIdleAfter.
func NewIdleTracker(after time.Duration, now time.Time) *IdleTracker {
	if after <= 0 {
		after = DefaultIdleAfter
	}
	return &IdleTracker{after: after, lastMotion: now}
}

// Observe records a frame at now and reports whether the scene is idle.
func (t *IdleTracker) Observe(moving bool, now time.Time) bool {
	if moving {
		t.lastMotion = now
		return false
	}
	return now.Sub(t.lastMotion) >= t.after
}
