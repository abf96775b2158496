package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	err    error
	calls  int
	config *Config
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls reports how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Reconfigure records the last applied configuration.
func (m *MockDetector) Reconfigure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = &cfg
}

// LastConfig returns the configuration passed to Reconfigure, if any.
func (m *MockDetector) LastConfig() (Config, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config == nil {
		return Config{}, false
	}
	return *m.config, true
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

func preset(points [NumLandmarks]Point3D) HandLandmarks {
	return HandLandmarks{Points: points, Handedness: "Right", Score: 0.95}
}

// PinchLandmarks returns a hand whose thumb and index tips almost touch:
// 10px apart in a 640x480 frame. Middle finger and thumb are up, the rest
// are curled.
func PinchLandmarks() HandLandmarks {
	return preset([NumLandmarks]Point3D{
		Wrist:    {X: 0.5, Y: 0.9},
		ThumbCMC: {X: 0.42, Y: 0.82},
		ThumbMCP: {X: 0.4, Y: 0.7},
		ThumbIP:  {X: 0.45, Y: 0.55},
		ThumbTip: {X: 0.5, Y: 0.5},

		IndexMCP: {X: 0.55, Y: 0.62},
		IndexPIP: {X: 0.56, Y: 0.46},
		IndexDIP: {X: 0.54, Y: 0.47},
		IndexTip: {X: 0.515625, Y: 0.5},

		MiddleMCP: {X: 0.5, Y: 0.6},
		MiddlePIP: {X: 0.5, Y: 0.42},
		MiddleDIP: {X: 0.5, Y: 0.32},
		MiddleTip: {X: 0.5, Y: 0.25},

		RingMCP: {X: 0.45, Y: 0.62},
		RingPIP: {X: 0.44, Y: 0.52},
		RingDIP: {X: 0.44, Y: 0.58},
		RingTip: {X: 0.45, Y: 0.62},

		PinkyMCP: {X: 0.4, Y: 0.66},
		PinkyPIP: {X: 0.39, Y: 0.58},
		PinkyDIP: {X: 0.39, Y: 0.63},
		PinkyTip: {X: 0.4, Y: 0.67},
	})
}

// PointLandmarks returns a hand with only the index finger raised. Thumb and
// index tips are 100px apart in a 640x480 frame.
func PointLandmarks() HandLandmarks {
	return preset([NumLandmarks]Point3D{
		Wrist:    {X: 0.5, Y: 0.9},
		ThumbCMC: {X: 0.45, Y: 0.82},
		ThumbMCP: {X: 0.48, Y: 0.7},
		ThumbIP:  {X: 0.52, Y: 0.55},
		ThumbTip: {X: 0.5, Y: 0.5},

		IndexMCP: {X: 0.56, Y: 0.6},
		IndexPIP: {X: 0.59, Y: 0.48},
		IndexDIP: {X: 0.61, Y: 0.42},
		IndexTip: {X: 0.625, Y: 0.375},

		MiddleMCP: {X: 0.5, Y: 0.6},
		MiddlePIP: {X: 0.5, Y: 0.42},
		MiddleDIP: {X: 0.5, Y: 0.4},
		MiddleTip: {X: 0.5, Y: 0.4375},

		RingMCP: {X: 0.45, Y: 0.62},
		RingPIP: {X: 0.44, Y: 0.52},
		RingDIP: {X: 0.44, Y: 0.58},
		RingTip: {X: 0.45, Y: 0.62},

		PinkyMCP: {X: 0.4, Y: 0.66},
		PinkyPIP: {X: 0.39, Y: 0.58},
		PinkyDIP: {X: 0.39, Y: 0.63},
		PinkyTip: {X: 0.4, Y: 0.67},
	})
}

// SpreadLandmarks returns an open palm with the thumb stretched away from
// the index finger: 339px between the tips in a 640x480 frame.
func SpreadLandmarks() HandLandmarks {
	return preset([NumLandmarks]Point3D{
		Wrist:    {X: 0.5, Y: 0.9},
		ThumbCMC: {X: 0.4, Y: 0.85},
		ThumbMCP: {X: 0.3, Y: 0.82},
		ThumbIP:  {X: 0.22, Y: 0.78},
		ThumbTip: {X: 0.25, Y: 0.75},

		IndexMCP: {X: 0.55, Y: 0.6},
		IndexPIP: {X: 0.58, Y: 0.45},
		IndexDIP: {X: 0.6, Y: 0.35},
		IndexTip: {X: 0.625, Y: 0.25},

		MiddleMCP: {X: 0.5, Y: 0.58},
		MiddlePIP: {X: 0.5, Y: 0.4},
		MiddleDIP: {X: 0.5, Y: 0.25},
		MiddleTip: {X: 0.5, Y: 0.125},

		RingMCP: {X: 0.45, Y: 0.6},
		RingPIP: {X: 0.43, Y: 0.45},
		RingDIP: {X: 0.42, Y: 0.35},
		RingTip: {X: 0.41, Y: 0.27},

		PinkyMCP: {X: 0.4, Y: 0.65},
		PinkyPIP: {X: 0.37, Y: 0.55},
		PinkyDIP: {X: 0.35, Y: 0.47},
		PinkyTip: {X: 0.34, Y: 0.4},
	})
}
