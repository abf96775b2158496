// Package app runs the gesture volume session: it owns the camera, the
// detector and the volume controller, and publishes a Snapshot per frame.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/handvol/internal/capture"
	"github.com/ayusman/handvol/internal/detector"
	"github.com/ayusman/handvol/internal/gesture"
	"github.com/ayusman/handvol/internal/log"
	"github.com/ayusman/handvol/internal/store"
	"github.com/ayusman/handvol/internal/volume"
)

// Frame pacing.
const (
	ActiveFPS   = 30
	IdleFPS     = 5
	cameraRetry = 100 * time.Millisecond
)

// ErrNotRunning is returned by transitions that need an active session.
var ErrNotRunning = errors.New("session is not running")

// Mode selects how distances drive the volume.
type Mode string

const (
	// ModeStep presses volume up/down outside the calibrated range.
	ModeStep Mode = "step"
	// ModeAbsolute sets the volume from the distance directly.
	ModeAbsolute Mode = "absolute"
	// ModeObserve only measures; nothing is sent to the mixer.
	ModeObserve Mode = "observe"
)

// State is the session lifecycle.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// Options wires an App. Camera, Detector and Volume are required.
type Options struct {
	Camera   capture.Camera
	Detector detector.Detector
	Volume   volume.Controller
	// Store persists settings and volume events. Optional.
	Store *store.Store

	Mode     Mode
	Settings Settings
	Debounce time.Duration
	// MotionThreshold enables idle throttling when positive.
	MotionThreshold float64
	// Classifier labels the hand state. Defaults to gesture.ClassifyByDistance.
	Classifier gesture.Classifier
	// FPS caps the frame loop. Defaults to ActiveFPS.
	FPS int
}

// App is one gesture volume session.
type App struct {
	camera     capture.Camera
	detector   detector.Detector
	volume     volume.Controller
	store      *store.Store
	mode       Mode
	classifier gesture.Classifier
	stepper    *gesture.Stepper
	absolute   gesture.AbsoluteMapper
	history    *gesture.History
	motion     *capture.MotionDetector
	fps        int

	// trans serializes lifecycle transitions, including the waits for the
	// loop to exit and the camera to close.
	trans sync.Mutex

	mu       sync.RWMutex
	state    State
	settings Settings
	user     string
	total    int
	snapshot Snapshot
	cancel   context.CancelFunc
	done     chan struct{}

	subMu  sync.Mutex
	subs   map[int]chan Snapshot
	nextID int
}

// New builds an App. Settings stored in opts.Store take precedence over
// opts.Settings so that changes survive restarts.
func New(opts Options) (*App, error) {
	if opts.Camera == nil || opts.Detector == nil || opts.Volume == nil {
		return nil, errors.New("app: camera, detector and volume are required")
	}
	if opts.Mode == "" {
		opts.Mode = ModeStep
	}
	if opts.Classifier == nil {
		opts.Classifier = gesture.ClassifyByDistance
	}
	if opts.FPS <= 0 {
		opts.FPS = ActiveFPS
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}

	settings := loadSettings(opts.Store, opts.Settings)

	a := &App{
		camera:     opts.Camera,
		detector:   opts.Detector,
		volume:     opts.Volume,
		store:      opts.Store,
		mode:       opts.Mode,
		classifier: opts.Classifier,
		stepper:    gesture.NewStepper(settings.Calibration(), opts.Debounce),
		absolute:   gesture.DefaultAbsoluteMapper(),
		history:    gesture.NewHistory(gesture.DefaultHistorySize),
		fps:        opts.FPS,
		state:      StateStopped,
		settings:   settings,
		subs:       make(map[int]chan Snapshot),
	}
	if opts.MotionThreshold > 0 {
		a.motion = capture.NewMotionDetector(opts.MotionThreshold)
	}
	if r, ok := a.detector.(detector.Reconfigurable); ok {
		r.Reconfigure(a.detectorConfig(settings))
	}
	a.snapshot = Snapshot{State: StateStopped, Status: StatusReady, HandState: gesture.StateNone, Action: gesture.ActionNone}
	return a, nil
}

// Start opens the camera if needed and starts the frame loop. Starting a
// paused session resumes it.
func (a *App) Start() error {
	a.trans.Lock()
	defer a.trans.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateRunning {
		return nil
	}
	if !a.camera.IsOpen() {
		if err := a.camera.Open(); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
	}
	a.launch()
	log.Info(log.Fields{"mode": a.mode, "user": a.user}, "session started")
	return nil
}

// Pause stops frame processing and keeps the camera open.
func (a *App) Pause() error {
	a.trans.Lock()
	defer a.trans.Unlock()
	a.mu.Lock()
	if a.state != StateRunning {
		a.mu.Unlock()
		return ErrNotRunning
	}
	a.state = StatePaused
	halt := a.halt()
	a.mu.Unlock()

	halt()
	a.publishPlacard(StatusPaused)
	log.Info(nil, "session paused")
	return nil
}

// Resume restarts frame processing after Pause.
func (a *App) Resume() error {
	a.trans.Lock()
	defer a.trans.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateRunning:
		return nil
	case StateStopped:
		return ErrNotRunning
	}
	a.launch()
	log.Info(nil, "session resumed")
	return nil
}

// Stop ends the session, releases the camera and clears the history.
func (a *App) Stop() error {
	a.trans.Lock()
	defer a.trans.Unlock()
	a.mu.Lock()
	if a.state == StateStopped {
		a.mu.Unlock()
		return nil
	}
	a.state = StateStopped
	halt := a.halt()
	a.mu.Unlock()

	halt()
	if err := a.camera.Close(); err != nil {
		log.Warn(log.Fields{"error": err}, "closing camera")
	}
	a.history.Reset()
	if a.motion != nil {
		a.motion.Reset()
	}
	a.publishPlacard(StatusReady)
	log.Info(nil, "session stopped")
	return nil
}

// Close stops the session and releases the detector.
func (a *App) Close() error {
	a.Stop()
	if a.motion != nil {
		a.motion.Close()
	}
	a.subMu.Lock()
	for id, ch := range a.subs {
		close(ch)
		delete(a.subs, id)
	}
	a.subMu.Unlock()
	return a.detector.Close()
}

// launch starts the loop goroutine. Callers hold mu.
func (a *App) launch() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	a.state = StateRunning
	go a.run(ctx, a.done)
}

// halt detaches the loop and returns a func that waits for it to exit.
// Callers hold mu; the returned func must be called without it.
func (a *App) halt() func() {
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	return func() {
		if cancel != nil {
			cancel()
			<-done
		}
	}
}

// State returns the lifecycle state.
func (a *App) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Mode returns the volume mode.
func (a *App) Mode() Mode {
	return a.mode
}

// SetUser names the account recorded with volume events.
func (a *App) SetUser(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = username
}

// User returns the account recorded with volume events.
func (a *App) User() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

// TotalGestures counts the volume actions fired since the app was created.
func (a *App) TotalGestures() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.total
}

// History returns the chart buffer.
func (a *App) History() *gesture.History {
	return a.history
}

// Volume reads the system volume, falling back to the last computed
// percentage when the backend cannot report it.
func (a *App) Volume(ctx context.Context) int {
	v, err := a.volume.Get(ctx)
	if err == nil {
		return v
	}
	if !errors.Is(err, volume.ErrUnsupported) {
		log.Debug(log.Fields{"error": err}, "reading system volume")
	}
	return int(a.Snapshot().Percent)
}

// Events returns the volume event log, or nil when there is no store.
func (a *App) Events() *store.EventRepository {
	if a.store == nil {
		return nil
	}
	return a.store.Events()
}
