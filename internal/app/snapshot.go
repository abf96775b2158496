package app

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handvol/internal/capture"
	"github.com/ayusman/handvol/internal/gesture"
	"github.com/ayusman/handvol/internal/log"
	"github.com/ayusman/handvol/internal/overlay"
)

// Status strings shown next to the metrics.
const (
	StatusReady   = "Ready"
	StatusPaused  = "Paused"
	StatusWaiting = "Waiting for camera"
	StatusIdle    = "Idle"
	StatusNoHand  = "No hand"
)

// Snapshot is the outcome of one processed frame.
type Snapshot struct {
	State         State             `json:"state"`
	Status        string            `json:"status"`
	HandDetected  bool              `json:"hand_detected"`
	Distance      int               `json:"distance"`
	Percent       float64           `json:"percent"`
	Action        gesture.Action    `json:"action"`
	HandState     gesture.HandState `json:"hand_state"`
	FPS           float64           `json:"fps"`
	TotalGestures int               `json:"total_gestures"`
	Timestamp     time.Time         `json:"timestamp"`
	// Frame is the annotated JPEG, nil when no frame was captured.
	Frame []byte `json:"-"`
}

// Snapshot returns the most recent snapshot.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Subscribe returns a channel receiving every new snapshot and a func that
// unsubscribes. Slow readers only see the latest snapshot.
func (a *App) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	a.subMu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = ch
	a.subMu.Unlock()

	cancel := func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		if c, ok := a.subs[id]; ok {
			close(c)
			delete(a.subs, id)
		}
	}
	return ch, cancel
}

func (a *App) publish(s Snapshot) {
	a.mu.Lock()
	s.State = a.state
	s.TotalGestures = a.total
	if s.Frame == nil {
		s.Frame = a.snapshot.Frame
	}
	a.snapshot = s
	a.mu.Unlock()

	a.subMu.Lock()
	defer a.subMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- s:
		default:
			// Drop the stale snapshot in favor of the new one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// publishPlacard replaces the frame with a dark card showing status. A
// paused session keeps its last metrics on screen.
func (a *App) publishPlacard(status string) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 40, 40, 0), capture.DefaultHeight, capture.DefaultWidth, gocv.MatTypeCV8UC3)
	defer img.Close()
	overlay.Placard(&img, status)

	frame, err := overlay.EncodeJPEG(img, overlay.StreamQuality)
	if err != nil {
		log.Warn(log.Fields{"error": err}, "encoding placard")
	}

	s := Snapshot{
		Status:    status,
		Action:    gesture.ActionNone,
		HandState: gesture.StateNone,
		Timestamp: time.Now(),
		Frame:     frame,
	}
	if prev := a.Snapshot(); a.State() == StatePaused {
		s.Distance, s.Percent, s.FPS = prev.Distance, prev.Percent, prev.FPS
	}
	a.publish(s)
}
