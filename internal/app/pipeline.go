package app

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handvol/internal/capture"
	"github.com/ayusman/handvol/internal/gesture"
	"github.com/ayusman/handvol/internal/log"
	"github.com/ayusman/handvol/internal/overlay"
	"github.com/ayusman/handvol/internal/store"
	"github.com/ayusman/handvol/internal/volume"
)

// loop holds the state owned by one run of the frame loop.
type loop struct {
	fps         *gesture.FPSMeter
	idle        *capture.IdleTracker
	idling      bool
	waiting     bool
	detectFails bool
	// level is the last volume set in absolute mode, used when the mixer
	// cannot report its level; negative before the first set.
	level float64
}

func newLoop(now time.Time) *loop {
	return &loop{
		fps:   gesture.NewFPSMeter(now),
		idle:  capture.NewIdleTracker(capture.DefaultIdleAfter, now),
		level: -100,
	}
}

// run reads, processes and publishes frames until ctx is cancelled.
func (a *App) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	l := newLoop(time.Now())
	ticker := time.NewTicker(time.Second / time.Duration(a.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			if !l.waiting {
				log.Warn(log.Fields{"error": err}, "camera unavailable, waiting")
				l.waiting = true
			}
			a.publish(Snapshot{
				Status:    StatusWaiting,
				Action:    gesture.ActionNone,
				HandState: gesture.StateNone,
				FPS:       l.fps.FPS(),
				Timestamp: time.Now(),
			})
			select {
			case <-ctx.Done():
				return
			case <-time.After(cameraRetry):
			}
			continue
		}
		l.waiting = false

		snap := a.processFrame(ctx, l, frame, time.Now())
		frame.Close()
		a.publish(snap)

		if idle := snap.Status == StatusIdle; idle != l.idling {
			l.idling = idle
			fps := a.fps
			if idle {
				fps = IdleFPS
			}
			a.camera.SetFPS(fps)
			ticker.Reset(time.Second / time.Duration(fps))
			log.Debug(log.Fields{"fps": fps}, "frame rate changed")
		}
	}
}

// processFrame turns one camera frame into a Snapshot, firing volume actions
// on the way. The frame is mirrored and annotated in place.
func (a *App) processFrame(ctx context.Context, l *loop, frame *gocv.Mat, now time.Time) Snapshot {
	capture.Mirror(frame)
	w, h := frame.Cols(), frame.Rows()

	snap := Snapshot{
		Status:    StatusNoHand,
		Action:    gesture.ActionNone,
		HandState: gesture.StateNone,
		Timestamp: now,
	}

	idle := false
	if a.motion != nil {
		moving, _ := a.motion.Detect(frame)
		idle = l.idle.Observe(moving, now)
	}

	if idle {
		snap.Status = StatusIdle
	} else {
		hands, err := a.detector.Detect(frame)
		if err != nil {
			if !l.detectFails {
				log.Warn(log.Fields{"error": err}, "hand detection failed")
				l.detectFails = true
			}
		} else {
			l.detectFails = false
		}

		if len(hands) > 0 {
			hand := &hands[0]
			snap.HandDetected = true
			snap.Distance = gesture.PixelDistance(hand, w, h)
			snap.HandState = a.classifier(hand, w, h)
			a.applyVolume(ctx, l, &snap, now)

			overlay.Skeleton(frame, hand)
			overlay.Pinch(frame, hand, snap.Distance)
		}
	}

	a.history.Add(gesture.Sample{Distance: snap.Distance, Percent: snap.Percent})
	snap.FPS = l.fps.Tick(now)

	if a.mode != ModeObserve {
		overlay.Panel(frame, overlay.Metrics{
			Distance: snap.Distance,
			Percent:  snap.Percent,
			FPS:      snap.FPS,
			Gesture:  string(snap.HandState),
		})
		overlay.VolumeBar(frame, snap.Percent)
	}

	jpeg, err := overlay.EncodeJPEG(*frame, overlay.StreamQuality)
	if err != nil {
		log.Warn(log.Fields{"error": err}, "encoding frame")
	}
	snap.Frame = jpeg
	return snap
}

// applyVolume fills in percent, action and status for a detected hand and
// sends the resulting command to the mixer.
func (a *App) applyVolume(ctx context.Context, l *loop, snap *Snapshot, now time.Time) {
	switch a.mode {
	case ModeAbsolute:
		target := a.absolute.Target(snap.Distance)
		snap.Percent = target
		snap.Status = gesture.StatusFor(gesture.ActionNone)
		if !a.absolute.ShouldSet(target, a.currentLevel(ctx, l)) {
			return
		}
		if err := a.volume.Set(ctx, target); err != nil {
			log.Warn(log.Fields{"error": err, "target": target}, "setting volume")
			return
		}
		l.level = target
		a.recordFired("set", snap)

	case ModeStep:
		cal := a.stepper.Calibration()
		snap.Percent = cal.Percent(snap.Distance)
		action, fire := a.stepper.Decide(snap.Distance, now)
		snap.Action = action
		snap.Status = gesture.StatusFor(action)
		if !fire {
			return
		}
		if err := a.volume.Step(ctx, action); err != nil {
			log.Warn(log.Fields{"error": err, "action": action}, "stepping volume")
			return
		}
		a.recordFired(string(action), snap)

	default:
		snap.Percent = a.stepper.Calibration().Percent(snap.Distance)
		snap.Status = gesture.StatusFor(gesture.ActionNone)
	}
}

// currentLevel reads the mixer so that changes made outside the app are
// corrected. Backends that cannot report fall back to the last level set.
func (a *App) currentLevel(ctx context.Context, l *loop) float64 {
	v, err := a.volume.Get(ctx)
	if err != nil {
		if !errors.Is(err, volume.ErrUnsupported) {
			log.Debug(log.Fields{"error": err}, "reading system volume")
		}
		return l.level
	}
	return float64(v)
}

// recordFired counts a fired action and appends it to the event log.
func (a *App) recordFired(action string, snap *Snapshot) {
	a.mu.Lock()
	a.total++
	user := a.user
	a.mu.Unlock()

	if a.store == nil {
		return
	}
	err := a.store.Events().Create(&store.VolumeEvent{
		Username:  user,
		Action:    action,
		Distance:  snap.Distance,
		Percent:   snap.Percent,
		CreatedAt: snap.Timestamp,
	})
	if err != nil {
		log.Warn(log.Fields{"error": err}, "recording volume event")
	}
}
