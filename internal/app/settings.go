package app

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ayusman/handvol/internal/detector"
	"github.com/ayusman/handvol/internal/gesture"
	"github.com/ayusman/handvol/internal/log"
	"github.com/ayusman/handvol/internal/store"
)

var validate = validator.New()

// Settings are the live-tunable values exposed on the dashboard.
type Settings struct {
	MinDist       int     `json:"min_dist" validate:"gte=10,lte=100"`
	MaxDist       int     `json:"max_dist" validate:"gte=100,lte=300,gtfield=MinDist"`
	DetectionConf float64 `json:"detection_conf" validate:"gte=0.5,lte=0.9"`
	TrackingConf  float64 `json:"tracking_conf" validate:"gte=0.4,lte=0.8"`
}

// DefaultSettings mirrors the dashboard's initial slider positions.
func DefaultSettings() Settings {
	return Settings{MinDist: 25, MaxDist: 160, DetectionConf: 0.6, TrackingConf: 0.5}
}

// Validate checks every field against the dashboard slider ranges.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// Calibration returns the pinch range part of s.
func (s Settings) Calibration() gesture.Calibration {
	return gesture.Calibration{MinDist: s.MinDist, MaxDist: s.MaxDist}
}

// Settings returns the active settings.
func (a *App) Settings() Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// ApplySettings validates s, applies it to the running pipeline and
// persists it.
func (a *App) ApplySettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	prev := a.settings
	a.settings = s
	a.mu.Unlock()

	a.stepper.SetCalibration(s.Calibration())
	if prev.DetectionConf != s.DetectionConf || prev.TrackingConf != s.TrackingConf {
		if r, ok := a.detector.(detector.Reconfigurable); ok {
			r.Reconfigure(a.detectorConfig(s))
		}
	}

	log.Info(log.Fields{
		"min_dist":       s.MinDist,
		"max_dist":       s.MaxDist,
		"detection_conf": s.DetectionConf,
		"tracking_conf":  s.TrackingConf,
	}, "settings applied")

	return a.persistSettings(s)
}

// ApplyCalibration replaces the pinch range, keeping the detection settings.
func (a *App) ApplyCalibration(cal gesture.Calibration) error {
	s := a.Settings()
	s.MinDist, s.MaxDist = cal.MinDist, cal.MaxDist
	return a.ApplySettings(s)
}

// ApplyDetection replaces the detector confidences, keeping the calibration.
func (a *App) ApplyDetection(detectionConf, trackingConf float64) error {
	s := a.Settings()
	s.DetectionConf, s.TrackingConf = detectionConf, trackingConf
	return a.ApplySettings(s)
}

func (a *App) detectorConfig(s Settings) detector.Config {
	cfg := detector.DefaultConfig()
	cfg.MinConfidence = s.DetectionConf
	cfg.MinTrackingConf = s.TrackingConf
	return cfg
}

func (a *App) persistSettings(s Settings) error {
	if a.store == nil {
		return nil
	}
	err := a.store.Settings().SetMany(map[string]string{
		store.KeyMinDist:       strconv.Itoa(s.MinDist),
		store.KeyMaxDist:       strconv.Itoa(s.MaxDist),
		store.KeyDetectionConf: strconv.FormatFloat(s.DetectionConf, 'f', -1, 64),
		store.KeyTrackingConf:  strconv.FormatFloat(s.TrackingConf, 'f', -1, 64),
	})
	if err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	return nil
}

// loadSettings overlays persisted values on def. Invalid stored values are
// ignored as a whole.
func loadSettings(st *store.Store, def Settings) Settings {
	if st == nil {
		return def
	}
	repo := st.Settings()
	s := Settings{
		MinDist:       repo.Int(store.KeyMinDist, def.MinDist),
		MaxDist:       repo.Int(store.KeyMaxDist, def.MaxDist),
		DetectionConf: repo.Float(store.KeyDetectionConf, def.DetectionConf),
		TrackingConf:  repo.Float(store.KeyTrackingConf, def.TrackingConf),
	}
	if err := s.Validate(); err != nil {
		log.Warn(log.Fields{"error": err}, "ignoring stored settings")
		return def
	}
	return s
}
