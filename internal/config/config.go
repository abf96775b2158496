// Package config loads handvol runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Volume backends.
const (
	BackendKeys   = "keys"
	BackendPlugin = "plugin"
	BackendNone   = "none"
)

// Hand state classifiers.
const (
	ClassifierDistance = "distance"
	ClassifierFingers  = "fingers"
)

// DefaultJWTSecret signs sessions when JWT_SECRET is unset. It is public, so
// anyone can forge tokens for a server running with it.
const DefaultJWTSecret = "handvol-local-development-secret"

// Config holds every tunable of the application.
type Config struct {
	Addr     string `validate:"required"`
	DataDir  string `validate:"required"`
	LogLevel string `validate:"oneof=debug info warn error"`
	LogDir   string

	CameraID int `validate:"gte=0"`

	MinDist       int           `validate:"gte=10,lte=100"`
	MaxDist       int           `validate:"gte=100,lte=300,gtfield=MinDist"`
	Debounce      time.Duration `validate:"gt=0"`
	DetectionConf float64       `validate:"gte=0.5,lte=0.9"`
	TrackingConf  float64       `validate:"gte=0.4,lte=0.8"`

	// MotionThreshold is the percentage of changed pixels that counts as
	// motion. Zero disables idle throttling.
	MotionThreshold float64 `validate:"gte=0"`

	// HandClassifier names the rule behind the Open/Closed/Pinched badge.
	HandClassifier string `validate:"oneof=distance fingers"`

	VolumeBackend string `validate:"oneof=keys plugin none"`
	PluginDir     string

	JWTSecret string        `validate:"required,min=16"`
	TokenTTL  time.Duration `validate:"gt=0"`
}

// Default returns the configuration used when nothing is set in the
// environment. Calibration defaults match the dashboard demos.
func Default() Config {
	dataDir := ".handvol"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".handvol")
	}

	return Config{
		Addr:            "127.0.0.1:5000",
		DataDir:         dataDir,
		LogLevel:        "info",
		CameraID:        0,
		MinDist:         25,
		MaxDist:         160,
		Debounce:        120 * time.Millisecond,
		DetectionConf:   0.6,
		TrackingConf:    0.5,
		MotionThreshold: 0,
		HandClassifier:  ClassifierDistance,
		VolumeBackend:   BackendKeys,
		PluginDir:       filepath.Join(dataDir, "plugins"),
		JWTSecret:       DefaultJWTSecret,
		TokenTTL:        12 * time.Hour,
	}
}

// Load reads an optional .env file and overlays environment variables on
// top of Default. The result is validated.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using getenv for lookups.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	var err error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if err != nil {
			return
		}
		if v := getenv(key); v != "" {
			var n int
			n, err = strconv.Atoi(v)
			if err != nil {
				err = fmt.Errorf("%s: %w", key, err)
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if err != nil {
			return
		}
		if v := getenv(key); v != "" {
			var f float64
			f, err = strconv.ParseFloat(v, 64)
			if err != nil {
				err = fmt.Errorf("%s: %w", key, err)
				return
			}
			*dst = f
		}
	}

	str("HANDVOL_ADDR", &cfg.Addr)
	if v := getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
		cfg.PluginDir = filepath.Join(v, "plugins")
	}
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_DIR", &cfg.LogDir)
	str("VOLUME_BACKEND", &cfg.VolumeBackend)
	str("PLUGIN_DIR", &cfg.PluginDir)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("HAND_CLASSIFIER", &cfg.HandClassifier)

	num("CAMERA_ID", &cfg.CameraID)
	num("MIN_DIST", &cfg.MinDist)
	num("MAX_DIST", &cfg.MaxDist)

	debounceMs := int(cfg.Debounce / time.Millisecond)
	num("DEBOUNCE_MS", &debounceMs)
	cfg.Debounce = time.Duration(debounceMs) * time.Millisecond

	float("DETECTION_CONF", &cfg.DetectionConf)
	float("TRACKING_CONF", &cfg.TrackingConf)
	float("MOTION_THRESHOLD", &cfg.MotionThreshold)

	if err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field ranges.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DefaultSecret reports whether sessions are signed with DefaultJWTSecret.
func (c Config) DefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

// DBPath returns the SQLite database location inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "handvol.db")
}
