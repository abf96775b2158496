// Package volume applies gesture decisions to the system mixer.
package volume

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayusman/handvol/internal/config"
	"github.com/ayusman/handvol/internal/gesture"
)

// StepPercent is how far one step action moves the volume, matching a single
// press of a volume key on most desktops.
const StepPercent = 2

// ErrUnsupported is returned by controllers that cannot perform an operation.
var ErrUnsupported = errors.New("operation not supported by volume backend")

// Controller changes and reads the system volume.
type Controller interface {
	// Step nudges the volume up or down. ActionNone is a no-op.
	Step(ctx context.Context, action gesture.Action) error
	// Set moves the volume to pct, clamped to [0, 100].
	Set(ctx context.Context, pct float64) error
	// Get returns the current volume in percent.
	Get(ctx context.Context) (int, error)
}

// New returns the controller for backend. pluginDir is only used by the
// plugin backend.
func New(backend, pluginDir string) (Controller, error) {
	switch backend {
	case config.BackendKeys:
		return NewKeyController(), nil
	case config.BackendPlugin:
		return NewPluginController(pluginDir, 0)
	case config.BackendNone:
		return NewRecorder(50), nil
	default:
		return nil, fmt.Errorf("unknown volume backend %q", backend)
	}
}

func clampPercent(pct float64) float64 {
	return max(0, min(100, pct))
}
