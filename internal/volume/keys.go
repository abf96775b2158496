package volume

import (
	"context"

	"github.com/go-vgo/robotgo"

	"github.com/ayusman/handvol/internal/gesture"
)

// Media key names understood by robotgo.
const (
	keyVolumeUp   = "audio_vol_up"
	keyVolumeDown = "audio_vol_down"
)

// KeyController presses the OS volume keys. It can only step.
type KeyController struct {
	tap func(key string, args ...interface{}) error
}

// NewKeyController returns a controller backed by robotgo.
func NewKeyController() *KeyController {
	return &KeyController{tap: robotgo.KeyTap}
}

func (k *KeyController) Step(_ context.Context, action gesture.Action) error {
	switch action {
	case gesture.ActionIncrease:
		return k.tap(keyVolumeUp)
	case gesture.ActionDecrease:
		return k.tap(keyVolumeDown)
	default:
		return nil
	}
}

func (k *KeyController) Set(context.Context, float64) error {
	return ErrUnsupported
}

func (k *KeyController) Get(context.Context) (int, error) {
	return 0, ErrUnsupported
}
