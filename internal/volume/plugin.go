package volume

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ayusman/handvol/internal/gesture"
	"github.com/ayusman/handvol/internal/plugin"
)

// Plugin actions used by PluginController.
const (
	ActionUp   = "volume-up"
	ActionDown = "volume-down"
	ActionSet  = "volume-set"
	ActionGet  = "volume-get"
)

type pluginParams struct {
	Level int `json:"level,omitempty"`
	Step  int `json:"step,omitempty"`
}

type pluginData struct {
	Volume int `json:"volume"`
}

// PluginController runs the system-control plugin for every operation.
type PluginController struct {
	mgr  *plugin.Manager
	exec *plugin.Executor
}

// NewPluginController discovers the plugins in dir. The returned controller
// fails at call time if no plugin supports a requested action.
func NewPluginController(dir string, timeout time.Duration) (*PluginController, error) {
	mgr := plugin.NewManager(dir)
	if err := mgr.Discover(); err != nil {
		return nil, err
	}
	return &PluginController{mgr: mgr, exec: plugin.NewExecutor(timeout)}, nil
}

func (c *PluginController) Step(ctx context.Context, action gesture.Action) error {
	switch action {
	case gesture.ActionIncrease:
		_, err := c.call(ctx, ActionUp, pluginParams{Step: StepPercent})
		return err
	case gesture.ActionDecrease:
		_, err := c.call(ctx, ActionDown, pluginParams{Step: StepPercent})
		return err
	default:
		return nil
	}
}

func (c *PluginController) Set(ctx context.Context, pct float64) error {
	_, err := c.call(ctx, ActionSet, pluginParams{Level: int(math.Round(clampPercent(pct)))})
	return err
}

func (c *PluginController) Get(ctx context.Context) (int, error) {
	return c.call(ctx, ActionGet, pluginParams{})
}

func (c *PluginController) call(ctx context.Context, action string, p pluginParams) (int, error) {
	plug, err := c.mgr.ForAction(action)
	if err != nil {
		return 0, err
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return 0, err
	}
	resp, err := c.exec.Execute(ctx, plug, &plugin.Request{Action: action, Params: raw})
	if err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, fmt.Errorf("%s: %s", action, resp.Error)
	}

	var data pluginData
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return 0, fmt.Errorf("decode %s data: %w", action, err)
		}
	}
	return data.Volume, nil
}
