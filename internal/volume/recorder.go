package volume

import (
	"context"
	"math"
	"sync"

	"github.com/ayusman/handvol/internal/gesture"
)

// Recorder is an in-memory Controller. It keeps a level and remembers every
// call, which makes it the dry-run backend and the test double.
type Recorder struct {
	mu    sync.Mutex
	level float64
	steps []gesture.Action
	sets  []float64
	err   error
}

// NewRecorder starts at level percent.
func NewRecorder(level float64) *Recorder {
	return &Recorder{level: clampPercent(level)}
}

// SetError makes every following call fail with err. nil clears it.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Step(_ context.Context, action gesture.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	switch action {
	case gesture.ActionIncrease:
		r.level = clampPercent(r.level + StepPercent)
	case gesture.ActionDecrease:
		r.level = clampPercent(r.level - StepPercent)
	default:
		return nil
	}
	r.steps = append(r.steps, action)
	return nil
}

func (r *Recorder) Set(_ context.Context, pct float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.level = clampPercent(pct)
	r.sets = append(r.sets, r.level)
	return nil
}

func (r *Recorder) Get(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return 0, r.err
	}
	return int(math.Round(r.level)), nil
}

// Steps returns the step actions applied so far.
func (r *Recorder) Steps() []gesture.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gesture.Action(nil), r.steps...)
}

// Sets returns the levels applied by Set so far.
func (r *Recorder) Sets() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.sets...)
}
