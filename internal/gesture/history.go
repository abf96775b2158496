package gesture

import "sync"

// DefaultHistorySize is the number of samples kept for charting.
const DefaultHistorySize = 100

// Sample is one frame's contribution to the chart.
type Sample struct {
	Distance int     `json:"distance"`
	Percent  float64 `json:"percent"`
}

// History is a bounded FIFO of samples, safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	samples []Sample
	size    int
}

// NewHistory creates a History holding at most size samples.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{samples: make([]Sample, 0, size), size: size}
}

// Add appends s, dropping the oldest sample when full.
func (h *History) Add(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) == h.size {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:h.size-1]
	}
	h.samples = append(h.samples, s)
}

// Samples returns a copy of the buffered samples, oldest first.
func (h *History) Samples() []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Sample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Distances returns the distance series, oldest first.
func (h *History) Distances() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]float64, len(h.samples))
	for i, s := range h.samples {
		out[i] = float64(s.Distance)
	}
	return out
}

// Percents returns the volume series, oldest first.
func (h *History) Percents() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]float64, len(h.samples))
	for i, s := range h.samples {
		out[i] = s.Percent
	}
	return out
}

// Len returns the number of buffered samples.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}

// Cap returns the maximum number of samples.
func (h *History) Cap() int {
	return h.size
}

// Reset drops every sample.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = h.samples[:0]
}
