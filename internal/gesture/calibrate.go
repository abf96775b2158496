package gesture

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Bounds accepted by the calibration settings.
const (
	MinDistLower = 10
	MinDistUpper = 100
	MaxDistLower = 100
	MaxDistUpper = 300
)

// minCalibrationSamples is the fewest hand-present samples that give a
// usable range.
const minCalibrationSamples = 10

// ErrNotEnoughSamples is returned when there is too little data to calibrate.
var ErrNotEnoughSamples = errors.New("not enough samples to calibrate")

// SuggestCalibration derives a pinch range from recorded distances. Zero
// distances (no hand in frame) are ignored. The range spans the 5th to 95th
// percentile, clamped to the settings bounds.
func SuggestCalibration(distances []float64) (Calibration, error) {
	xs := make([]float64, 0, len(distances))
	for _, d := range distances {
		if d > 0 {
			xs = append(xs, d)
		}
	}
	if len(xs) < minCalibrationSamples {
		return Calibration{}, ErrNotEnoughSamples
	}
	sort.Float64s(xs)

	lo := stat.Quantile(0.05, stat.Empirical, xs, nil)
	hi := stat.Quantile(0.95, stat.Empirical, xs, nil)

	cal := Calibration{
		MinDist: int(clamp(math.Round(lo), MinDistLower, MinDistUpper)),
		MaxDist: int(clamp(math.Round(hi), MaxDistLower, MaxDistUpper)),
	}
	if cal.MaxDist <= cal.MinDist {
		cal.MaxDist = cal.MinDist + 1
	}
	return cal, nil
}

// Stats describes one series of the history.
type Stats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Summary describes the chart buffer.
type Summary struct {
	Samples  int   `json:"samples"`
	Distance Stats `json:"distance"`
	Percent  Stats `json:"percent"`
}

// Summarize computes mean, min and max of both history series.
func Summarize(h *History) Summary {
	d, p := h.Distances(), h.Percents()
	return Summary{
		Samples:  len(d),
		Distance: seriesStats(d),
		Percent:  seriesStats(p),
	}
}

func seriesStats(xs []float64) Stats {
	if len(xs) == 0 {
		return Stats{}
	}
	return Stats{
		Mean: stat.Mean(xs, nil),
		Min:  floats.Min(xs),
		Max:  floats.Max(xs),
	}
}
