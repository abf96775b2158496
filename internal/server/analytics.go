package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ayusman/handvol/internal/gesture"
	"github.com/ayusman/handvol/internal/log"
	"github.com/ayusman/handvol/internal/store"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 200
)

type historyResponse struct {
	Distances   []float64           `json:"distances"`
	Percents    []float64           `json:"percents"`
	Summary     gesture.Summary     `json:"summary"`
	Calibration gesture.Calibration `json:"calibration"`
}

type eventsResponse struct {
	Events []*store.VolumeEvent `json:"events"`
	Counts map[string]int       `json:"counts"`
}

// handleHistory handles GET /api/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	a := s.config.App
	h := a.History()
	writeJSON(w, http.StatusOK, historyResponse{
		Distances:   nonNil(h.Distances()),
		Percents:    nonNil(h.Percents()),
		Summary:     gesture.Summarize(h),
		Calibration: a.Settings().Calibration(),
	})
}

// handleChart renders the distance and volume series with the calibration
// bounds as an HTML page.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	a := s.config.App
	h := a.History()
	cal := a.Settings().Calibration()

	distances, percents := h.Distances(), h.Percents()
	x := make([]int, len(distances))
	dist := make([]opts.LineData, len(distances))
	vol := make([]opts.LineData, len(percents))
	for i := range distances {
		x[i] = i
		dist[i] = opts.LineData{Value: distances[i]}
		vol[i] = opts.LineData{Value: percents[i]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Gesture Volume", Theme: "dark", Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Distance and Volume", Subtitle: "last " + strconv.Itoa(len(distances)) + " frames"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "px / %", Min: 0}),
	)
	line.SetXAxis(x).
		AddSeries("Distance (px)", dist,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
			charts.WithMarkLineNameYAxisItemOpts(
				opts.MarkLineNameYAxisItem{Name: "Min", YAxis: cal.MinDist},
				opts.MarkLineNameYAxisItem{Name: "Max", YAxis: cal.MaxDist},
			),
		).
		AddSeries("Volume (%)", vol,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
		)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		log.Error(log.Fields{"error": err}, "rendering chart")
		writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleSuggest handles GET /api/calibration/suggest.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	cal, err := gesture.SuggestCalibration(s.config.App.History().Distances())
	if errors.Is(err, gesture.ErrNotEnoughSamples) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

// handleEvents handles GET /api/events?limit=N.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEventLimit)
	}

	resp := eventsResponse{Events: []*store.VolumeEvent{}, Counts: map[string]int{}}
	repo := s.config.App.Events()
	if repo == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	events, err := repo.Recent(limit)
	if err != nil {
		log.Error(log.Fields{"error": err}, "listing events")
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	counts, err := repo.CountByAction()
	if err != nil {
		log.Error(log.Fields{"error": err}, "counting events")
		writeError(w, http.StatusInternalServerError, "failed to count events")
		return
	}
	if events != nil {
		resp.Events = events
	}
	resp.Counts = counts
	writeJSON(w, http.StatusOK, resp)
}

func nonNil(xs []float64) []float64 {
	if xs == nil {
		return []float64{}
	}
	return xs
}
