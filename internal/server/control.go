package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/handvol/internal/app"
	"github.com/ayusman/handvol/internal/log"
)

type volumeResponse struct {
	Volume int `json:"volume"`
	// Timestamp is in seconds since the epoch.
	Timestamp float64 `json:"timestamp"`
}

type stateResponse struct {
	State  app.State `json:"state"`
	Status string    `json:"status"`
}

// handleVolume handles GET /api/volume.
func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, volumeResponse{
		Volume:    s.config.App.Volume(r.Context()),
		Timestamp: float64(time.Now().UnixMilli()) / 1000,
	})
}

// handleMetrics handles GET /api/metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.config.App.Snapshot())
}

// handleControl handles POST /api/control/{start,pause,resume,stop}.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	a := s.config.App

	var err error
	switch action := strings.TrimPrefix(r.URL.Path, "/api/control/"); action {
	case "start":
		if user, ok := UserFrom(r.Context()); ok {
			a.SetUser(user)
		}
		err = a.Start()
	case "pause":
		err = a.Pause()
	case "resume":
		err = a.Resume()
	case "stop":
		err = a.Stop()
	default:
		writeError(w, http.StatusNotFound, "unknown control action")
		return
	}

	switch {
	case errors.Is(err, app.ErrNotRunning):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Error(log.Fields{"error": err, "path": r.URL.Path}, "session control")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: a.State(), Status: a.Snapshot().Status})
}

// handleStopCamera handles GET /api/stop_camera.
func (s *Server) handleStopCamera(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if err := s.config.App.Stop(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "Camera stopped"})
}

// handleSettings handles GET and PUT /api/settings.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	a := s.config.App
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, a.Settings())
		return
	}

	settings := a.Settings()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := settings.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.ApplySettings(settings); err != nil {
		log.Error(log.Fields{"error": err}, "applying settings")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.Settings())
}
