// Package server provides the HTTP interface of the gesture volume session:
// MJPEG stream, metrics, session control, settings and analytics.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/ayusman/handvol/internal/app"
	"github.com/ayusman/handvol/internal/auth"
	"github.com/ayusman/handvol/internal/log"
)

//go:embed web
var webFS embed.FS

// Config holds the server configuration.
type Config struct {
	App *app.App
	// Auth gates every non-public route when set.
	Auth *auth.Service
	// LoginLimiter throttles login attempts per IP. Defaults to
	// auth.NewLoginLimiter when Auth is set.
	LoginLimiter *auth.RateLimiter
	// StaticDir overrides the embedded page.
	StaticDir string
}

// Server is the HTTP front end of an App.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	live    *LiveHandler
	start   time.Time
	srv     *http.Server
}

// New creates a Server for config.App.
func New(config Config) *Server {
	if config.Auth != nil && config.LoginLimiter == nil {
		config.LoginLimiter = auth.NewLoginLimiter()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = logRequests(s.mux)
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/session", s.handleSession)
	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.HandleFunc("/api/logout", s.handleLogout)

	if a := s.config.App; a != nil {
		s.live = NewLiveHandler(a)

		s.mux.Handle("/api/stream", s.protect(NewStreamHandler(a)))
		s.mux.Handle("/api/live", s.protect(s.live))
		s.mux.Handle("/api/volume", s.protectFunc(s.handleVolume))
		s.mux.Handle("/api/metrics", s.protectFunc(s.handleMetrics))
		s.mux.Handle("/api/control/", s.protectFunc(s.handleControl))
		s.mux.Handle("/api/stop_camera", s.protectFunc(s.handleStopCamera))
		s.mux.Handle("/api/settings", s.protectFunc(s.handleSettings))
		s.mux.Handle("/api/history", s.protectFunc(s.handleHistory))
		s.mux.Handle("/api/chart", s.protectFunc(s.handleChart))
		s.mux.Handle("/api/calibration/suggest", s.protectFunc(s.handleSuggest))
		s.mux.Handle("/api/events", s.protectFunc(s.handleEvents))
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
		return
	}
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		log.Error(log.Fields{"error": err}, "embedded web assets missing")
		return
	}
	s.mux.Handle("/", http.FileServer(http.FS(sub)))
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on addr and blocks until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info(log.Fields{"addr": addr, "auth": s.config.Auth != nil}, "http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the live broadcaster and gracefully closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Close stops the live broadcaster.
func (s *Server) Close() {
	if s.live != nil {
		s.live.Close()
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// allowMethod rejects requests whose method is not one of methods.
func allowMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
