package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/handvol/internal/auth"
	"github.com/ayusman/handvol/internal/log"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	AuthRequired  bool       `json:"auth_required"`
	Authenticated bool       `json:"authenticated"`
	Username      string     `json:"username,omitempty"`
	Mode          string     `json:"mode,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// handleSession tells the page whether it must show the login form.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	resp := sessionResponse{AuthRequired: s.config.Auth != nil}
	if s.config.App != nil {
		resp.Mode = string(s.config.App.Mode())
	}
	if s.config.Auth == nil {
		resp.Authenticated = true
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if claims, err := s.config.Auth.Verify(requestToken(r)); err == nil {
		resp.Authenticated = true
		resp.Username = claims.Username
		if claims.ExpiresAt != nil {
			exp := claims.ExpiresAt.Time
			resp.ExpiresAt = &exp
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogin handles POST /api/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.config.Auth == nil {
		writeError(w, http.StatusNotFound, "login is disabled")
		return
	}
	ip := clientIP(r)
	if !s.config.LoginLimiter.Allow(ip) {
		log.Warn(log.Fields{"ip": ip}, "login rate limited")
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess, err := s.config.Auth.Login(req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		log.Warn(log.Fields{"username": req.Username, "ip": ip}, "login failed")
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		log.Error(log.Fields{"error": err}, "login")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if s.config.App != nil {
		s.config.App.SetUser(sess.Username)
	}
	log.Info(log.Fields{"username": sess.Username}, "user logged in")
	writeJSON(w, http.StatusOK, sess)
}

// handleLogout clears the session cookie. The camera is stopped only for a
// request carrying a valid session, so a bare cross-site POST cannot end it.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	a := s.config.App
	if a == nil || !s.authenticated(r) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
		return
	}
	if err := a.Stop(); err != nil {
		log.Warn(log.Fields{"error": err}, "stopping session on logout")
	}
	if user := a.User(); user != "" {
		log.Info(log.Fields{"username": user}, "user logged out")
	}
	a.SetUser("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// authenticated reports whether r carries a valid session. Without auth
// every request is.
func (s *Server) authenticated(r *http.Request) bool {
	if s.config.Auth == nil {
		return true
	}
	_, err := s.config.Auth.Verify(requestToken(r))
	return err == nil
}
