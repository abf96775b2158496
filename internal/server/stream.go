package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/handvol/internal/app"
)

// StreamHandler serves the annotated frames of an App as MJPEG.
type StreamHandler struct {
	app *app.App
}

// NewStreamHandler creates a StreamHandler for a.
func NewStreamHandler(a *app.App) *StreamHandler {
	return &StreamHandler{app: a}
}

// ServeHTTP streams one JPEG part per published snapshot until the client
// goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	updates, unsubscribe := h.app.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	var last []byte
	send := func(frame []byte) error {
		if len(frame) == 0 || sameFrame(frame, last) {
			return nil
		}
		last = frame
		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame)); err != nil {
			return err
		}
		if _, err := w.Write(frame); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	if err := send(h.app.Snapshot().Frame); err != nil {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := send(snap.Frame); err != nil {
				return
			}
		}
	}
}

// sameFrame reports whether a and b share the same backing array. Snapshots
// without a new frame carry the previous slice forward.
func sameFrame(a, b []byte) bool {
	return len(a) > 0 && len(b) > 0 && len(a) == len(b) && &a[0] == &b[0]
}
