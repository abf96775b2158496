// Package display shows the annotated session frames in a native OpenCV
// window.
package display

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handvol/internal/app"
	"github.com/ayusman/handvol/internal/log"
)

// keyEsc is the key code returned by WaitKey for the escape key.
const keyEsc = 27

// pollInterval keeps the window responsive when no frame arrives.
const pollInterval = 30 * time.Millisecond

var errEmptyImage = errors.New("decoded image is empty")

// Run shows every published frame of a until ESC or q is pressed, the
// window is closed or ctx is done. OpenCV needs it on the main goroutine.
func Run(ctx context.Context, a *app.App, title string) error {
	window := gocv.NewWindow(title)
	defer window.Close()

	updates, unsubscribe := a.Subscribe()
	defer unsubscribe()

	log.Info(log.Fields{"title": title}, "window opened, press ESC to quit")

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			if err := show(window, snap.Frame); err != nil {
				log.Debug(log.Fields{"error": err}, "skipping frame")
			}
		case <-time.After(pollInterval):
		}

		if isQuitKey(window.WaitKey(1)) {
			return nil
		}
		if window.GetWindowProperty(gocv.WindowPropertyVisible) < 1 {
			return nil
		}
	}
}

func show(window *gocv.Window, frame []byte) error {
	if len(frame) == 0 {
		return nil
	}
	img, err := decodeFrame(frame)
	if err != nil {
		return err
	}
	defer img.Close()
	window.IMShow(img)
	return nil
}

// decodeFrame turns a published JPEG back into a BGR image.
func decodeFrame(frame []byte) (gocv.Mat, error) {
	img, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil {
		return img, err
	}
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), errEmptyImage
	}
	return img, nil
}

func isQuitKey(key int) bool {
	return key == keyEsc || key == 'q' || key == 'Q'
}
