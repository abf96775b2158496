package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayusman/handvol/internal/app"
	"github.com/ayusman/handvol/internal/auth"
	"github.com/ayusman/handvol/internal/capture"
	"github.com/ayusman/handvol/internal/config"
	"github.com/ayusman/handvol/internal/detector"
	"github.com/ayusman/handvol/internal/display"
	"github.com/ayusman/handvol/internal/gesture"
	"github.com/ayusman/handvol/internal/log"
	"github.com/ayusman/handvol/internal/server"
	"github.com/ayusman/handvol/internal/store"
	"github.com/ayusman/handvol/internal/tray"
	"github.com/ayusman/handvol/internal/volume"
)

// User interfaces selectable with -mode.
const (
	uiWindow    = "window"
	uiWeb       = "web"
	uiDashboard = "dashboard"
)

const (
	browserDelay   = time.Second
	eventRetention = 30 * 24 * time.Hour
	shutdownWait   = 5 * time.Second
)

var (
	uiMode    = flag.String("mode", uiDashboard, "user interface: window, web or dashboard")
	withTray  = flag.Bool("tray", false, "show a system tray icon")
	noBrowser = flag.Bool("no-browser", false, "do not open the dashboard in a browser")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "handvol: %v\n", err)
		os.Exit(1)
	}
	log.Init(log.Options{Level: cfg.LogLevel, Dir: cfg.LogDir})

	if err := run(cfg, *uiMode); err != nil {
		log.Fatal(log.Fields{"error": err}, "handvol failed")
	}
}

// sessionMode maps a user interface to the way distances drive the volume.
func sessionMode(ui string) (app.Mode, error) {
	switch ui {
	case uiWindow:
		return app.ModeObserve, nil
	case uiWeb:
		return app.ModeAbsolute, nil
	case uiDashboard:
		return app.ModeStep, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want window, web or dashboard)", ui)
	}
}

// dashboardURL turns a listen address into a browsable URL.
func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func run(cfg config.Config, ui string) error {
	mode, err := sessionMode(ui)
	if err != nil {
		return err
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if n, err := st.Events().DeleteBefore(time.Now().Add(-eventRetention)); err != nil {
		log.Warn(log.Fields{"error": err}, "pruning volume events")
	} else if n > 0 {
		log.Info(log.Fields{"deleted": n}, "pruned old volume events")
	}

	det := newDetector(cfg)

	vol, err := volume.New(cfg.VolumeBackend, cfg.PluginDir)
	if err != nil {
		return fmt.Errorf("volume backend: %w", err)
	}

	classify, err := gesture.ClassifierByName(cfg.HandClassifier)
	if err != nil {
		return err
	}

	a, err := app.New(app.Options{
		Camera:   capture.NewCamera(cfg.CameraID),
		Detector: det,
		Volume:   vol,
		Store:    st,
		Mode:     mode,
		Settings: app.Settings{
			MinDist:       cfg.MinDist,
			MaxDist:       cfg.MaxDist,
			DetectionConf: cfg.DetectionConf,
			TrackingConf:  cfg.TrackingConf,
		},
		Debounce:        cfg.Debounce,
		MotionThreshold: cfg.MotionThreshold,
		Classifier:      classify,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info(log.Fields{"ui": ui, "mode": mode, "backend": cfg.VolumeBackend}, "handvol starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if ui == uiWindow {
		if err := a.Start(); err != nil {
			return err
		}
		return display.Run(ctx, a, "Hand Volume Control")
	}

	srvCfg := server.Config{App: a}
	if ui == uiDashboard {
		svc := auth.NewService(st.Users(), cfg.JWTSecret, cfg.TokenTTL, bcrypt.DefaultCost)
		if err := svc.Seed(auth.DemoAccounts); err != nil {
			return err
		}
		srvCfg.Auth = svc
		if cfg.DefaultSecret() {
			log.Warn(log.Fields{"env": "JWT_SECRET"}, "sessions are signed with the built-in secret; set JWT_SECRET")
		}
	} else if err := a.Start(); err != nil {
		// The web page can still retry once the camera is back.
		log.Warn(log.Fields{"error": err}, "camera unavailable at startup")
	}

	srv := server.New(srvCfg)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.Addr)
	}()

	url := dashboardURL(cfg.Addr)
	if !*noBrowser {
		go func() {
			time.Sleep(browserDelay)
			if err := browser.OpenURL(url); err != nil {
				log.Warn(log.Fields{"error": err, "url": url}, "opening browser")
			}
		}()
	}

	if *withTray {
		runTray(ctx, stop, a, url)
	} else {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
		}
	}

	log.Info(nil, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn(log.Fields{"error": err}, "http shutdown")
	}
	return nil
}

// newDetector starts the MediaPipe helper, falling back to a detector that
// never sees a hand so the UI still comes up.
func newDetector(cfg config.Config) detector.Detector {
	dcfg := detector.DefaultConfig()
	dcfg.MinConfidence = cfg.DetectionConf
	dcfg.MinTrackingConf = cfg.TrackingConf

	d, err := detector.NewMediaPipeDetector(dcfg)
	if err != nil {
		log.Warn(log.Fields{"error": err}, "MediaPipe helper not found, hand detection disabled")
		return detector.NewMockDetector()
	}
	return d
}

// runTray blocks in the tray loop until Quit or ctx is done.
func runTray(ctx context.Context, stop context.CancelFunc, a *app.App, url string) {
	t := tray.New(a.State() == app.StateRunning)

	t.OnToggle(func(running bool) {
		var err error
		switch {
		case !running:
			err = a.Pause()
		case a.State() == app.StatePaused:
			err = a.Resume()
		default:
			err = a.Start()
		}
		if err != nil {
			log.Warn(log.Fields{"error": err}, "tray toggle")
			t.SetRunning(a.State() == app.StateRunning)
		}
	})
	t.OnOpen(func() {
		if err := browser.OpenURL(url); err != nil {
			log.Warn(log.Fields{"error": err}, "opening browser")
		}
	})
	t.OnQuit(stop)

	updates, unsubscribe := a.Subscribe()
	defer unsubscribe()
	go func() {
		var last time.Time
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case snap, ok := <-updates:
				if !ok {
					return
				}
				if time.Since(last) < time.Second {
					continue
				}
				last = time.Now()
				t.SetRunning(snap.State == app.StateRunning)
				t.SetStatus(snap.Status, snap.Percent)
			}
		}
	}()

	t.Run()
}
