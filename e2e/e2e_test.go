package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ayusman/handvol/internal/app"
	"github.com/ayusman/handvol/internal/auth"
	"github.com/ayusman/handvol/internal/capture"
	"github.com/ayusman/handvol/internal/config"
	"github.com/ayusman/handvol/internal/detector"
	"github.com/ayusman/handvol/internal/plugin"
	"github.com/ayusman/handvol/internal/server"
	"github.com/ayusman/handvol/internal/store"
	"github.com/ayusman/handvol/internal/volume"
)

// mixerScript stands in for the system-control plugin and keeps the level
// in a file next to itself.
const mixerScript = `#!/bin/sh
IN=$(cat)
LEVEL=$(cat level 2>/dev/null || echo 50)
case "$IN" in
  *volume-get*) ;;
  *volume-set*) LEVEL=$(echo "$IN" | sed 's/.*"level":\([0-9]*\).*/\1/') ;;
  *volume-up*) LEVEL=$((LEVEL + 2)) ;;
  *volume-down*) LEVEL=$((LEVEL - 2)) ;;
esac
echo "$LEVEL" > level
echo "{\"success\":true,\"data\":{\"volume\":$LEVEL}}"
`

func installPlugin(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "system-control")
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	mf, _ := json.Marshal(plugin.Manifest{
		Name:       "system-control",
		Executable: "run.sh",
		Actions:    []string{volume.ActionUp, volume.ActionDown, volume.ActionSet, volume.ActionGet},
	})
	if err := os.WriteFile(filepath.Join(path, plugin.ManifestFile), mf, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "run.sh"), []byte(mixerScript), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestE2E_DashboardSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("the mixer plugin needs a POSIX shell")
	}

	tmpDir := t.TempDir()
	env := map[string]string{
		"DATA_DIR":       tmpDir,
		"VOLUME_BACKEND": config.BackendPlugin,
		"MIN_DIST":       "30",
		"MAX_DIST":       "150",
		"DEBOUNCE_MS":    "50",
		"JWT_SECRET":     "e2e-secret-with-enough-bytes",
	}
	cfg, err := config.FromEnv(func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("config.FromEnv() error = %v", err)
	}
	pluginPath := installPlugin(t, cfg.PluginDir)

	st, err := store.New(cfg.DBPath())
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	svc := auth.NewService(st.Users(), cfg.JWTSecret, cfg.TokenTTL, bcrypt.MinCost)
	if err := svc.Seed(auth.DemoAccounts); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	vol, err := volume.New(cfg.VolumeBackend, cfg.PluginDir)
	if err != nil {
		t.Fatalf("volume.New() error = %v", err)
	}

	cam := capture.NewBlankCamera(2, capture.DefaultWidth, capture.DefaultHeight)
	defer cam.Release()
	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.SpreadLandmarks()})

	a, err := app.New(app.Options{
		Camera:   cam,
		Detector: det,
		Volume:   vol,
		Store:    st,
		Mode:     app.ModeStep,
		Settings: app.Settings{
			MinDist:       cfg.MinDist,
			MaxDist:       cfg.MaxDist,
			DetectionConf: cfg.DetectionConf,
			TrackingConf:  cfg.TrackingConf,
		},
		Debounce: cfg.Debounce,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer a.Close()

	srv := server.New(server.Config{App: a, Auth: svc})
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	jar, _ := cookiejar.New(nil)
	client := ts.Client()
	client.Jar = jar

	t.Run("Login", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/login", "application/json",
			strings.NewReader(`{"username":"admin","password":"admin123"}`))
		if err != nil {
			t.Fatalf("login error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("StartAndRaiseVolume", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/control/start", "application/json", nil)
		if err != nil {
			t.Fatalf("start error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}

		// The spread hand is far above the range, so the volume steps up.
		waitFor(t, "the mixer level to rise", func() bool {
			raw, err := os.ReadFile(filepath.Join(pluginPath, "level"))
			if err != nil {
				return false
			}
			n, _ := strconv.Atoi(strings.TrimSpace(string(raw)))
			return n > 50
		})

		resp, err = client.Post(ts.URL+"/api/control/stop", "application/json", nil)
		if err != nil {
			t.Fatalf("stop error = %v", err)
		}
		resp.Body.Close()
	})

	t.Run("VolumeReflectsMixer", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/volume")
		if err != nil {
			t.Fatalf("volume error = %v", err)
		}
		defer resp.Body.Close()

		var v struct {
			Volume int `json:"volume"`
		}
		json.NewDecoder(resp.Body).Decode(&v)
		if v.Volume <= 50 {
			t.Errorf("volume = %d, want above 50", v.Volume)
		}
	})

	t.Run("EventsAudited", func(t *testing.T) {
		events, err := st.Events().Recent(10)
		if err != nil {
			t.Fatalf("Recent() error = %v", err)
		}
		if len(events) == 0 {
			t.Fatal("expected volume events")
		}
		for _, e := range events {
			if e.Action != "increase" || e.Username != "admin" {
				t.Errorf("event = %+v, want increase by admin", e)
			}
		}
	})

	t.Run("SettingsSurviveRestart", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings",
			strings.NewReader(`{"min_dist":40,"max_dist":220}`))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT settings error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}

		again, err := app.New(app.Options{
			Camera:   capture.NewBlankCamera(1, 64, 48),
			Detector: detector.NewMockDetector(),
			Volume:   volume.NewRecorder(50),
			Store:    st,
			Settings: app.DefaultSettings(),
		})
		if err != nil {
			t.Fatalf("app.New() error = %v", err)
		}
		got := again.Settings()
		if got.MinDist != 40 || got.MaxDist != 220 {
			t.Errorf("restored settings = %+v", got)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/logout", "application/json", nil)
		if err != nil {
			t.Fatalf("logout error = %v", err)
		}
		resp.Body.Close()

		resp, err = client.Get(ts.URL + "/api/metrics")
		if err != nil {
			t.Fatalf("metrics error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("metrics after logout = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
		}
	})
}
