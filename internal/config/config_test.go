package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.MinDist)
	assert.Equal(t, 160, cfg.MaxDist)
	assert.Equal(t, 120*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 0.6, cfg.DetectionConf)
	assert.Equal(t, 0.5, cfg.TrackingConf)
	assert.Equal(t, BackendKeys, cfg.VolumeBackend)
	assert.Equal(t, ClassifierDistance, cfg.HandClassifier)
	assert.True(t, cfg.DefaultSecret())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"HANDVOL_ADDR":    ":9000",
		"DATA_DIR":        "/tmp/hv",
		"MIN_DIST":        "30",
		"MAX_DIST":        "200",
		"DEBOUNCE_MS":     "250",
		"DETECTION_CONF":  "0.7",
		"VOLUME_BACKEND":  "plugin",
		"HAND_CLASSIFIER": "fingers",
		"JWT_SECRET":      "a-much-longer-local-secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "/tmp/hv", cfg.DataDir)
	assert.Equal(t, "/tmp/hv/plugins", cfg.PluginDir)
	assert.Equal(t, "/tmp/hv/handvol.db", cfg.DBPath())
	assert.Equal(t, 30, cfg.MinDist)
	assert.Equal(t, 200, cfg.MaxDist)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 0.7, cfg.DetectionConf)
	assert.Equal(t, BackendPlugin, cfg.VolumeBackend)
	assert.Equal(t, ClassifierFingers, cfg.HandClassifier)
	assert.False(t, cfg.DefaultSecret())
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non-numeric distance", map[string]string{"MIN_DIST": "near"}},
		{"min below range", map[string]string{"MIN_DIST": "5"}},
		{"max above range", map[string]string{"MAX_DIST": "400"}},
		{"confidence out of range", map[string]string{"DETECTION_CONF": "0.95"}},
		{"unknown backend", map[string]string{"VOLUME_BACKEND": "alsa"}},
		{"short secret", map[string]string{"JWT_SECRET": "abc"}},
		{"bad float", map[string]string{"TRACKING_CONF": "x"}},
		{"zero debounce", map[string]string{"DEBOUNCE_MS": "0"}},
		{"negative debounce", map[string]string{"DEBOUNCE_MS": "-50"}},
		{"unknown classifier", map[string]string{"HAND_CLASSIFIER": "palm"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envMap(tt.env))
			assert.Error(t, err)
		})
	}
}
