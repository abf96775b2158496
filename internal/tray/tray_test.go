package tray

import "testing"

func TestToggleTitle(t *testing.T) {
	if got := toggleTitle(true); got != "● Running" {
		t.Errorf("toggleTitle(true) = %q", got)
	}
	if got := toggleTitle(false); got != "○ Paused" {
		t.Errorf("toggleTitle(false) = %q", got)
	}
}

func TestStatusTitle(t *testing.T) {
	tests := []struct {
		status  string
		percent float64
		want    string
	}{
		{"", 40, "Status: ready"},
		{"Increasing", 72.9, "Increasing · 72%"},
		{"No hand", 0, "No hand · 0%"},
	}

	for _, tt := range tests {
		if got := statusTitle(tt.status, tt.percent); got != tt.want {
			t.Errorf("statusTitle(%q, %v) = %q, want %q", tt.status, tt.percent, got, tt.want)
		}
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New(true)

	var toggled []bool
	opened := 0
	tr.OnToggle(func(running bool) { toggled = append(toggled, running) })
	tr.OnOpen(func() { opened++ })

	// Menu items are nil before the tray is shown; handlers still work.
	tr.handleToggle()
	tr.handleToggle()
	tr.handleOpen()

	if len(toggled) != 2 || toggled[0] != false || toggled[1] != true {
		t.Errorf("toggle callbacks = %v, want [false true]", toggled)
	}
	if opened != 1 {
		t.Errorf("open callbacks = %d, want 1", opened)
	}

	tr.SetRunning(false)
	if tr.IsRunning() {
		t.Error("IsRunning() = true after SetRunning(false)")
	}
	tr.SetStatus("Stable", 10)
}
