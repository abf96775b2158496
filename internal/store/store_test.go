package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "handvol.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "handvol.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNew_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"users", "settings", "volume_events"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestNew_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "handvol.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Settings().Set(KeyMinDist, "30"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	if got := s.Settings().Int(KeyMinDist, 25); got != 30 {
		t.Errorf("min_dist after reopen = %d, want 30", got)
	}
}

func TestNew_Memory(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	defer s.Close()

	if err := s.Settings().Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := s.Settings().Get("k"); v != "v" {
		t.Errorf("Get() = %q, want v", v)
	}
}

func TestUserRepository(t *testing.T) {
	users := newTestStore(t).Users()

	u := &User{Username: "siri", PasswordHash: "hash-1"}
	if err := users.Create(u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.ID == "" {
		t.Error("Create() did not assign an ID")
	}

	if err := users.Create(&User{Username: "siri", PasswordHash: "x"}); err == nil {
		t.Error("duplicate username should fail")
	}

	got, err := users.GetByUsername("siri")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if got.ID != u.ID || got.PasswordHash != "hash-1" {
		t.Errorf("GetByUsername() = %+v", got)
	}

	if _, err := users.GetByUsername("nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByUsername(nobody) error = %v, want ErrNotFound", err)
	}

	if err := users.UpdatePassword("siri", "hash-2"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	got, _ = users.GetByUsername("siri")
	if got.PasswordHash != "hash-2" {
		t.Errorf("hash = %q, want hash-2", got.PasswordHash)
	}
	if err := users.UpdatePassword("nobody", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePassword(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestUserRepository_Ensure(t *testing.T) {
	users := newTestStore(t).Users()

	added, err := users.Ensure(&User{Username: "admin", PasswordHash: "first"})
	if err != nil || !added {
		t.Fatalf("Ensure() = %v, %v; want true, nil", added, err)
	}
	added, err = users.Ensure(&User{Username: "admin", PasswordHash: "second"})
	if err != nil || added {
		t.Fatalf("second Ensure() = %v, %v; want false, nil", added, err)
	}

	got, _ := users.GetByUsername("admin")
	if got.PasswordHash != "first" {
		t.Errorf("Ensure overwrote hash: %q", got.PasswordHash)
	}
	if n, _ := users.Count(); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestSettingsRepository(t *testing.T) {
	settings := newTestStore(t).Settings()

	if _, err := settings.Get(KeyMaxDist); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if got := settings.Int(KeyMaxDist, 160); got != 160 {
		t.Errorf("Int(missing) = %d, want default", got)
	}

	err := settings.SetMany(map[string]string{
		KeyMinDist:       "30",
		KeyMaxDist:       "200",
		KeyDetectionConf: "0.7",
		KeyTrackingConf:  "oops",
	})
	if err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}

	if got := settings.Int(KeyMinDist, 25); got != 30 {
		t.Errorf("Int(min_dist) = %d, want 30", got)
	}
	if got := settings.Float(KeyDetectionConf, 0.6); got != 0.7 {
		t.Errorf("Float(detection_conf) = %f, want 0.7", got)
	}
	if got := settings.Float(KeyTrackingConf, 0.5); got != 0.5 {
		t.Errorf("Float(malformed) = %f, want default", got)
	}

	if err := settings.Set(KeyMinDist, "40"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := settings.Int(KeyMinDist, 25); got != 40 {
		t.Errorf("Int after overwrite = %d, want 40", got)
	}
}

func TestEventRepository(t *testing.T) {
	events := newTestStore(t).Events()
	base := time.Now().Add(-time.Hour)

	inputs := []*VolumeEvent{
		{Username: "siri", Action: "increase", Distance: 170, Percent: 100, CreatedAt: base},
		{Username: "siri", Action: "decrease", Distance: 12, Percent: 0, CreatedAt: base.Add(time.Minute)},
		{Username: "siri", Action: "increase", Distance: 180, Percent: 100, CreatedAt: base.Add(2 * time.Minute)},
		{Action: "set", Distance: 80, Percent: 50},
	}
	for _, e := range inputs {
		if err := events.Create(e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.ID == "" {
			t.Error("Create() did not assign an ID")
		}
	}

	if err := events.Create(&VolumeEvent{Action: "mute"}); err == nil {
		t.Error("unknown action should violate the check constraint")
	}

	recent, err := events.Recent(2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d events", len(recent))
	}
	if recent[0].Action != "set" || recent[1].Distance != 180 {
		t.Errorf("Recent() order wrong: %+v, %+v", recent[0], recent[1])
	}

	counts, err := events.CountByAction()
	if err != nil {
		t.Fatalf("CountByAction() error = %v", err)
	}
	if counts["increase"] != 2 || counts["decrease"] != 1 || counts["set"] != 1 {
		t.Errorf("CountByAction() = %v", counts)
	}

	n, err := events.DeleteBefore(base.Add(90 * time.Second))
	if err != nil {
		t.Fatalf("DeleteBefore() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteBefore() removed %d, want 2", n)
	}
}
