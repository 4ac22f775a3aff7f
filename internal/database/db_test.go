package database

import (
	"path/filepath"
	"testing"
	"time"
)

func TestNewDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trainify.db")

	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer db.Close()

	for _, table := range []string{"plan_bundles", "streak_days", "execution_metrics"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("Expected table %s to exist: %v", table, err)
		}
	}

	// Running migrations again is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Errorf("Expected repeated migrations to succeed, got %v", err)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	ts := time.Date(2025, 6, 1, 14, 30, 5, 0, time.FixedZone("BRT", -3*3600))
	s := FormatTime(ts)
	if s != "2025-06-01 17:30:05" {
		t.Errorf("Expected UTC formatting, got %s", s)
	}
	parsed, err := ParseTime(s)
	if err != nil || !parsed.Equal(ts) {
		t.Errorf("Expected %s, got %s (%v)", ts, parsed, err)
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("Expected an error for an invalid timestamp")
	}
}
