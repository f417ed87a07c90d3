package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "MEDIA_DIR", "THUMB_DIR", "DATA_DIR", "DB_PATH", "STATIC_DIR",
		"SESSION_TTL_HOURS", "MEDIA_WATCH_INTERVAL_SEC", "WORKER_COUNT", "METRICS_PORT",
		"SCHEMA_PATH",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	c := Load()

	if c.Port != "3000" {
		t.Errorf("Port = %q, want 3000", c.Port)
	}
	if c.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", c.SessionTTL)
	}
	if c.WatchInterval != 2*time.Second {
		t.Errorf("WatchInterval = %v, want 2s", c.WatchInterval)
	}
	if c.SchemaPath != "./schema.sql" {
		t.Errorf("SchemaPath = %q, want ./schema.sql", c.SchemaPath)
	}
}

func TestWatchIntervalClampedToMinimum(t *testing.T) {
	clearEnv(t)
	os.Setenv("MEDIA_WATCH_INTERVAL_SEC", "0")
	defer os.Unsetenv("MEDIA_WATCH_INTERVAL_SEC")

	c := Load()
	if c.WatchInterval != 1*time.Second {
		t.Errorf("WatchInterval = %v, want clamped to 1s", c.WatchInterval)
	}
}

func TestInvalidNumericFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	os.Setenv("SESSION_TTL_HOURS", "not-a-number")
	defer os.Unsetenv("SESSION_TTL_HOURS")

	c := Load()
	if c.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want default 24h on parse error", c.SessionTTL)
	}
}

func TestDBPathDerivedFromDataDir(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATA_DIR", "/tmp/ott-data")
	defer os.Unsetenv("DATA_DIR")

	c := Load()
	want := "/tmp/ott-data/app.db"
	if c.DBPath != want {
		t.Errorf("DBPath = %q, want %q", c.DBPath, want)
	}
}
