// Package config loads the server's environment-variable configuration,
// resolving directory defaults with a ./<name> / ../<name> fallback and
// silently falling back to defaults on numeric parse errors.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ott-server/internal/logging"
)

// Config holds all environment-derived server configuration.
type Config struct {
	Port          string
	MetricsPort   string
	MediaDir      string
	ThumbDir      string
	DataDir       string
	DBPath        string
	StaticDir     string
	SchemaPath    string
	SessionTTL    time.Duration
	WatchInterval time.Duration

	WorkerCount int
}

// Load reads configuration from the environment, applying spec-mandated
// defaults and directory-fallback resolution.
func Load() *Config {
	dataDir := resolveDir("DATA_DIR", "data")

	c := &Config{
		Port:          getEnv("PORT", "3000"),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
		MediaDir:      resolveDir("MEDIA_DIR", "media"),
		ThumbDir:      resolveDir("THUMB_DIR", filepath.Join("web", "thumbnails")),
		DataDir:       dataDir,
		StaticDir:     resolveDir("STATIC_DIR", filepath.Join("web", "public")),
		SchemaPath:    getEnv("SCHEMA_PATH", "./schema.sql"),
		SessionTTL:    getEnvHours("SESSION_TTL_HOURS", 24),
		WatchInterval: getEnvSeconds("MEDIA_WATCH_INTERVAL_SEC", 2, 1),
		WorkerCount:   getEnvInt("WORKER_COUNT", 0),
	}

	c.DBPath = getEnv("DB_PATH", filepath.Join(c.DataDir, "app.db"))

	return c
}

// resolveDir implements the spec's directory-default rule: if the named
// environment variable is absent, try ./<name> then ../<name> before
// falling back to the provided default basename.
func resolveDir(envVar, fallbackName string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}

	candidates := []string{
		"./" + fallbackName,
		"../" + fallbackName,
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}

	return "./" + fallbackName
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logging.Warn("invalid %s=%q, using default %d", key, v, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvHours(key string, defaultHours int) time.Duration {
	n := getEnvInt(key, defaultHours)
	return time.Duration(n) * time.Hour
}

// getEnvSeconds reads a seconds value, clamping it to a minimum on parse
// success (the watch interval must be >= 1s per spec).
func getEnvSeconds(key string, defaultSeconds, minSeconds int) time.Duration {
	n := getEnvInt(key, defaultSeconds)
	if n < minSeconds {
		n = minSeconds
	}
	return time.Duration(n) * time.Second
}
