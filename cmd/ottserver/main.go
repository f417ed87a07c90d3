// Command ott-server is the entry point for the on-demand video streaming
// server.
//
// It starts:
//   - A custom, non-blocking HTTP/1.1 server (no net/http) that serves the
//     authentication, catalog, streaming, and watch-history API, plus the
//     static single-page-app bundle
//   - A background catalog engine that scans the media directory and
//     re-syncs it on a poll interval
//   - A Prometheus metrics endpoint on a separate port
//
// Configuration is provided via environment variables:
//   - PORT: HTTP server port (default: 3000)
//   - METRICS_PORT: Prometheus metrics port (default: 9090)
//   - MEDIA_DIR: Path to media files (default: ./media or ../media)
//   - THUMB_DIR: Path to the thumbnail cache (default: ./web/thumbnails)
//   - STATIC_DIR: Path to the static web bundle (default: ./web/public)
//   - DATA_DIR: Path to the data directory holding app.db (default: ./data)
//   - DB_PATH: Full database path, overrides DATA_DIR-derived path
//   - SCHEMA_PATH: Path to the SQL schema file applied on database open
//     (default: ./schema.sql); missing file is a fatal startup error
//   - SESSION_TTL_HOURS: Session lifetime in hours (default: 24)
//   - MEDIA_WATCH_INTERVAL_SEC: Catalog watcher poll interval (default: 2, min 1)
//   - WORKER_COUNT: Fixed worker pool size (default: max(8, 2*NumCPU))
//   - LOG_LEVEL: Logging verbosity (default: info)
//   - GOMEMLIMIT, MEMORY_LIMIT, MEMORY_RATIO: Go heap soft-limit
//     configuration for containerized deployments, applied before any
//     other subsystem starts (see internal/memory)
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ott-server/internal/acceptor"
	"ott-server/internal/api"
	"ott-server/internal/auth"
	"ott-server/internal/catalog"
	"ott-server/internal/config"
	"ott-server/internal/logging"
	"ott-server/internal/memory"
	"ott-server/internal/metrics"
	"ott-server/internal/startup"
	"ott-server/internal/store"
	"ott-server/internal/thumbnail"
	"ott-server/internal/workerpool"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()
	startup.PrintBanner()

	memCfg := memory.ConfigureFromEnv()
	if memCfg.Configured {
		logging.Info("GOMEMLIMIT configured from %s: %d bytes", memCfg.Source, memCfg.GoMemLimit)
	}

	cfg := config.Load()
	startup.LogConfig(
		fmt.Sprintf("Port:            %s", cfg.Port),
		fmt.Sprintf("Metrics port:    %s", cfg.MetricsPort),
		fmt.Sprintf("Media dir:       %s", cfg.MediaDir),
		fmt.Sprintf("Thumbnail dir:   %s", cfg.ThumbDir),
		fmt.Sprintf("Static dir:      %s", cfg.StaticDir),
		fmt.Sprintf("Database path:   %s", cfg.DBPath),
		fmt.Sprintf("Schema path:     %s", cfg.SchemaPath),
		fmt.Sprintf("Session TTL:     %s", cfg.SessionTTL),
		fmt.Sprintf("Watch interval:  %s", cfg.WatchInterval),
	)

	if err := ensureDirectory(cfg.MediaDir, "media"); err != nil {
		startup.LogFatal("media directory error: %v", err)
	}
	if err := ensureDirectory(cfg.DataDir, "data"); err != nil {
		startup.LogFatal("data directory error: %v", err)
	}
	if err := testWriteAccess(cfg.DataDir); err != nil {
		startup.LogFatal("data directory is not writable: %v", err)
	}
	if err := ensureDirectory(cfg.ThumbDir, "thumbnails"); err != nil {
		startup.LogFatal("thumbnail directory error: %v", err)
	}
	if err := requireDirectory(cfg.StaticDir, "static"); err != nil {
		startup.LogFatal("static directory error: %v", err)
	}

	dbStart := time.Now()
	s, err := store.OpenWithSchemaFile(cfg.DBPath, cfg.SchemaPath)
	if err != nil {
		startup.LogFatal("failed to open database: %v", err)
	}
	logging.Info("  [OK] Database opened in %v", time.Since(dbStart))

	mem := memory.NewMonitor(memory.DefaultConfig())
	mem.Start()

	authSvc := auth.New(s, cfg.SessionTTL)
	if err := authSvc.Seed(); err != nil {
		startup.LogFatal("failed to seed users: %v", err)
	}

	cat := catalog.New(s, cfg.MediaDir, cfg.WatchInterval)
	if err := cat.Sync(); err != nil {
		logging.Warn("initial catalog sync failed: %v", err)
	}
	cat.StartWatcher()

	thumbs := thumbnail.New(cfg.ThumbDir, "ffmpeg", mem)

	srv := api.New(s, authSvc, cat, thumbs, cfg.MediaDir, cfg.StaticDir)

	workers := workerpool.New(workerpool.Count())

	acceptor.IgnoreSIGPIPE()

	accpt, err := acceptor.New(":"+cfg.Port, func(conn net.Conn) {
		srv.Serve(conn)
	}, func(job func()) {
		workers.Submit(job)
	})
	if err != nil {
		startup.LogFatal("failed to bind %s: %v", cfg.Port, err)
	}

	metricsSrv := startMetricsServer(cfg.MetricsPort)

	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	go accpt.Run()
	startup.LogServerStarted(cfg.Port, time.Since(startTime))

	sig := acceptor.WaitForShutdownSignal()
	startup.LogShutdownInitiated(sig)

	startup.LogShutdownStep("Stopping HTTP acceptor")
	accpt.Stop()
	startup.LogShutdownStepComplete("HTTP acceptor stopped")

	startup.LogShutdownStep("Stopping catalog watcher")
	cat.Stop()
	startup.LogShutdownStepComplete("Catalog watcher stopped")

	startup.LogShutdownStep("Shutting down worker pool")
	workers.Shutdown()
	startup.LogShutdownStepComplete("Worker pool stopped")

	startup.LogShutdownStep("Stopping memory monitor")
	mem.Stop()
	startup.LogShutdownStepComplete("Memory monitor stopped")

	startup.LogShutdownStep("Stopping metrics server")
	if metricsSrv != nil {
		_ = metricsSrv.Close()
	}
	startup.LogShutdownStepComplete("Metrics server stopped")

	startup.LogShutdownStep("Closing database")
	if err := s.Close(); err != nil {
		logging.Warn("database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}

// startMetricsServer runs the Prometheus /metrics endpoint on its own
// net/http listener, separate from the custom request core used for the
// application API.
func startMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("metrics server error: %v", err)
		}
	}()
	return srv
}

// ensureDirectory creates path if it does not already exist. Use this for
// directories the server populates itself (media scan target, data,
// thumbnail cache) where starting out empty is a legitimate state.
func ensureDirectory(path, name string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s directory: %w", name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s path %s is not a directory", name, path)
	}
	return nil
}

// requireDirectory verifies that path already exists as a directory,
// without creating it. Use this for directories that must be populated by
// a separate build/deploy step before the server starts — a missing one
// means that step never ran, and silently creating an empty directory
// would only turn it into 404s for every non-API route at request time
// instead of a fast failure at boot.
func requireDirectory(path, name string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s directory %s does not exist", name, path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s directory: %w", name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s path %s is not a directory", name, path)
	}
	return nil
}

// testWriteAccess verifies dir is writable by creating and removing a
// throwaway file.
func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
