// Package catalog scans the media directory into the video store and keeps
// it in sync with a background mtime-polling watcher.
package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ott-server/internal/filesystem"
	"ott-server/internal/logging"
	"ott-server/internal/metrics"
	"ott-server/internal/store"
)

const sleepSlice = 100 * time.Millisecond

// videoExtensions lists the file extensions considered part of the catalog,
// matched case-insensitively.
var videoExtensions = map[string]bool{
	".mp4": true,
}

// Engine scans mediaDir for video files and upserts/prunes store rows to
// match what is on disk.
type Engine struct {
	store    *store.Store
	mediaDir string

	watchInterval time.Duration
	stopOnce      sync.Once
	stopChan      chan struct{}
	wg            sync.WaitGroup

	lastMtime time.Time
	synced    atomic.Bool
}

// Ready reports whether at least one Sync has completed successfully.
func (e *Engine) Ready() bool {
	return e.synced.Load()
}

// New creates a catalog Engine bound to store over mediaDir, polling for
// changes at watchInterval (clamped to at least 1s by the caller per spec).
func New(s *store.Store, mediaDir string, watchInterval time.Duration) *Engine {
	return &Engine{
		store:         s,
		mediaDir:      mediaDir,
		watchInterval: watchInterval,
		stopChan:      make(chan struct{}),
	}
}

// deriveTitle strips the final extension from filename and replaces
// underscores/hyphens with spaces, falling back to the raw filename if the
// result would be empty.
func deriveTitle(filename string) string {
	base := filename
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	replacer := strings.NewReplacer("_", " ", "-", " ")
	title := replacer.Replace(base)
	if strings.TrimSpace(title) == "" {
		return filename
	}
	return title
}

func isVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// Sync performs a one-shot scan of mediaDir: every non-hidden regular video
// file is upserted, then every stored video whose filename was not observed
// on disk is pruned. An upsert error aborts the sync before pruning runs.
func (e *Engine) Sync() error {
	start := time.Now()
	entries, err := os.ReadDir(e.mediaDir)
	if err != nil {
		metrics.CatalogSyncRunsTotal.WithLabelValues("error").Inc()
		return err
	}

	var observed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !isVideoFile(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		title := deriveTitle(name)
		if _, err := e.store.UpsertVideo(title, name, nil, nil); err != nil {
			logging.Error("catalog sync: upsert %s failed, aborting without pruning: %v", name, err)
			metrics.CatalogSyncRunsTotal.WithLabelValues("error").Inc()
			metrics.CatalogSyncDuration.Observe(time.Since(start).Seconds())
			return err
		}
		observed = append(observed, name)
	}

	if err := e.store.PruneMissingVideos(observed); err != nil {
		logging.Error("catalog sync: prune failed: %v", err)
		metrics.CatalogSyncRunsTotal.WithLabelValues("error").Inc()
		metrics.CatalogSyncDuration.Observe(time.Since(start).Seconds())
		return err
	}

	metrics.CatalogSyncRunsTotal.WithLabelValues("ok").Inc()
	metrics.CatalogSyncDuration.Observe(time.Since(start).Seconds())
	metrics.CatalogVideosTotal.Set(float64(len(observed)))
	metrics.CatalogLastSyncTimestamp.Set(float64(time.Now().Unix()))
	e.synced.Store(true)
	return nil
}

// StartWatcher starts the background mtime-polling loop in its own
// goroutine and returns immediately; the loop runs until Stop is called.
func (e *Engine) StartWatcher() {
	metrics.CatalogWatcherRunning.Set(1)
	e.wg.Add(1)
	go e.watchLoop()
}

func (e *Engine) watchLoop() {
	defer e.wg.Done()
	defer metrics.CatalogWatcherRunning.Set(0)

	for {
		if e.sleepInterruptible(e.watchInterval) {
			return
		}

		info, err := filesystem.StatWithRetry(e.mediaDir, filesystem.DefaultRetryConfig())
		if err != nil {
			logging.Warn("catalog watcher: stat %s failed: %v", e.mediaDir, err)
			continue
		}

		if info.ModTime().Equal(e.lastMtime) {
			continue
		}

		if err := e.Sync(); err != nil {
			logging.Warn("catalog watcher: sync failed, will retry next interval: %v", err)
			continue
		}

		// Record the mtime observed after the sync completed, so a
		// modification that lands mid-sync is picked up on the next cycle.
		if refreshed, err := filesystem.StatWithRetry(e.mediaDir, filesystem.DefaultRetryConfig()); err == nil {
			e.lastMtime = refreshed.ModTime()
		} else {
			e.lastMtime = info.ModTime()
		}
	}
}

// sleepInterruptible sleeps in 100ms slices, returning true early if Stop
// was called during the sleep.
func (e *Engine) sleepInterruptible(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		select {
		case <-e.stopChan:
			return true
		case <-time.After(sleepSlice):
		}
	}
	return false
}

// Stop signals the watcher loop to exit and waits for it to return.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()
}
