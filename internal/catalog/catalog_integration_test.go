package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ott-server/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	mediaDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, mediaDir, time.Second), mediaDir
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("fake video bytes"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestSyncUpsertsVideoFiles(t *testing.T) {
	e, dir := newTestEngine(t)
	writeFile(t, dir, "my_movie.mp4")
	writeFile(t, dir, "ignored.txt")
	writeFile(t, dir, ".hidden.mp4")

	if err := e.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	var count int
	_, err := e.store.QueryVideos("", 50, 0, func(v store.Video) {
		count++
		if v.Filename != "my_movie.mp4" {
			t.Errorf("unexpected video %+v", v)
		}
		if v.Title != "my movie" {
			t.Errorf("expected derived title 'my movie', got %q", v.Title)
		}
	})
	if err != nil {
		t.Fatalf("QueryVideos() error = %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 cataloged video, got %d", count)
	}
}

func TestSyncPrunesDeletedFiles(t *testing.T) {
	e, dir := newTestEngine(t)
	writeFile(t, dir, "keep.mp4")
	writeFile(t, dir, "remove.mp4")

	if err := e.Sync(); err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "remove.mp4")); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	if err := e.Sync(); err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}

	var count int
	e.store.QueryVideos("", 50, 0, func(v store.Video) { count++ })
	if count != 1 {
		t.Errorf("expected 1 video remaining after prune, got %d", count)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	e, dir := newTestEngine(t)
	writeFile(t, dir, "movie.mp4")

	if err := e.Sync(); err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	if err := e.Sync(); err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}

	var count int
	e.store.QueryVideos("", 50, 0, func(v store.Video) { count++ })
	if count != 1 {
		t.Errorf("expected exactly 1 video after repeated sync, got %d", count)
	}
}

func TestReadyReflectsFirstSync(t *testing.T) {
	e, dir := newTestEngine(t)
	if e.Ready() {
		t.Error("expected Ready() = false before any Sync")
	}
	writeFile(t, dir, "movie.mp4")
	if err := e.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !e.Ready() {
		t.Error("expected Ready() = true after a successful Sync")
	}
}

func TestWatcherPicksUpNewFileWithinOneInterval(t *testing.T) {
	e, dir := newTestEngine(t)
	e.watchInterval = 50 * time.Millisecond

	e.StartWatcher()
	defer e.Stop()

	writeFile(t, dir, "dropped.mp4")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var count int
		e.store.QueryVideos("", 50, 0, func(v store.Video) { count++ })
		if count == 1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected watcher to catalog the new file within the deadline")
}
