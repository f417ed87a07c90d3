// Package thumbnail generates and caches per-video JPEG thumbnails by
// invoking an external encoder as a subprocess.
package thumbnail

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"ott-server/internal/apperr"
	"ott-server/internal/logging"
	"ott-server/internal/memory"
	"ott-server/internal/metrics"
)

// Generator produces and caches thumbnails under thumbDir, invoking
// encoderPath (normally "ffmpeg") on cache misses.
type Generator struct {
	thumbDir    string
	encoderPath string
	mon         *memory.Monitor

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// New creates a Generator writing JPEGs under thumbDir via encoderPath. mon
// may be nil, in which case ffmpeg invocations are never throttled; when
// set, Ensure waits for memory pressure to clear before spawning an
// encoder process, since ffmpeg's own working set sits outside the Go
// heap the monitor samples.
func New(thumbDir, encoderPath string, mon *memory.Monitor) *Generator {
	return &Generator{
		thumbDir:    thumbDir,
		encoderPath: encoderPath,
		mon:         mon,
		locks:       make(map[int64]*sync.Mutex),
	}
}

// CachePath returns the on-disk path for videoID's thumbnail.
func (g *Generator) CachePath(videoID int64) string {
	return filepath.Join(g.thumbDir, strconv.FormatInt(videoID, 10)+".jpg")
}

// perIDLock returns (creating if absent) the mutex serializing generation
// for a single video id, resolving the concurrent-miss race the spec
// leaves unserialized at the source level.
func (g *Generator) perIDLock(videoID int64) *sync.Mutex {
	g.locksMu.Lock()
	defer g.locksMu.Unlock()
	m, ok := g.locks[videoID]
	if !ok {
		m = &sync.Mutex{}
		g.locks[videoID] = m
	}
	return m
}

// Ensure returns the path to a fresh thumbnail for videoID, generating one
// from sourcePath if the cached file is missing or older than the source.
func (g *Generator) Ensure(videoID int64, sourcePath string) (string, error) {
	lock := g.perIDLock(videoID)
	lock.Lock()
	defer lock.Unlock()

	dst := g.CachePath(videoID)

	srcInfo, err := os.Stat(sourcePath)
	if err != nil {
		return "", apperr.NotFoundf("source video not found")
	}

	if dstInfo, err := os.Stat(dst); err == nil {
		if !dstInfo.ModTime().Before(srcInfo.ModTime()) {
			metrics.ThumbnailRequestsTotal.WithLabelValues("cache_hit").Inc()
			return dst, nil
		}
	}

	if g.mon != nil && !g.mon.WaitIfPaused() {
		return "", apperr.Internalf(nil, "thumbnail generation aborted: shutting down")
	}

	start := time.Now()
	if err := g.generate(sourcePath, dst); err != nil {
		metrics.ThumbnailRequestsTotal.WithLabelValues("failed").Inc()
		return "", err
	}
	metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
	metrics.ThumbnailRequestsTotal.WithLabelValues("generated").Inc()
	return dst, nil
}

// generate invokes the encoder with the exact argument vector the spec
// prescribes, removing any partial output file on failure.
func (g *Generator) generate(src, dst string) error {
	args := []string{
		"-y",
		"-loglevel", "error",
		"-ss", "5",
		"-i", src,
		"-vframes", "1",
		"-vf", "scale=320:-1",
		dst,
	}

	cmd := exec.Command(g.encoderPath, args...)
	if err := cmd.Run(); err != nil {
		os.Remove(dst)
		logging.Error("thumbnail encoder failed for %s: %v", src, err)
		return apperr.Internalf(err, "thumbnail generation failed")
	}

	if _, err := os.Stat(dst); err != nil {
		return apperr.Internalf(err, "thumbnail encoder produced no output")
	}
	return nil
}
