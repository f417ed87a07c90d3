package metrics

import (
	"os"
	"runtime"
	"time"

	"ott-server/internal/logging"
)

// Collector periodically samples process-wide metrics that have no natural
// call site of their own: Go runtime memory/GC stats and on-disk database
// file sizes.
type Collector struct {
	dbPath      string
	interval    time.Duration
	stopChan    chan struct{}
	lastGCCount uint32
}

// NewCollector creates a new metrics collector for the database at dbPath.
func NewCollector(dbPath string, interval time.Duration) *Collector {
	return &Collector{
		dbPath:   dbPath,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic collection loop in a background goroutine.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the collection loop.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	c.collectMemoryMetrics()
	c.collectDBSize()
}

func (c *Collector) collectMemoryMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	GoMemAllocBytes.Set(float64(memStats.Alloc))
	GoMemSysBytes.Set(float64(memStats.Sys))

	if memStats.NumGC > c.lastGCCount {
		GoGCRuns.Add(float64(memStats.NumGC - c.lastGCCount))
		c.lastGCCount = memStats.NumGC
	}

	GoGCPauseTotalSeconds.Add(float64(memStats.PauseTotalNs) / 1e9)
}

func (c *Collector) collectDBSize() {
	if c.dbPath == "" {
		return
	}

	if info, err := os.Stat(c.dbPath); err == nil {
		DBSizeBytes.WithLabelValues("main").Set(float64(info.Size()))
	} else if !os.IsNotExist(err) {
		logging.Debug("failed to stat database file: %v", err)
	}

	if info, err := os.Stat(c.dbPath + "-wal"); err == nil {
		DBSizeBytes.WithLabelValues("wal").Set(float64(info.Size()))
	} else {
		DBSizeBytes.WithLabelValues("wal").Set(0)
	}

	if info, err := os.Stat(c.dbPath + "-shm"); err == nil {
		DBSizeBytes.WithLabelValues("shm").Set(float64(info.Size()))
	} else {
		DBSizeBytes.WithLabelValues("shm").Set(0)
	}
}
