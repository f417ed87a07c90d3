// Package metrics exposes Prometheus instrumentation for every subsystem of
// the server: the acceptor/worker-pool request core, the store, the catalog
// engine, the thumbnail cache, authentication, and process-level memory
// backpressure.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP / request-dispatch metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ott_server_http_requests_total",
			Help: "Total number of HTTP requests handled by the router",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ott_server_http_request_duration_seconds",
			Help:    "HTTP request handling duration in seconds, from parsed request to handler return",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ott_server_http_requests_in_flight",
			Help: "Number of requests currently owned by a worker",
		},
	)
)

// Acceptor / worker pool metrics
var (
	AcceptorConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ott_server_acceptor_connections_total",
			Help: "Total number of client sockets accepted",
		},
	)

	WorkerPoolQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ott_server_worker_pool_queue_depth",
			Help: "Current number of jobs waiting in the worker pool queue",
		},
	)

	WorkerPoolJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ott_server_worker_pool_jobs_total",
			Help: "Total number of jobs submitted to the worker pool",
		},
		[]string{"status"}, // "submitted", "dropped"
	)

	WorkerPoolActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ott_server_worker_pool_active_workers",
			Help: "Number of worker goroutines in the pool (0 after shutdown)",
		},
	)
)

// Store metrics
var (
	StoreQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ott_server_store_queries_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "status"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ott_server_store_query_duration_seconds",
			Help:    "Store operation duration in seconds, including mutex wait",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	StoreMutexWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ott_server_store_mutex_wait_seconds",
			Help:    "Time spent waiting to acquire the process-wide store mutex",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)
)

// Catalog engine metrics
var (
	CatalogSyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ott_server_catalog_sync_runs_total",
			Help: "Total number of catalog synchronization runs",
		},
		[]string{"status"}, // "ok", "error"
	)

	CatalogSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ott_server_catalog_sync_duration_seconds",
			Help:    "Duration of a catalog synchronization run",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	CatalogVideosTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ott_server_catalog_videos_total",
			Help: "Number of videos currently known to the catalog",
		},
	)

	CatalogLastSyncTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ott_server_catalog_last_sync_timestamp",
			Help: "Unix timestamp of the last successful catalog synchronization",
		},
	)

	CatalogWatcherRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ott_server_catalog_watcher_running",
			Help: "Whether the background catalog watcher is running (1) or stopped (0)",
		},
	)
)

// Thumbnail cache metrics
var (
	ThumbnailRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ott_server_thumbnail_requests_total",
			Help: "Total number of thumbnail requests by outcome",
		},
		[]string{"outcome"}, // "cache_hit", "generated", "failed"
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ott_server_thumbnail_generation_duration_seconds",
			Help:    "Duration of an external encoder thumbnail generation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Authentication / session metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ott_server_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"operation", "outcome"}, // operation: login/register; outcome: ok/invalid/duplicate/validation
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ott_server_active_sessions",
			Help: "Number of stored session rows as of the last session creation or logout",
		},
	)

	SessionsPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ott_server_sessions_purged_total",
			Help: "Total number of expired sessions purged",
		},
	)
)

// Filesystem retry metrics (NFS ESTALE resilience). A single "operation"
// label ("stat", "open") is carried; there is only one media directory, so
// no volume dimension is needed.
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ott_server_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries due to stale handles",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ott_server_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after at least one retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ott_server_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that exhausted all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ott_server_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors observed",
		},
		[]string{"operation"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ott_server_filesystem_retry_duration_seconds",
			Help:    "Total duration of a filesystem operation including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation"},
	)
)

// Memory backpressure metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ott_server_memory_usage_ratio",
			Help: "Current heap allocation as a ratio of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ott_server_memory_paused",
			Help: "Whether request processing is paused for memory pressure (1) or not (0)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ott_server_memory_gc_pauses_total",
			Help: "Total number of times a forced GC was triggered by memory pressure",
		},
	)
)

// Go runtime / process metrics, sampled periodically by Collector.
var (
	GoMemAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ott_server_go_mem_alloc_bytes",
			Help: "Currently allocated heap bytes (runtime.MemStats.Alloc)",
		},
	)

	GoMemSysBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ott_server_go_mem_sys_bytes",
			Help: "Total bytes obtained from the OS (runtime.MemStats.Sys)",
		},
	)

	GoGCRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ott_server_go_gc_runs_total",
			Help: "Total number of completed GC cycles",
		},
	)

	GoGCPauseTotalSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ott_server_go_gc_pause_seconds_total",
			Help: "Cumulative GC stop-the-world pause time",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ott_server_db_size_bytes",
			Help: "Size of the SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ott_server_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric.
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
