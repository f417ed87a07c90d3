/*
Package metrics exposes Prometheus instrumentation for the server, via
github.com/prometheus/client_golang/prometheus/promauto. All metrics share
the "ott_server_" name prefix and are registered with the default registry,
served by the process at /metrics.

# Categories

  - HTTP: request counts, durations, and in-flight gauge for the router.
  - Acceptor / worker pool: accepted connections, queue depth, job outcomes.
  - Store: per-operation query counts/durations and mutex wait time.
  - Catalog: synchronization run counts/durations, video count, watcher state.
  - Thumbnail: request outcomes (cache hit, generated, failed) and generation
    duration.
  - Auth: attempt counts by operation/outcome, active session gauge, purge
    counter.
  - Filesystem: NFS stale-handle retry counters and durations, keyed by a
    single "operation" label ("stat", "open") — there is only one media
    directory, so no volume dimension is carried.
  - Memory: heap usage ratio, pause state, and forced-GC counter driven by
    internal/memory's backpressure monitor.
  - Go runtime / DB size: periodic samples collected by Collector.

# Usage

Call InitializeMetrics once at startup to pre-register known label
combinations so they read as zero before first use instead of being absent.
Instantiate a Collector for periodic runtime/DB-size sampling:

	c := metrics.NewCollector(cfg.DBPath, 30*time.Second)
	c.Start()
	defer c.Stop()

Subsystems increment their own counters/histograms directly; there is no
indirection layer (the teacher's Observer-interface pattern was dropped
because this repository's filesystem package calls metrics functions
directly, and a single-tenant interface added a layer without a second
implementation to justify it).
*/
package metrics
