package metrics

// InitializeMetrics pre-populates label combinations that are known at
// startup so they appear in /metrics (as zero) before the first event,
// rather than only once each combination is first observed.
func InitializeMetrics() {
	for _, op := range []string{"stat", "open"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemRetryDuration.WithLabelValues(op)
	}

	for _, op := range []string{
		"get_user_credentials", "create_user", "upsert_user",
		"create_session", "get_session", "delete_session", "purge_expired_sessions",
		"upsert_video", "delete_video_by_filename", "prune_missing_videos",
		"get_video_by_id", "query_videos", "update_watch_history", "list_watch_history",
	} {
		for _, status := range []string{"ok", "error"} {
			StoreQueriesTotal.WithLabelValues(op, status)
		}
		StoreQueryDuration.WithLabelValues(op)
	}

	for _, op := range []string{"login", "register"} {
		for _, outcome := range []string{"ok", "invalid", "duplicate", "validation"} {
			AuthAttemptsTotal.WithLabelValues(op, outcome)
		}
	}

	for _, status := range []string{"ok", "error"} {
		CatalogSyncRunsTotal.WithLabelValues(status)
	}

	for _, outcome := range []string{"cache_hit", "generated", "failed"} {
		ThumbnailRequestsTotal.WithLabelValues(outcome)
	}

	for _, status := range []string{"submitted", "dropped"} {
		WorkerPoolJobsTotal.WithLabelValues(status)
	}

	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}
}
