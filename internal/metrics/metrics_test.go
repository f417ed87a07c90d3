package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitializeMetricsPopulatesLabels(t *testing.T) {
	InitializeMetrics()

	if got := testutil.ToFloat64(FilesystemRetryAttempts.WithLabelValues("stat")); got != 0 {
		t.Errorf("expected zero-value counter after init, got %v", got)
	}
}

func TestFilesystemRetryCountersIncrement(t *testing.T) {
	FilesystemRetrySuccess.WithLabelValues("open").Inc()
	got := testutil.ToFloat64(FilesystemRetrySuccess.WithLabelValues("open"))
	if got < 1 {
		t.Errorf("expected FilesystemRetrySuccess[open] >= 1, got %v", got)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.0.0", "abc123", "go1.25")

	got := testutil.ToFloat64(AppInfo.WithLabelValues("1.0.0", "abc123", "go1.25"))
	if got != 1 {
		t.Errorf("expected AppInfo gauge set to 1, got %v", got)
	}
}

func TestStoreQueryDurationObserve(t *testing.T) {
	StoreQueryDuration.WithLabelValues("get_session").Observe(0.002)
}
