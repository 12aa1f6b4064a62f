package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCacheMetrics(t *testing.T) {
	// Metrics are package-level variables, automatically registered.
	// These tests verify the helpers don't panic and move the right series.

	t.Run("RecordRequest", func(t *testing.T) {
		before := testutil.ToFloat64(Requests.WithLabelValues("cache"))
		RecordRequest("cache")
		if got := testutil.ToFloat64(Requests.WithLabelValues("cache")); got != before+1 {
			t.Errorf("RecordRequest() counter = %v, want %v", got, before+1)
		}
	})

	t.Run("RecordCacheHit", func(t *testing.T) {
		RecordCacheHit("l1")
		RecordCacheHit("l2")
	})

	t.Run("RecordNetworkError", func(t *testing.T) {
		before := testutil.ToFloat64(NetworkErrors.WithLabelValues("navigation"))
		RecordNetworkError("navigation")
		if got := testutil.ToFloat64(NetworkErrors.WithLabelValues("navigation")); got != before+1 {
			t.Errorf("RecordNetworkError() counter = %v, want %v", got, before+1)
		}
	})

	t.Run("RecordCacheError", func(t *testing.T) {
		RecordCacheError("l1", "encode")
	})

	t.Run("RecordEviction", func(t *testing.T) {
		before := testutil.ToFloat64(Evictions)
		RecordEviction()
		if got := testutil.ToFloat64(Evictions); got != before+1 {
			t.Errorf("RecordEviction() counter = %v, want %v", got, before+1)
		}
	})

	t.Run("RecordInstall", func(t *testing.T) {
		RecordInstall("success")
		RecordInstall("failure")
	})

	t.Run("SetActiveGeneration", func(t *testing.T) {
		SetActiveGeneration("", "v1")
		SetActiveGeneration("v1", "v2")

		if got := testutil.ToFloat64(ActiveGeneration.WithLabelValues("v2")); got != 1 {
			t.Errorf("SetActiveGeneration() v2 = %v, want 1", got)
		}
		if got := testutil.CollectAndCount(ActiveGeneration); got != 1 {
			t.Errorf("SetActiveGeneration() series = %v, want 1", got)
		}
	})

	t.Run("UpdateL1Stats", func(t *testing.T) {
		UpdateL1Stats("v2", 10, 1024)
		if got := testutil.ToFloat64(CacheEntries.WithLabelValues("l1", "v2")); got != 10 {
			t.Errorf("UpdateL1Stats() entries = %v, want 10", got)
		}
	})

	t.Run("TimePrecache", func(t *testing.T) {
		timer := TimePrecache()
		timer()
	})

	t.Run("TimeRequest", func(t *testing.T) {
		done := TimeRequest()
		done("network")
	})
}
