//go:build !integration

package metrics

import (
	"fmt"
	"testing"
	"time"
)

func metricAt(userID, status string, ts time.Time) RequestMetric {
	return RequestMetric{
		UserID:    userID,
		Type:      "quiz",
		Timestamp: ts,
		Duration:  100 * time.Millisecond,
		Status:    status,
	}
}

func TestRecorderRingEviction(t *testing.T) {
	r := NewRecorder(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		r.Record(metricAt(fmt.Sprintf("user-%d", i), "success", now))
	}

	got := r.Metrics("")
	if len(got) != 3 {
		t.Fatalf("len = %d, want capped at 3", len(got))
	}
	// Oldest two evicted, order preserved.
	for i, want := range []string{"user-2", "user-3", "user-4"} {
		if got[i].UserID != want {
			t.Errorf("metrics[%d].UserID = %s, want %s", i, got[i].UserID, want)
		}
	}
}

func TestRecorderUserFilter(t *testing.T) {
	r := NewRecorder(10)
	now := time.Now()
	r.Record(metricAt("alice", "success", now))
	r.Record(metricAt("bob", "error", now))
	r.Record(metricAt("alice", "error", now))

	if got := r.Metrics("alice"); len(got) != 2 {
		t.Errorf("alice metrics = %d, want 2", len(got))
	}
	if got := r.Metrics(""); len(got) != 3 {
		t.Errorf("all metrics = %d, want 3", len(got))
	}
}

func TestRecorderStatsWindow(t *testing.T) {
	r := NewRecorder(10)
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	// Outside the one-hour window: ignored.
	r.Record(metricAt("alice", "success", base.Add(-2*time.Hour)))
	// Inside the window.
	r.Record(metricAt("alice", "success", base.Add(-30*time.Minute)))
	r.Record(metricAt("alice", "error", base.Add(-10*time.Minute)))

	s := r.Stats("")
	if s.TotalRequests != 2 {
		t.Fatalf("total = %d, want 2 inside the window", s.TotalRequests)
	}
	if s.SuccessCount != 1 || s.ErrorCount != 1 {
		t.Errorf("success/error = %d/%d, want 1/1", s.SuccessCount, s.ErrorCount)
	}
	if s.SuccessRate != 50 {
		t.Errorf("success rate = %v, want 50", s.SuccessRate)
	}
	if s.AvgDurationMs != 100 {
		t.Errorf("avg duration = %d, want 100", s.AvgDurationMs)
	}
}

func TestRecorderStatsEmpty(t *testing.T) {
	r := NewRecorder(10)
	s := r.Stats("nobody")
	if s.TotalRequests != 0 || s.SuccessRate != 0 {
		t.Errorf("empty stats = %+v, want zeros", s)
	}
}

func TestRecorderDefaultCapacity(t *testing.T) {
	r := NewRecorder(0)
	if r.cap != defaultCapacity {
		t.Errorf("cap = %d, want %d", r.cap, defaultCapacity)
	}
}
