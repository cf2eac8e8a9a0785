package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetrics_Backlog(t *testing.T) {
	m := NewOutboxMetrics(prometheus.NewRegistry())

	m.SetBacklog(3, 90*time.Second)
	if got := gaugeValue(t, m.pending); got != 3 {
		t.Fatalf("expected 3 pending, got %v", got)
	}
	if got := gaugeValue(t, m.oldestPending); got != 90 {
		t.Fatalf("expected 90s age, got %v", got)
	}

	m.SetBacklog(0, -time.Second)
	if got := gaugeValue(t, m.oldestPending); got != 0 {
		t.Fatalf("negative age must be clamped to 0, got %v", got)
	}

	m.RecordAttempt("sent")
	m.RecordAttempt("sent")
	m.RecordAttempt("retry_error")
	if got := counterValue(t, m.attempts, "sent"); got != 2 {
		t.Fatalf("expected 2 sent attempts, got %v", got)
	}
}

func TestCleanupMetrics_Runs(t *testing.T) {
	m := NewCleanupMetrics(prometheus.NewRegistry())

	m.RecordDeleted(4)
	m.RecordDeleted(0)
	m.RecordRun("ok", 4)
	m.RecordRun("error", 0)

	if got := counterTotal(t, m.deleted); got != 4 {
		t.Fatalf("expected 4 deleted, got %v", got)
	}
	if got := gaugeValue(t, m.lastDeleted); got != 4 {
		t.Fatalf("error run must not reset last deleted, got %v", got)
	}
	if got := counterValue(t, m.runs, "error"); got != 1 {
		t.Fatalf("expected 1 failed run, got %v", got)
	}
}
