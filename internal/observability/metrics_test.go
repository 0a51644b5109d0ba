package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStageExecution(t *testing.T) {
	tests := []struct {
		stage    string
		result   string
		duration time.Duration
	}{
		{"extract", "success", 2 * time.Second},
		{"extract", "retryable_failure", 500 * time.Millisecond},
		{"classify", "lock_held", 0},
	}
	for _, tc := range tests {
		RecordStageExecution(tc.stage, tc.result, tc.duration)
		count := testutil.ToFloat64(stageExecutionsTotal.WithLabelValues(tc.stage, tc.result))
		if count <= 0 {
			t.Fatalf("expected counter for %s/%s to increment", tc.stage, tc.result)
		}
	}
}

func TestRecordDocumentOutcome(t *testing.T) {
	before := testutil.ToFloat64(documentsTotal.WithLabelValues("completed"))
	RecordDocumentOutcome("completed", 90*time.Second)
	after := testutil.ToFloat64(documentsTotal.WithLabelValues("completed"))
	if after != before+1 {
		t.Fatalf("expected completed counter to advance by 1, got %v -> %v", before, after)
	}
}

func TestSetQueueDepthOverwrites(t *testing.T) {
	SetQueueDepth("pending", 7)
	SetQueueDepth("pending", 3)
	if got := testutil.ToFloat64(queueDepth.WithLabelValues("pending")); got != 3 {
		t.Fatalf("expected gauge 3, got %v", got)
	}
}

func TestRecordAlertDelivery(t *testing.T) {
	before := testutil.ToFloat64(alertDeliveriesTotal.WithLabelValues("stage_failed", "delivered"))
	RecordAlertDelivery("stage_failed", "delivered")
	after := testutil.ToFloat64(alertDeliveriesTotal.WithLabelValues("stage_failed", "delivered"))
	if after != before+1 {
		t.Fatalf("expected delivery counter to advance, got %v -> %v", before, after)
	}
}

func TestRecordLockSweepIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(locksSweptTotal)
	RecordLockSweep(0)
	if got := testutil.ToFloat64(locksSweptTotal); got != before {
		t.Fatalf("zero sweep must not advance counter, got %v -> %v", before, got)
	}
	RecordLockSweep(4)
	if got := testutil.ToFloat64(locksSweptTotal); got != before+4 {
		t.Fatalf("expected counter to advance by 4, got %v -> %v", before, got)
	}
}
