package traffic

import (
	"testing"
	"time"
)

// TestRequestCount_Empty verifies that RequestCount returns 0 when nothing
// has been recorded within the time window.
func TestRequestCount_Empty(t *testing.T) {
	Reset()
	if n := RequestCount(1 * time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
}

// TestRecord_AllOutcomesCountAsRequests verifies that every outcome kind
// contributes to RequestCount.
func TestRecord_AllOutcomesCountAsRequests(t *testing.T) {
	Reset()
	Record(Delivered)
	Record(Failed)
	Record(Denied)
	if n := RequestCount(1 * time.Minute); n != 3 {
		t.Errorf("RequestCount() = %d, want 3", n)
	}
}

func TestDenialCount(t *testing.T) {
	Reset()
	Record(Denied)
	Record(Denied)
	Record(Delivered)
	if n := DenialCount(1 * time.Minute); n != 2 {
		t.Errorf("DenialCount() = %d, want 2", n)
	}
}

// TestFailureRate_DeniedExcluded verifies that rate-limit denials never count
// toward the upstream failure rate.
func TestFailureRate_DeniedExcluded(t *testing.T) {
	Reset()
	Record(Delivered)
	Record(Delivered)
	Record(Failed)
	Record(Denied)
	Record(Denied)
	failures, total := FailureRate(1 * time.Minute)
	if failures != 1 || total != 3 {
		t.Errorf("FailureRate() = (%d, %d), want (1, 3)", failures, total)
	}
}

func TestRecordN(t *testing.T) {
	Reset()
	RecordN(Delivered, 39)
	RecordN(Failed, 1)
	RecordN(Denied, 0)
	failures, total := FailureRate(1 * time.Minute)
	if failures != 1 || total != 40 {
		t.Errorf("FailureRate() = (%d, %d), want (1, 40)", failures, total)
	}
	if n := RequestCount(1 * time.Minute); n != 40 {
		t.Errorf("RequestCount() = %d, want 40", n)
	}
}

func TestRecord_UnknownOutcomeIgnored(t *testing.T) {
	Reset()
	Record(Outcome(42))
	Record(Outcome(-1))
	if n := RequestCount(1 * time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
}

// TestCounts_ExpireOutsideWindow verifies that window queries exclude outcomes
// older than the window.
func TestCounts_ExpireOutsideWindow(t *testing.T) {
	Reset()
	Record(Delivered)
	Record(Denied)
	if n := RequestCount(1 * time.Nanosecond); n != 0 {
		t.Errorf("RequestCount(1ns) = %d, want 0", n)
	}
	if n := DenialCount(1 * time.Nanosecond); n != 0 {
		t.Errorf("DenialCount(1ns) = %d, want 0", n)
	}
}

func TestTracker_PrunesBeyondRetention(t *testing.T) {
	var tr Tracker
	old := time.Now().Add(-2 * retention)
	tr.times[Delivered] = []time.Time{old, old}
	tr.Record(Delivered)
	if got := len(tr.times[Delivered]); got != 1 {
		t.Errorf("retained %d timestamps, want 1", got)
	}
}

func TestReset(t *testing.T) {
	Reset()
	Record(Delivered)
	Record(Failed)
	Record(Denied)
	Reset()
	if n := RequestCount(1 * time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
	failures, total := FailureRate(1 * time.Minute)
	if failures != 0 || total != 0 {
		t.Errorf("FailureRate() = (%d, %d), want (0, 0)", failures, total)
	}
}

func TestOutcome_String(t *testing.T) {
	tests := map[Outcome]string{
		Delivered:   "delivered",
		Failed:      "failed",
		Denied:      "denied",
		Outcome(99): "unknown",
	}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
