package traffic

import (
	"sync"
	"time"
)

// Outcome classifies one served weather lookup.
type Outcome int

const (
	// Delivered means the fetcher reported a snapshot.
	Delivered Outcome = iota
	// Failed means the fetcher reported a failure or the wait bound elapsed.
	Failed
	// Denied means the rate limiter rejected the request before a fetch was issued.
	Denied
	numOutcomes
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// retention bounds how far back any window query can look.
const retention = 5 * time.Minute

var defaultTracker Tracker

// Record notes one outcome on the process-wide tracker.
func Record(o Outcome) {
	defaultTracker.Record(o)
}

// RecordN notes n identical outcomes. Used by the testing-mode endpoints.
func RecordN(o Outcome, n int) {
	defaultTracker.RecordN(o, n)
}

// RequestCount returns every outcome (delivered, failed, denied) within the window.
func RequestCount(window time.Duration) int {
	return defaultTracker.RequestCount(window)
}

// DenialCount returns the number of denials within the window.
func DenialCount(window time.Duration) int {
	return defaultTracker.Count(Denied, window)
}

// FailureRate returns (failed, failed+delivered) within the window. Denials are excluded.
func FailureRate(window time.Duration) (failures, total int) {
	return defaultTracker.FailureRate(window)
}

// Reset clears all recorded outcomes. For tests and the testing-mode reset action.
func Reset() {
	defaultTracker.Reset()
}

// Tracker keeps timestamps per Outcome for sliding-window queries.
// Health status and the window gauges read from the same tracker.
type Tracker struct {
	mu    sync.Mutex
	times [numOutcomes][]time.Time
}

func (t *Tracker) Record(o Outcome) {
	t.RecordN(o, 1)
}

func (t *Tracker) RecordN(o Outcome, n int) {
	if o < 0 || o >= numOutcomes || n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	for i := 0; i < n; i++ {
		t.times[o] = append(t.times[o], now)
	}
	t.pruneLocked(now)
}

// Count returns the number of o outcomes within the window.
func (t *Tracker) Count(o Outcome, window time.Duration) int {
	if o < 0 || o >= numOutcomes {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.times[o], time.Now().Add(-window))
}

func (t *Tracker) RequestCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-window)
	n := 0
	for o := range t.times {
		n += countSince(t.times[o], cutoff)
	}
	return n
}

func (t *Tracker) FailureRate(window time.Duration) (failures, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-window)
	failures = countSince(t.times[Failed], cutoff)
	return failures, failures + countSince(t.times[Delivered], cutoff)
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for o := range t.times {
		t.times[o] = nil
	}
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than retention. Caller holds t.mu.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	for o := range t.times {
		times := t.times[o]
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[o] = append(times[:0], times[i:]...)
		}
	}
}
