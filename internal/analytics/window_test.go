package analytics

import (
	"testing"
	"time"
)

func TestWindowDaysAcrossSpringForward(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2026-03-08 is only 23 hours long in New York; the window still
	// covers three calendar days.
	w := NewWindow(
		time.Date(2026, time.March, 7, 10, 0, 0, 0, loc),
		time.Date(2026, time.March, 9, 10, 0, 0, 0, loc),
	)
	if got := w.Days(); got != 3 {
		t.Errorf("Days() = %d, want 3", got)
	}
	if snap := Aggregate(nil, nil, nil, w); len(snap.TimeSeries) != 3 {
		t.Errorf("expected 3 time buckets, got %d", len(snap.TimeSeries))
	}
}

func TestWindowDaysAcrossFallBack(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// The 25-hour day must not inflate the bucket count either.
	w := NewWindow(
		time.Date(2026, time.October, 31, 10, 0, 0, 0, loc),
		time.Date(2026, time.November, 2, 10, 0, 0, 0, loc),
	)
	if got := w.Days(); got != 3 {
		t.Errorf("Days() = %d, want 3", got)
	}
}

func TestWindowSingleDay(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 23, 15, 4, 5, 0, time.UTC)
	w := NewWindow(now, now)
	if got := w.Days(); got != 1 {
		t.Errorf("Days() = %d, want 1", got)
	}
}
