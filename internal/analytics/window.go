package analytics

import "time"

const (
	// DefaultWindowDays is the trailing window used when the caller
	// does not supply one.
	DefaultWindowDays = 30
	// DisplayDays is the trailing sub-window used for display series
	// and weekly stats.
	DisplayDays = 7
)

// Window is an inclusive date range over which derived statistics are
// computed. Both ends are normalized to midnight in their own
// location; every timestamp inside a day belongs to that day's bucket.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow normalizes start and end to dates. An inverted range
// collapses to the single end date so callers always get at least one
// bucket.
func NewWindow(start, end time.Time) Window {
	start = dateOf(start)
	end = dateOf(end)
	if end.Before(start) {
		start = end
	}
	return Window{Start: start, End: end}
}

// TrailingWindow returns the window ending today (per now) and
// covering the given number of days, inclusive.
func TrailingWindow(now time.Time, days int) Window {
	if days < 1 {
		days = 1
	}
	end := dateOf(now)
	return Window{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// DefaultWindow is the trailing 30-day window.
func DefaultWindow(now time.Time) Window {
	return TrailingWindow(now, DefaultWindowDays)
}

// Days returns the number of day buckets in the window. The count is
// calendar days, so a DST-shortened 23-hour day still counts as one
// full bucket.
func (w Window) Days() int {
	return int(utcDate(w.End).Sub(utcDate(w.Start)).Hours()/24) + 1
}

// Contains reports whether the timestamp's date falls inside the
// window.
func (w Window) Contains(t time.Time) bool {
	d := dateOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// SubWindow returns the trailing sub-window of the given length,
// clamped to the window itself.
func (w Window) SubWindow(days int) Window {
	if days >= w.Days() {
		return w
	}
	return Window{Start: w.End.AddDate(0, 0, -(days - 1)), End: w.End}
}

// utcDate re-expresses the calendar date in UTC, where every day is
// exactly 24 hours, so bucket arithmetic is immune to DST transitions.
func utcDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
