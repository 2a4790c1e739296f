package timeline

import (
	"time"

	"github.com/dmitrymomot/sublife/pkg/catalog"
)

// NextDate returns the end of a phase that starts at start and lasts d.
// It returns false for unlimited and invalid durations.
func NextDate(start time.Time, d catalog.Duration) (time.Time, bool) {
	if d.Validate() != nil || d.IsUnlimited() {
		return time.Time{}, false
	}

	start = start.UTC()
	switch d.Unit {
	case catalog.Days:
		return start.AddDate(0, 0, d.Count), true
	case catalog.Weeks:
		return start.AddDate(0, 0, 7*d.Count), true
	case catalog.Months:
		return addMonths(start, d.Count), true
	case catalog.Years:
		return addMonths(start, 12*d.Count), true
	}
	return time.Time{}, false
}

// addMonths moves t by n calendar months, clamping the day to the length of
// the target month. time.AddDate would normalise Jan 31 + 1 month to March.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
