package policy

import (
	"slices"
	"time"
)

// ShouldCreate reports whether policy p asks for a snapshot on today.
// A Monthly day that does not exist in the current month (31 in April)
// never matches; there is no rounding to the last day of the month.
func ShouldCreate(p Policy, today time.Time) bool {
	if !p.Enabled {
		return false
	}

	switch p.Recurrence {
	case RecurrenceAlways, RecurrenceDaily:
		return true
	case RecurrenceWeekly:
		return slices.Contains(p.Weekdays, today.Weekday())
	case RecurrenceMonthly:
		return slices.Contains(p.MonthDays, today.Day())
	default:
		return false
	}
}

// NextRuns returns up to n dates, starting at from, on which ShouldCreate is
// true. The search stops after one year.
func NextRuns(p Policy, from time.Time, n int) []time.Time {
	var runs []time.Time
	day := Day(from)
	for i := 0; i < 366 && len(runs) < n; i++ {
		if ShouldCreate(p, day) {
			runs = append(runs, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return runs
}
