package dateutil

import "time"

// DaysInMonth returns the number of calendar days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthStart returns midnight UTC on the first day of the month.
func MonthStart(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns midnight UTC on the last day of the month.
func MonthEnd(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// DateOnly truncates t to its calendar date in loc, represented as midnight UTC.
// Attendance dates are "working days", not timestamps, so they are stored
// timezone-free once resolved.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// WorkingDays counts days in the month that are not flagged as off-days,
// starting from doj when it falls inside the month. A doj after month end
// yields 0.
func WorkingDays(year int, month time.Month, offDays [7]bool, doj time.Time) int {
	start := MonthStart(year, month)
	end := MonthEnd(year, month)

	if doj.After(end) {
		return 0
	}
	if doj.After(start) {
		start = time.Date(doj.Year(), doj.Month(), doj.Day(), 0, 0, 0, 0, time.UTC)
	}

	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !offDays[int(d.Weekday())] {
			count++
		}
	}
	return count
}

// Week is a Monday-Sunday window.
type Week struct {
	Monday time.Time
	Sunday time.Time
}

// Contains reports whether d falls inside the window.
func (w Week) Contains(d time.Time) bool {
	return !d.Before(w.Monday) && !d.After(w.Sunday)
}

// MondayOf returns the Monday of the week containing d.
func MondayOf(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeeksOfMonth returns every Monday-Sunday window that overlaps the month,
// including partial edge weeks.
func WeeksOfMonth(year int, month time.Month) []Week {
	start := MondayOf(MonthStart(year, month))
	end := MonthEnd(year, month)

	var weeks []Week
	for monday := start; !monday.After(end); monday = monday.AddDate(0, 0, 7) {
		weeks = append(weeks, Week{Monday: monday, Sunday: monday.AddDate(0, 0, 6)})
	}
	return weeks
}

// SundaysOfMonth lists every Sunday date within the month.
func SundaysOfMonth(year int, month time.Month) []time.Time {
	var sundays []time.Time
	end := MonthEnd(year, month)
	for d := MonthStart(year, month); !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Sunday {
			sundays = append(sundays, d)
		}
	}
	return sundays
}
