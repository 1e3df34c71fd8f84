package services

import "time"

// addMonths advances t by the given number of months, clamping the day to
// the target month's length instead of letting it normalize forward
// (Jan 31 + 1 month = Feb 28, not Mar 3). Installment schedules depend on
// this: every installment of a purchase must land in a distinct month.
func addMonths(t time.Time, months int) time.Time {
	total := int(t.Month()) - 1 + months
	year := t.Year() + total/12
	month := time.Month(total%12 + 1)
	day := t.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// clampedDate returns midnight UTC on the given day of month, clamped to
// the month's length. Card closing/due days of 29-31 clamp in short months.
func clampedDate(year int, month time.Month, day int) time.Time {
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the following month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
