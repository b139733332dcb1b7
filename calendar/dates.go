package calendar

import (
	"fmt"
	"sort"
	"time"
)

// Date returns midnight UTC for the given day; all curve dates are normalised this way.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Normalize truncates t to midnight UTC of its calendar day.
func Normalize(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// ParseDate converts YYYY-MM-DD to a normalised date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %w", err)
	}
	return t, nil
}

// SortDates sorts a slice of time.Time in ascending order.
func SortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
}

// AddMonth behaves like Excel's EDATE: the day is clamped to the target month's
// length instead of overflowing into the next month.
func AddMonth(t time.Time, months int) time.Time {
	first := Date(t.Year(), t.Month(), 1).AddDate(0, months, 0)
	day := t.Day()
	if n := daysInMonth(first.Year(), first.Month()); day > n {
		day = n
	}
	return Date(first.Year(), first.Month(), day)
}

// DaysBetween returns the number of calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(Normalize(end).Sub(Normalize(start)).Hours() / 24)
}
