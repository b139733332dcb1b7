package calendar

import (
	"fmt"
	"strings"
	"time"
)

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	TARGET       CalendarID = "TARGET"
	USD          CalendarID = "USD"
	WeekendsOnly CalendarID = "WEEKENDS"
	NullCalendar CalendarID = "NULL"
)

// ParseCalendar maps a name to a CalendarID. Unknown names are an error.
func ParseCalendar(name string) (CalendarID, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TARGET", "EUR":
		return TARGET, nil
	case "USD", "US", "NYC":
		return USD, nil
	case "WEEKENDS", "WEEKENDSONLY":
		return WeekendsOnly, nil
	case "NULL", "NONE", "":
		return NullCalendar, nil
	default:
		return "", fmt.Errorf("ParseCalendar: unknown calendar %q", name)
	}
}

func isHoliday(cal CalendarID, t time.Time) bool {
	switch cal {
	case TARGET:
		return isTargetHoliday(t)
	case USD:
		return isUSDHoliday(t)
	default:
		return false
	}
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal CalendarID, t time.Time) bool {
	if cal == NullCalendar {
		return true
	}
	if isWeekend(t) {
		return false
	}
	return !isHoliday(cal, t)
}

// Adjust applies the business-day convention.
func Adjust(cal CalendarID, t time.Time, conv Convention) time.Time {
	switch conv {
	case Unadjusted:
		return t
	case Following:
		return following(cal, t)
	case Preceding:
		return preceding(cal, t)
	case ModifiedPreceding:
		adj := preceding(cal, t)
		if adj.Month() != t.Month() {
			return following(cal, t)
		}
		return adj
	default:
		adj := following(cal, t)
		if adj.Month() != t.Month() {
			return preceding(cal, t)
		}
		return adj
	}
}

func following(cal CalendarID, t time.Time) time.Time {
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func preceding(cal CalendarID, t time.Time) time.Time {
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
// With n == 0 the date is rolled forward to a business day.
func AddBusinessDays(cal CalendarID, t time.Time, n int) time.Time {
	if n == 0 {
		return following(cal, t)
	}
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}

// Advance moves t by p. Day periods count business days; other units move on the
// calendar and then apply conv. With eom set, a start on the last business day of
// its month lands on the last business day of the target month.
func Advance(cal CalendarID, t time.Time, p Period, conv Convention, eom bool) time.Time {
	if p.N == 0 {
		return Adjust(cal, t, conv)
	}
	switch p.Unit {
	case Days:
		return AddBusinessDays(cal, t, p.N)
	case Weeks:
		return Adjust(cal, t.AddDate(0, 0, 7*p.N), conv)
	default:
		months := p.N
		if p.Unit == Years {
			months *= 12
		}
		d := AddMonth(t, months)
		if eom && IsEndOfMonth(cal, t) {
			return LastBusinessDayOfMonth(cal, d)
		}
		return Adjust(cal, d, conv)
	}
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// LastBusinessDayOfMonth returns the last business day of the month containing t.
func LastBusinessDayOfMonth(cal CalendarID, t time.Time) time.Time {
	last := time.Date(t.Year(), t.Month(), daysInMonth(t.Year(), t.Month()), 0, 0, 0, 0, time.UTC)
	return preceding(cal, last)
}

// IsEndOfMonth checks if t is the last business day of its month.
func IsEndOfMonth(cal CalendarID, t time.Time) bool {
	return t.Equal(LastBusinessDayOfMonth(cal, t))
}
