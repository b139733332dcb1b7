package calendar

import "time"

// easterMonday returns the day-of-year of Easter Monday (anonymous Gregorian algorithm).
func easterMonday(year int) int {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	sunday := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return sunday.YearDay() + 1
}

// isTargetHoliday implements the TARGET2 closing days.
func isTargetHoliday(t time.Time) bool {
	d, m, y := t.Day(), t.Month(), t.Year()
	dd := t.YearDay()
	em := easterMonday(y)
	switch {
	case d == 1 && m == time.January:
		return true
	case y >= 2000 && (dd == em-3 || dd == em):
		// Good Friday, Easter Monday
		return true
	case y >= 2000 && d == 1 && m == time.May:
		return true
	case d == 25 && m == time.December:
		return true
	case y >= 2000 && d == 26 && m == time.December:
		return true
	case y == 1999 || y == 2001:
		return d == 31 && m == time.December
	}
	return false
}

// isUSDHoliday implements the US federal (SOFR) holiday rules with weekend observance.
func isUSDHoliday(t time.Time) bool {
	d, m, y := t.Day(), t.Month(), t.Year()
	w := t.Weekday()
	nthMonday := (d-1)/7 + 1
	switch m {
	case time.January:
		// New Year's Day (Monday if Sunday), Martin Luther King Jr. Day
		if (d == 1 || (d == 2 && w == time.Monday)) || (w == time.Monday && nthMonday == 3 && y >= 1983) {
			return true
		}
	case time.February:
		// Washington's Birthday
		return w == time.Monday && nthMonday == 3
	case time.May:
		// Memorial Day
		return w == time.Monday && d > 24
	case time.June:
		// Juneteenth
		if y >= 2022 {
			return observed(d, w, 19)
		}
	case time.July:
		return observed(d, w, 4)
	case time.September:
		// Labor Day
		return w == time.Monday && d <= 7
	case time.October:
		// Columbus Day
		return w == time.Monday && nthMonday == 2
	case time.November:
		// Veterans Day, Thanksgiving
		return observed(d, w, 11) || (w == time.Thursday && d >= 22 && d <= 28)
	case time.December:
		// Christmas; New Year's Day observed on Friday 31st
		return observed(d, w, 25) || (d == 31 && w == time.Friday)
	}
	return false
}

// observed reports whether d is the fixed holiday fixed or its Friday/Monday substitute.
func observed(d int, w time.Weekday, fixed int) bool {
	if d == fixed && w != time.Saturday && w != time.Sunday {
		return true
	}
	return (d == fixed+1 && w == time.Monday) || (d == fixed-1 && w == time.Friday)
}
