// Package daycount maps date pairs to year fractions.
package daycount

import (
	"fmt"
	"strings"
	"time"
)

// DayCounter identifies a day count convention.
type DayCounter string

const (
	Actual360         DayCounter = "ACT/360"
	Actual365Fixed    DayCounter = "ACT/365F"
	Thirty360         DayCounter = "30/360"
	Thirty360European DayCounter = "30E/360"
	ActualActualISDA  DayCounter = "ACT/ACT"
)

const defaultDayCounter = Actual365Fixed

// Parse maps a convention name to a DayCounter.
func Parse(name string) (DayCounter, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "")) {
	case "ACT/360", "ACTUAL360", "A360":
		return Actual360, nil
	case "ACT/365F", "ACT/365", "ACTUAL365FIXED", "A365F":
		return Actual365Fixed, nil
	case "30/360", "30U/360", "THIRTY360", "BONDBASIS":
		return Thirty360, nil
	case "30E/360", "THIRTY360EUROPEAN", "EUROBOND":
		return Thirty360European, nil
	case "ACT/ACT", "ACT/ACTISDA", "ACTUALACTUAL":
		return ActualActualISDA, nil
	case "":
		return defaultDayCounter, nil
	default:
		return "", fmt.Errorf("daycount.Parse: unknown day counter %q", name)
	}
}

func actualDays(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// DayCount returns the number of days between start and end under the convention.
func (dc DayCounter) DayCount(start, end time.Time) float64 {
	switch dc {
	case Thirty360:
		return thirty360(start, end, false)
	case Thirty360European:
		return thirty360(start, end, true)
	default:
		return actualDays(start, end)
	}
}

// YearFraction computes the year fraction between two dates. Swapped dates give a
// negative fraction.
func (dc DayCounter) YearFraction(start, end time.Time) float64 {
	if end.Before(start) {
		return -dc.YearFraction(end, start)
	}
	switch dc {
	case Actual360:
		return actualDays(start, end) / 360.0
	case Thirty360, Thirty360European:
		return dc.DayCount(start, end) / 360.0
	case ActualActualISDA:
		return actActISDA(start, end)
	default:
		return actualDays(start, end) / 365.0
	}
}

// thirty360 implements the bond basis (US) rule and, when european is set, the 30E/360 rule.
func thirty360(start, end time.Time, european bool) float64 {
	d1, d2 := start.Day(), end.Day()
	if european {
		if d1 > 30 {
			d1 = 30
		}
		if d2 > 30 {
			d2 = 30
		}
	} else {
		if d1 == 31 {
			d1 = 30
		}
		if d2 == 31 && d1 >= 30 {
			d2 = 30
		}
	}
	y1, m1 := start.Year(), int(start.Month())
	y2, m2 := end.Year(), int(end.Month())
	return float64(360*(y2-y1) + 30*(m2-m1) + (d2 - d1))
}

func actActISDA(start, end time.Time) float64 {
	y1, y2 := start.Year(), end.Year()
	if y1 == y2 {
		return actualDays(start, end) / daysInYear(y1)
	}
	jan1Next := time.Date(y1+1, 1, 1, 0, 0, 0, 0, time.UTC)
	jan1Last := time.Date(y2, 1, 1, 0, 0, 0, 0, time.UTC)
	sum := float64(y2 - y1 - 1)
	sum += actualDays(start, jan1Next) / daysInYear(y1)
	sum += actualDays(jan1Last, end) / daysInYear(y2)
	return sum
}

func daysInYear(y int) float64 {
	if (y%4 == 0 && y%100 != 0) || y%400 == 0 {
		return 366
	}
	return 365
}
