// Package schedule generates coupon date schedules.
package schedule

import (
	"fmt"
	"time"

	"github.com/meenmo/curvekit/calendar"
)

// Rule selects the generation direction.
type Rule int

const (
	// Backward rolls from termination towards effective; any stub is at the front.
	Backward Rule = iota
	// Forward rolls from effective towards termination; any stub is at the back.
	Forward
)

// stubMergeDays is the longest stub that gets folded into its neighbour.
const stubMergeDays = 7

// Period is one accrual period on adjusted dates.
type Period struct {
	Start time.Time
	End   time.Time
}

// Schedule is an ordered list of adjusted dates; consecutive dates bound the periods.
type Schedule struct {
	Dates      []time.Time
	Unadjusted []time.Time
}

// Generate builds a schedule between effective and termination.
//
// Intermediate dates are adjusted with conv and the termination date with termConv.
// A stub of at most a week next to the anchor date is merged into the adjacent
// period. With eom set and an anchor at month end, rolled dates stay at month end.
func Generate(effective, termination time.Time, tenor calendar.Period, cal calendar.CalendarID,
	conv, termConv calendar.Convention, rule Rule, eom bool) (Schedule, error) {
	if !termination.After(effective) {
		return Schedule{}, fmt.Errorf("schedule.Generate: termination %s not after effective %s",
			termination.Format("2006-01-02"), effective.Format("2006-01-02"))
	}
	if tenor.N <= 0 {
		return Schedule{}, fmt.Errorf("schedule.Generate: non-positive tenor %s", tenor)
	}

	var unadj []time.Time
	if rule == Forward {
		unadj = rollForward(effective, termination, tenor, eom && isMonthEnd(effective))
	} else {
		unadj = rollBackward(effective, termination, tenor, eom && isMonthEnd(termination))
	}

	adj := make([]time.Time, len(unadj))
	last := len(unadj) - 1
	for i, d := range unadj {
		switch i {
		case last:
			adj[i] = calendar.Adjust(cal, d, termConv)
		default:
			adj[i] = calendar.Adjust(cal, d, conv)
		}
	}
	for i := 1; i < len(adj); i++ {
		if !adj[i].After(adj[i-1]) {
			return Schedule{}, fmt.Errorf("schedule.Generate: adjusted dates not increasing at %s",
				adj[i].Format("2006-01-02"))
		}
	}
	return Schedule{Dates: adj, Unadjusted: unadj}, nil
}

func rollBackward(effective, termination time.Time, tenor calendar.Period, eom bool) []time.Time {
	var rolled []time.Time
	for k := 1; ; k++ {
		d := roll(termination, tenor, -k, eom)
		if !d.After(effective) {
			break
		}
		rolled = append(rolled, d)
	}
	if n := len(rolled); n > 0 && calendar.DaysBetween(effective, rolled[n-1]) <= stubMergeDays {
		rolled = rolled[:n-1]
	}

	out := make([]time.Time, 0, len(rolled)+2)
	out = append(out, effective)
	for i := len(rolled) - 1; i >= 0; i-- {
		out = append(out, rolled[i])
	}
	return append(out, termination)
}

func rollForward(effective, termination time.Time, tenor calendar.Period, eom bool) []time.Time {
	out := []time.Time{effective}
	for k := 1; ; k++ {
		d := roll(effective, tenor, k, eom)
		if !d.Before(termination) {
			break
		}
		out = append(out, d)
	}
	if n := len(out); n > 1 && calendar.DaysBetween(out[n-1], termination) <= stubMergeDays {
		out = out[:n-1]
	}
	return append(out, termination)
}

// roll moves anchor by k tenors without drift: each date is computed from the anchor.
func roll(anchor time.Time, tenor calendar.Period, k int, eom bool) time.Time {
	switch tenor.Unit {
	case calendar.Days:
		return anchor.AddDate(0, 0, k*tenor.N)
	case calendar.Weeks:
		return anchor.AddDate(0, 0, 7*k*tenor.N)
	default:
		d := calendar.AddMonth(anchor, k*tenor.Months())
		if eom {
			d = monthEnd(d)
		}
		return d
	}
}

func isMonthEnd(t time.Time) bool {
	return t.AddDate(0, 0, 1).Month() != t.Month()
}

func monthEnd(t time.Time) time.Time {
	return calendar.Date(t.Year(), t.Month()+1, 1).AddDate(0, 0, -1)
}

// Len returns the number of periods.
func (s Schedule) Len() int {
	if len(s.Dates) < 2 {
		return 0
	}
	return len(s.Dates) - 1
}

// Periods returns consecutive (start, end) pairs.
func (s Schedule) Periods() []Period {
	out := make([]Period, 0, s.Len())
	for i := 1; i < len(s.Dates); i++ {
		out = append(out, Period{Start: s.Dates[i-1], End: s.Dates[i]})
	}
	return out
}

// StartDate is the first adjusted date.
func (s Schedule) StartDate() time.Time { return s.Dates[0] }

// EndDate is the last adjusted date.
func (s Schedule) EndDate() time.Time { return s.Dates[len(s.Dates)-1] }
