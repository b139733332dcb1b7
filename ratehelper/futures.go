package ratehelper

import (
	"fmt"
	"time"

	"github.com/meenmo/curvekit/calendar"
	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/quote"
	"github.com/meenmo/curvekit/termstructure"
)

// IsIMMDate reports whether d is the third Wednesday of March, June, September or
// December.
func IsIMMDate(d time.Time) bool {
	if d.Weekday() != time.Wednesday || d.Day() < 15 || d.Day() > 21 {
		return false
	}
	return d.Month()%3 == 0
}

// NextIMMDate returns the first IMM date strictly after d.
func NextIMMDate(d time.Time) time.Time {
	y, m := d.Year(), d.Month()
	for {
		if m%3 == 0 {
			first := calendar.Date(y, m, 1)
			offset := (int(time.Wednesday) - int(first.Weekday()) + 7) % 7
			imm := first.AddDate(0, 0, offset+14)
			if imm.After(d) {
				return imm
			}
		}
		m++
		if m > time.December {
			m = time.January
			y++
		}
	}
}

// FuturesInput describes an IMM interest-rate future quoted as 100 minus the rate
// in percent.
type FuturesInput struct {
	// StartDate must be an IMM date.
	StartDate    time.Time
	LengthMonths int
	Calendar     calendar.CalendarID
	Convention   calendar.Convention
	EndOfMonth   bool
	// DayCounter defaults to ACT/360.
	DayCounter daycount.DayCounter
	// Convexity is the futures-minus-forward adjustment as a decimal rate; optional.
	Convexity *quote.Handle
	Pillar    Pillar
}

// Futures calibrates a forward rate from a futures price.
type Futures struct {
	base
	dc        daycount.DayCounter
	convexity *quote.Handle
}

// NewFutures builds a futures helper.
func NewFutures(q *quote.Handle, ref time.Time, in FuturesInput) (*Futures, error) {
	const op = "ratehelper.NewFutures"
	if err := checkQuote(op, q); err != nil {
		return nil, err
	}
	if !IsIMMDate(in.StartDate) {
		return nil, errs.Configuration(op, "%s is not an IMM date", fmtDate(in.StartDate))
	}
	if in.LengthMonths <= 0 {
		return nil, errs.Configuration(op, "non-positive length %d", in.LengthMonths)
	}
	cal := orCalendar(in.Calendar)
	f := &Futures{dc: orDayCounter(in.DayCounter, daycount.Actual360), convexity: in.Convexity}
	f.kind, f.quote, f.ref = KindFutures, q, ref
	f.desc = fmt.Sprintf("Futures %s %dM", fmtDate(in.StartDate), in.LengthMonths)
	f.earliest = in.StartDate
	f.maturity = calendar.Advance(cal, in.StartDate, calendar.Period{N: in.LengthMonths, Unit: calendar.Months},
		in.Convention, in.EndOfMonth)
	f.latest = f.maturity
	if err := f.finish(op, in.Pillar); err != nil {
		return nil, err
	}
	return f, nil
}

// ConvexityAdjustment returns the adjustment, zero when none is linked.
func (f *Futures) ConvexityAdjustment() (float64, error) {
	if f.convexity == nil || f.convexity.Empty() {
		return 0, nil
	}
	return f.convexity.Value()
}

// Generation includes the convexity quote.
func (f *Futures) Generation() uint64 {
	g := f.quote.Generation()
	if f.convexity != nil {
		g += f.convexity.Generation()
	}
	return g
}

// ImpliedQuote returns the futures price implied by ts.
func (f *Futures) ImpliedQuote(ts termstructure.YieldTermStructure) (float64, error) {
	fwd, err := simpleForward(ts, f.earliest, f.maturity, f.dc)
	if err != nil {
		return 0, err
	}
	adj, err := f.ConvexityAdjustment()
	if err != nil {
		return 0, err
	}
	return 100 * (1 - (fwd + adj)), nil
}

// QuoteError implements RateHelper.
func (f *Futures) QuoteError(ts termstructure.YieldTermStructure) (float64, error) {
	return quoteError(f, ts)
}
