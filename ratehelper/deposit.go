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

// DepositInput describes a money-market deposit quoted as a simple rate.
type DepositInput struct {
	// Tenor is the deposit length, e.g. 3M.
	Tenor calendar.Period
	// FixingDays is the spot lag in business days from the reference date.
	FixingDays int
	Calendar   calendar.CalendarID
	Convention calendar.Convention
	EndOfMonth bool
	// DayCounter defaults to ACT/360.
	DayCounter daycount.DayCounter
	Pillar     Pillar
}

// Deposit calibrates D(start)/D(end).
type Deposit struct {
	base
	dc    daycount.DayCounter
	start time.Time
}

// NewDeposit builds a deposit helper starting FixingDays after ref.
func NewDeposit(q *quote.Handle, ref time.Time, in DepositInput) (*Deposit, error) {
	const op = "ratehelper.NewDeposit"
	if err := checkQuote(op, q); err != nil {
		return nil, err
	}
	if in.Tenor.N <= 0 {
		return nil, errs.Configuration(op, "non-positive tenor %s", in.Tenor)
	}
	if in.FixingDays < 0 {
		return nil, errs.Configuration(op, "negative fixing days %d", in.FixingDays)
	}
	cal := orCalendar(in.Calendar)
	d := &Deposit{dc: orDayCounter(in.DayCounter, daycount.Actual360)}
	d.kind, d.quote, d.ref = KindDeposit, q, ref
	d.desc = fmt.Sprintf("Deposit %s", in.Tenor)
	d.start = calendar.AddBusinessDays(cal, ref, in.FixingDays)
	d.maturity = calendar.Advance(cal, d.start, in.Tenor, in.Convention, in.EndOfMonth)
	d.earliest, d.latest = d.start, d.maturity
	if err := d.finish(op, in.Pillar); err != nil {
		return nil, err
	}
	return d, nil
}

// StartDate is the value date.
func (d *Deposit) StartDate() time.Time { return d.start }

// ImpliedQuote returns the simple rate implied by ts.
func (d *Deposit) ImpliedQuote(ts termstructure.YieldTermStructure) (float64, error) {
	return simpleForward(ts, d.start, d.maturity, d.dc)
}

// QuoteError implements RateHelper.
func (d *Deposit) QuoteError(ts termstructure.YieldTermStructure) (float64, error) {
	return quoteError(d, ts)
}

// FRAInput describes a forward rate agreement, e.g. 3x6.
type FRAInput struct {
	MonthsToStart int
	MonthsToEnd   int
	FixingDays    int
	Calendar      calendar.CalendarID
	Convention    calendar.Convention
	EndOfMonth    bool
	// DayCounter defaults to ACT/360.
	DayCounter daycount.DayCounter
	Pillar     Pillar
}

// FRA calibrates the simple forward between two future dates.
type FRA struct {
	base
	dc daycount.DayCounter
}

// NewFRA builds an FRA helper. Start and end are counted from the spot date.
func NewFRA(q *quote.Handle, ref time.Time, in FRAInput) (*FRA, error) {
	const op = "ratehelper.NewFRA"
	if err := checkQuote(op, q); err != nil {
		return nil, err
	}
	if in.MonthsToStart < 0 || in.MonthsToEnd <= in.MonthsToStart {
		return nil, errs.Configuration(op, "invalid FRA %dx%d", in.MonthsToStart, in.MonthsToEnd)
	}
	cal := orCalendar(in.Calendar)
	f := &FRA{dc: orDayCounter(in.DayCounter, daycount.Actual360)}
	f.kind, f.quote, f.ref = KindFRA, q, ref
	f.desc = fmt.Sprintf("FRA %dx%d", in.MonthsToStart, in.MonthsToEnd)
	spot := calendar.AddBusinessDays(cal, ref, in.FixingDays)
	f.earliest = calendar.Advance(cal, spot, calendar.Period{N: in.MonthsToStart, Unit: calendar.Months}, in.Convention, in.EndOfMonth)
	f.maturity = calendar.Advance(cal, spot, calendar.Period{N: in.MonthsToEnd, Unit: calendar.Months}, in.Convention, in.EndOfMonth)
	f.latest = f.maturity
	if err := f.finish(op, in.Pillar); err != nil {
		return nil, err
	}
	return f, nil
}

// ImpliedQuote returns the simple forward implied by ts.
func (f *FRA) ImpliedQuote(ts termstructure.YieldTermStructure) (float64, error) {
	return simpleForward(ts, f.earliest, f.maturity, f.dc)
}

// QuoteError implements RateHelper.
func (f *FRA) QuoteError(ts termstructure.YieldTermStructure) (float64, error) {
	return quoteError(f, ts)
}
