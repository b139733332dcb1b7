package ratehelper

import (
	"fmt"
	"time"

	"github.com/meenmo/curvekit/calendar"
	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/quote"
	"github.com/meenmo/curvekit/schedule"
	"github.com/meenmo/curvekit/termstructure"
)

// OISInput describes a fixed vs compounded overnight swap. Both legs share one
// schedule.
type OISInput struct {
	Tenor          calendar.Period
	SettlementDays int
	ForwardStart   calendar.Period
	Calendar       calendar.CalendarID
	Convention     calendar.Convention
	EndOfMonth     bool
	// PaymentFrequency defaults to 1Y and DayCounter to ACT/360.
	PaymentFrequency calendar.Period
	DayCounter       daycount.DayCounter
	// PaymentLag is the number of business days between period end and payment.
	PaymentLag int
	// Spread is added to the compounded overnight rate.
	Spread        float64
	DiscountCurve termstructure.YieldTermStructure
	Pillar        Pillar
}

// OIS calibrates the fair fixed rate of an overnight indexed swap.
type OIS struct {
	base
	leg      leg
	payDates []time.Time
	spread   float64
	discount termstructure.YieldTermStructure
}

// NewOIS builds an OIS helper. Compounding daily fixings between two dates on a
// single curve telescopes to P(start)/P(end), so no daily schedule is needed.
func NewOIS(q *quote.Handle, ref time.Time, in OISInput) (*OIS, error) {
	const op = "ratehelper.NewOIS"
	if err := checkQuote(op, q); err != nil {
		return nil, err
	}
	if in.Tenor.N <= 0 {
		return nil, errs.Configuration(op, "non-positive tenor %s", in.Tenor)
	}
	if in.PaymentLag < 0 {
		return nil, errs.Configuration(op, "negative payment lag %d", in.PaymentLag)
	}
	cal := orCalendar(in.Calendar)
	start := calendar.AddBusinessDays(cal, ref, in.SettlementDays)
	if in.ForwardStart.N > 0 {
		start = calendar.Advance(cal, start, in.ForwardStart, in.Convention, in.EndOfMonth)
	}
	end := calendar.Advance(cal, start, in.Tenor, calendar.Unadjusted, in.EndOfMonth)
	freq := orPeriod(in.PaymentFrequency, calendar.Period{N: 1, Unit: calendar.Years})
	// Short OIS pay once at maturity.
	if in.Tenor.Months() == 0 || in.Tenor.Months() < freq.Months() {
		freq = in.Tenor
	}
	sched, err := schedule.Generate(start, end, freq, cal, in.Convention, in.Convention, schedule.Backward, in.EndOfMonth)
	if err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, op, "schedule")
	}

	o := &OIS{
		leg:      newLeg(sched, orDayCounter(in.DayCounter, daycount.Actual360)),
		spread:   in.Spread,
		discount: in.DiscountCurve,
	}
	o.payDates = make([]time.Time, len(o.leg.periods))
	for i, p := range o.leg.periods {
		o.payDates[i] = calendar.AddBusinessDays(cal, p.End, in.PaymentLag)
	}
	o.kind, o.quote, o.ref = KindOIS, q, ref
	o.desc = fmt.Sprintf("OIS %s", in.Tenor)
	o.earliest = start
	o.maturity = sched.EndDate()
	o.latest = o.maturity
	if o.discount == nil {
		o.latest = o.payDates[len(o.payDates)-1]
	}
	if err := o.finish(op, in.Pillar); err != nil {
		return nil, err
	}
	return o, nil
}

// Generation includes the exogenous discount curve when it carries a stamp.
func (o *OIS) Generation() uint64 {
	g := o.quote.Generation()
	if o.discount != nil {
		g += termstructure.GenerationOf(o.discount)
	}
	return g
}

// PaymentDates returns the lagged payment dates.
func (o *OIS) PaymentDates() []time.Time {
	out := make([]time.Time, len(o.payDates))
	copy(out, o.payDates)
	return out
}

// ImpliedQuote returns the fair fixed rate on ts.
func (o *OIS) ImpliedQuote(ts termstructure.YieldTermStructure) (float64, error) {
	disc := ts
	if o.discount != nil {
		disc = o.discount
	}
	var floatPV, fixedAnnuity float64
	for i, p := range o.leg.periods {
		ps, err := ts.Discount(p.Start)
		if err != nil {
			return 0, err
		}
		pe, err := ts.Discount(p.End)
		if err != nil {
			return 0, err
		}
		df, err := disc.Discount(o.payDates[i])
		if err != nil {
			return 0, err
		}
		tau := o.leg.accruals[i]
		floatPV += (ps/pe - 1 + o.spread*tau) * df
		fixedAnnuity += tau * df
	}
	return floatPV / fixedAnnuity, nil
}

// QuoteError implements RateHelper.
func (o *OIS) QuoteError(ts termstructure.YieldTermStructure) (float64, error) {
	return quoteError(o, ts)
}
