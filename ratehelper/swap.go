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

// SwapInput describes a vanilla fixed-vs-IBOR swap quoted at its fair fixed rate.
type SwapInput struct {
	Tenor          calendar.Period
	SettlementDays int
	// ForwardStart delays the start beyond spot.
	ForwardStart calendar.Period
	Calendar     calendar.CalendarID
	EndOfMonth   bool

	// FixedFrequency defaults to 1Y and FixedDayCounter to 30/360.
	FixedFrequency  calendar.Period
	FixedConvention calendar.Convention
	FixedDayCounter daycount.DayCounter

	// FloatFrequency defaults to 6M and FloatDayCounter to ACT/360.
	FloatFrequency  calendar.Period
	FloatConvention calendar.Convention
	FloatDayCounter daycount.DayCounter

	// Spread is added to the floating leg.
	Spread float64

	// DiscountCurve discounts both legs when set. Otherwise the curve being
	// built discounts as well as projects.
	DiscountCurve termstructure.YieldTermStructure

	Pillar Pillar
}

type leg struct {
	periods  []schedule.Period
	accruals []float64
}

func newLeg(s schedule.Schedule, dc daycount.DayCounter) leg {
	periods := s.Periods()
	l := leg{periods: periods, accruals: make([]float64, len(periods))}
	for i, p := range periods {
		l.accruals[i] = dc.YearFraction(p.Start, p.End)
	}
	return l
}

func (l leg) end() time.Time { return l.periods[len(l.periods)-1].End }

// Swap calibrates the fair fixed rate of a vanilla swap.
type Swap struct {
	base
	fixed    leg
	float    leg
	spread   float64
	discount termstructure.YieldTermStructure
}

// NewSwap builds a swap helper. Both legs run from spot plus ForwardStart to
// the unadjusted end date and are generated backward.
func NewSwap(q *quote.Handle, ref time.Time, in SwapInput) (*Swap, error) {
	const op = "ratehelper.NewSwap"
	if err := checkQuote(op, q); err != nil {
		return nil, err
	}
	if in.Tenor.N <= 0 {
		return nil, errs.Configuration(op, "non-positive tenor %s", in.Tenor)
	}
	cal := orCalendar(in.Calendar)
	start := calendar.AddBusinessDays(cal, ref, in.SettlementDays)
	if in.ForwardStart.N > 0 {
		start = calendar.Advance(cal, start, in.ForwardStart, calendar.ModifiedFollowing, in.EndOfMonth)
	}
	end := calendar.Advance(cal, start, in.Tenor, calendar.Unadjusted, in.EndOfMonth)

	fixedSched, err := schedule.Generate(start, end, orPeriod(in.FixedFrequency, calendar.Period{N: 1, Unit: calendar.Years}),
		cal, in.FixedConvention, in.FixedConvention, schedule.Backward, in.EndOfMonth)
	if err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, op, "fixed leg")
	}
	floatSched, err := schedule.Generate(start, end, orPeriod(in.FloatFrequency, calendar.Period{N: 6, Unit: calendar.Months}),
		cal, in.FloatConvention, in.FloatConvention, schedule.Backward, in.EndOfMonth)
	if err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, op, "float leg")
	}

	s := &Swap{
		fixed:    newLeg(fixedSched, orDayCounter(in.FixedDayCounter, daycount.Thirty360)),
		float:    newLeg(floatSched, orDayCounter(in.FloatDayCounter, daycount.Actual360)),
		spread:   in.Spread,
		discount: in.DiscountCurve,
	}
	s.kind, s.quote, s.ref = KindSwap, q, ref
	s.desc = fmt.Sprintf("Swap %s", in.Tenor)
	if in.ForwardStart.N > 0 {
		s.desc = fmt.Sprintf("Swap %sx%s", in.ForwardStart, in.Tenor)
	}
	s.earliest = start
	s.maturity = fixedSched.EndDate()
	s.latest = s.fixed.end()
	if fe := s.float.end(); fe.After(s.latest) {
		s.latest = fe
	}
	if err := s.finish(op, in.Pillar); err != nil {
		return nil, err
	}
	return s, nil
}

// Generation includes the exogenous discount curve when it carries a stamp.
func (s *Swap) Generation() uint64 {
	g := s.quote.Generation()
	if s.discount != nil {
		g += termstructure.GenerationOf(s.discount)
	}
	return g
}

func (s *Swap) discounting(ts termstructure.YieldTermStructure) termstructure.YieldTermStructure {
	if s.discount != nil {
		return s.discount
	}
	return ts
}

// annuity is the sum of accrual times discount factor over a leg.
func annuity(l leg, disc termstructure.YieldTermStructure) (float64, error) {
	var sum float64
	for i, p := range l.periods {
		df, err := disc.Discount(p.End)
		if err != nil {
			return 0, err
		}
		sum += l.accruals[i] * df
	}
	return sum, nil
}

// ImpliedQuote returns the fair fixed rate on ts.
func (s *Swap) ImpliedQuote(ts termstructure.YieldTermStructure) (float64, error) {
	disc := s.discounting(ts)
	fixedAnnuity, err := annuity(s.fixed, disc)
	if err != nil {
		return 0, err
	}
	floatAnnuity, err := annuity(s.float, disc)
	if err != nil {
		return 0, err
	}
	var floatPV float64
	for _, p := range s.float.periods {
		ps, err := ts.Discount(p.Start)
		if err != nil {
			return 0, err
		}
		pe, err := ts.Discount(p.End)
		if err != nil {
			return 0, err
		}
		df, err := disc.Discount(p.End)
		if err != nil {
			return 0, err
		}
		floatPV += (ps/pe - 1) * df
	}
	return (floatPV + s.spread*floatAnnuity) / fixedAnnuity, nil
}

// QuoteError implements RateHelper.
func (s *Swap) QuoteError(ts termstructure.YieldTermStructure) (float64, error) {
	return quoteError(s, ts)
}

// FixedPeriods returns the fixed-leg accrual periods.
func (s *Swap) FixedPeriods() []schedule.Period {
	out := make([]schedule.Period, len(s.fixed.periods))
	copy(out, s.fixed.periods)
	return out
}
