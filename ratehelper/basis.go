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

// BasisSwapInput describes a float-vs-float tenor basis swap. The base leg
// projects on BaseCurve and pays the quoted spread; the other leg projects on
// the curve being built.
type BasisSwapInput struct {
	Tenor          calendar.Period
	SettlementDays int
	Calendar       calendar.CalendarID
	Convention     calendar.Convention
	EndOfMonth     bool

	// BaseFrequency defaults to 3M and BaseDayCounter to ACT/360.
	BaseFrequency  calendar.Period
	BaseDayCounter daycount.DayCounter
	BaseCurve      termstructure.YieldTermStructure

	// OtherFrequency defaults to 6M and OtherDayCounter to ACT/360.
	OtherFrequency  calendar.Period
	OtherDayCounter daycount.DayCounter

	// DiscountCurve discounts both legs when set.
	DiscountCurve termstructure.YieldTermStructure

	Pillar Pillar
}

// BasisSwap calibrates the spread over the base leg that makes both legs
// worth the same.
type BasisSwap struct {
	base
	baseLeg   leg
	otherLeg  leg
	baseCurve termstructure.YieldTermStructure
	discount  termstructure.YieldTermStructure
}

// NewBasisSwap builds a basis swap helper. Both legs run from spot to the
// unadjusted end date and are generated backward.
func NewBasisSwap(q *quote.Handle, ref time.Time, in BasisSwapInput) (*BasisSwap, error) {
	const op = "ratehelper.NewBasisSwap"
	if err := checkQuote(op, q); err != nil {
		return nil, err
	}
	if in.Tenor.N <= 0 {
		return nil, errs.Configuration(op, "non-positive tenor %s", in.Tenor)
	}
	if in.BaseCurve == nil {
		return nil, errs.Configuration(op, "no base curve")
	}
	cal := orCalendar(in.Calendar)
	start := calendar.AddBusinessDays(cal, ref, in.SettlementDays)
	end := calendar.Advance(cal, start, in.Tenor, calendar.Unadjusted, in.EndOfMonth)

	baseFreq := orPeriod(in.BaseFrequency, calendar.Period{N: 3, Unit: calendar.Months})
	otherFreq := orPeriod(in.OtherFrequency, calendar.Period{N: 6, Unit: calendar.Months})
	baseSched, err := schedule.Generate(start, end, baseFreq, cal, in.Convention, in.Convention, schedule.Backward, in.EndOfMonth)
	if err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, op, "base leg")
	}
	otherSched, err := schedule.Generate(start, end, otherFreq, cal, in.Convention, in.Convention, schedule.Backward, in.EndOfMonth)
	if err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, op, "other leg")
	}

	b := &BasisSwap{
		baseLeg:   newLeg(baseSched, orDayCounter(in.BaseDayCounter, daycount.Actual360)),
		otherLeg:  newLeg(otherSched, orDayCounter(in.OtherDayCounter, daycount.Actual360)),
		baseCurve: in.BaseCurve,
		discount:  in.DiscountCurve,
	}
	b.kind, b.quote, b.ref = KindBasisSwap, q, ref
	b.desc = fmt.Sprintf("Basis %s %s/%s", in.Tenor, baseFreq, otherFreq)
	b.earliest = start
	b.maturity = otherSched.EndDate()
	b.latest = b.otherLeg.end()
	if be := b.baseLeg.end(); be.After(b.latest) {
		b.latest = be
	}
	if err := b.finish(op, in.Pillar); err != nil {
		return nil, err
	}
	return b, nil
}

// Generation includes the base and discount curves when they carry a stamp.
func (b *BasisSwap) Generation() uint64 {
	g := b.quote.Generation() + termstructure.GenerationOf(b.baseCurve)
	if b.discount != nil {
		g += termstructure.GenerationOf(b.discount)
	}
	return g
}

// floatPV is the discounted sum of a leg's simple forwards projected on proj.
func floatPV(l leg, proj, disc termstructure.YieldTermStructure) (float64, error) {
	var pv float64
	for _, p := range l.periods {
		ps, err := proj.Discount(p.Start)
		if err != nil {
			return 0, err
		}
		pe, err := proj.Discount(p.End)
		if err != nil {
			return 0, err
		}
		df, err := disc.Discount(p.End)
		if err != nil {
			return 0, err
		}
		pv += (ps/pe - 1) * df
	}
	return pv, nil
}

// ImpliedQuote returns the fair base-leg spread on ts.
func (b *BasisSwap) ImpliedQuote(ts termstructure.YieldTermStructure) (float64, error) {
	disc := ts
	if b.discount != nil {
		disc = b.discount
	}
	basePV, err := floatPV(b.baseLeg, b.baseCurve, disc)
	if err != nil {
		return 0, err
	}
	otherPV, err := floatPV(b.otherLeg, ts, disc)
	if err != nil {
		return 0, err
	}
	baseAnnuity, err := annuity(b.baseLeg, disc)
	if err != nil {
		return 0, err
	}
	return (otherPV - basePV) / baseAnnuity, nil
}

// QuoteError implements RateHelper.
func (b *BasisSwap) QuoteError(ts termstructure.YieldTermStructure) (float64, error) {
	return quoteError(b, ts)
}
