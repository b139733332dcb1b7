package marketdata

import (
	"fmt"
	"time"

	"github.com/meenmo/curvekit/calendar"
	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/quote"
	"github.com/meenmo/curvekit/ratehelper"
	"github.com/meenmo/curvekit/termstructure"
)

// Curves maps curve names to built curves a helper may depend on.
type Curves map[string]termstructure.YieldTermStructure

// Helpers builds the rate helpers of one curve. quotes must hold a quote for
// every instrument ID; curves must hold every curve def depends on.
func Helpers(ref time.Time, def CurveDef, quotes map[string]*quote.Simple, curves Curves) ([]ratehelper.RateHelper, error) {
	for _, dep := range def.Dependencies() {
		if curves[dep] == nil {
			return nil, errs.Configuration("marketdata.Helpers", "curve %q needs curve %q", def.Name, dep)
		}
	}
	var discount termstructure.YieldTermStructure
	if def.DiscountCurve != "" {
		discount = curves[def.DiscountCurve]
	}
	out := make([]ratehelper.RateHelper, 0, len(def.Instruments))
	for _, in := range def.Instruments {
		q, ok := quotes[in.ID]
		if !ok {
			return nil, errs.Configuration("marketdata.Helpers", "no quote for instrument %q", in.ID)
		}
		h, err := NewHelper(ref, in, quote.NewHandle(q), discount, curves)
		if err != nil {
			return nil, fmt.Errorf("marketdata.Helpers: curve %s: %w", def.Name, err)
		}
		out = append(out, h)
	}
	return out, nil
}

// NewHelper builds the helper for one instrument. discount may be nil; curves
// is only read by basis swaps, for their base curve.
func NewHelper(ref time.Time, in Instrument, q *quote.Handle, discount termstructure.YieldTermStructure, curves Curves) (ratehelper.RateHelper, error) {
	kind, err := ratehelper.ParseKind(in.Kind)
	if err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, "marketdata.NewHelper", "instrument %s", in.ID)
	}
	f := fields{in: in}
	cal := f.calendar(in.Calendar)
	conv := f.convention(in.Convention)
	dc := f.optionalDayCounter(in.DayCounter)
	pillar := f.pillar()
	if f.err != nil {
		return nil, f.err
	}

	var h ratehelper.RateHelper
	switch kind {
	case ratehelper.KindDeposit:
		tenor := f.period(in.Tenor, "tenor")
		if f.err != nil {
			return nil, f.err
		}
		h, err = ratehelper.NewDeposit(q, ref, ratehelper.DepositInput{
			Tenor: tenor, FixingDays: in.FixingDays, Calendar: cal, Convention: conv,
			EndOfMonth: in.EndOfMonth, DayCounter: dc, Pillar: pillar,
		})
	case ratehelper.KindFRA:
		h, err = ratehelper.NewFRA(q, ref, ratehelper.FRAInput{
			MonthsToStart: in.MonthsToStart, MonthsToEnd: in.MonthsToEnd, FixingDays: in.FixingDays,
			Calendar: cal, Convention: conv, EndOfMonth: in.EndOfMonth, DayCounter: dc, Pillar: pillar,
		})
	case ratehelper.KindFutures:
		start := f.date(in.StartDate, "start_date")
		convexity := f.rate(in.Convexity, "convexity")
		if f.err != nil {
			return nil, f.err
		}
		fi := ratehelper.FuturesInput{
			StartDate: start, LengthMonths: in.LengthMonths, Calendar: cal, Convention: conv,
			EndOfMonth: in.EndOfMonth, DayCounter: dc, Pillar: pillar,
		}
		if in.Convexity != "" {
			fi.Convexity = quote.NewHandle(quote.New(convexity))
		}
		h, err = ratehelper.NewFutures(q, ref, fi)
	case ratehelper.KindSwap:
		si := ratehelper.SwapInput{
			Tenor:           f.period(in.Tenor, "tenor"),
			SettlementDays:  in.SettlementDays,
			ForwardStart:    f.optionalPeriod(in.ForwardStart, "forward_start"),
			Calendar:        cal,
			EndOfMonth:      in.EndOfMonth,
			FixedFrequency:  f.optionalPeriod(in.FixedFrequency, "fixed_frequency"),
			FixedConvention: f.convention(in.FixedConvention),
			FixedDayCounter: f.optionalDayCounter(in.FixedDayCounter),
			FloatFrequency:  f.optionalPeriod(in.FloatFrequency, "float_frequency"),
			FloatConvention: f.convention(in.FloatConvention),
			FloatDayCounter: f.optionalDayCounter(in.FloatDayCounter),
			Spread:          f.rate(in.Spread, "spread"),
			DiscountCurve:   discount,
			Pillar:          pillar,
		}
		if f.err != nil {
			return nil, f.err
		}
		h, err = ratehelper.NewSwap(q, ref, si)
	case ratehelper.KindOIS:
		oi := ratehelper.OISInput{
			Tenor:            f.period(in.Tenor, "tenor"),
			SettlementDays:   in.SettlementDays,
			ForwardStart:     f.optionalPeriod(in.ForwardStart, "forward_start"),
			Calendar:         cal,
			Convention:       conv,
			EndOfMonth:       in.EndOfMonth,
			PaymentFrequency: f.optionalPeriod(in.PaymentFrequency, "payment_frequency"),
			DayCounter:       dc,
			PaymentLag:       in.PaymentLag,
			Spread:           f.rate(in.Spread, "spread"),
			DiscountCurve:    discount,
			Pillar:           pillar,
		}
		if f.err != nil {
			return nil, f.err
		}
		h, err = ratehelper.NewOIS(q, ref, oi)
	case ratehelper.KindBond:
		bi := ratehelper.BondInput{
			IssueDate:      f.date(in.IssueDate, "issue_date"),
			MaturityDate:   f.date(in.MaturityDate, "maturity_date"),
			Coupon:         f.rate(in.Coupon, "coupon"),
			Frequency:      f.optionalPeriod(in.Frequency, "frequency"),
			DayCounter:     dc,
			Calendar:       cal,
			Convention:     conv,
			SettlementDays: in.SettlementDays,
			FaceAmount:     in.FaceAmount,
			Redemption:     in.Redemption,
			Pillar:         pillar,
		}
		if f.err != nil {
			return nil, f.err
		}
		h, err = ratehelper.NewBond(q, ref, bi)
	case ratehelper.KindBasisSwap:
		baseCurve := curves[in.BaseCurve]
		if baseCurve == nil {
			return nil, errs.Configuration("marketdata.NewHelper", "instrument %s: no base curve %q", in.ID, in.BaseCurve)
		}
		bi := ratehelper.BasisSwapInput{
			Tenor:           f.period(in.Tenor, "tenor"),
			SettlementDays:  in.SettlementDays,
			Calendar:        cal,
			Convention:      conv,
			EndOfMonth:      in.EndOfMonth,
			BaseFrequency:   f.optionalPeriod(in.BaseFrequency, "base_frequency"),
			BaseDayCounter:  f.optionalDayCounter(in.BaseDayCounter),
			BaseCurve:       baseCurve,
			OtherFrequency:  f.optionalPeriod(in.FloatFrequency, "float_frequency"),
			OtherDayCounter: f.optionalDayCounter(in.FloatDayCounter),
			DiscountCurve:   discount,
			Pillar:          pillar,
		}
		if f.err != nil {
			return nil, f.err
		}
		h, err = ratehelper.NewBasisSwap(q, ref, bi)
	default:
		return nil, errs.Configuration("marketdata.NewHelper", "instrument %s: unsupported kind %s", in.ID, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("instrument %s: %w", in.ID, err)
	}
	return h, nil
}

// fields parses instrument fields, keeping the first error.
type fields struct {
	in  Instrument
	err error
}

func (f *fields) fail(field string, err error) {
	if f.err == nil {
		f.err = errs.Wrapf(errs.KindConfiguration, err, "marketdata.NewHelper", "instrument %s: %s", f.in.ID, field)
	}
}

func (f *fields) period(s, field string) calendar.Period {
	p, err := calendar.ParsePeriod(s)
	if err != nil {
		f.fail(field, err)
	}
	return p
}

func (f *fields) optionalPeriod(s, field string) calendar.Period {
	if s == "" {
		return calendar.Period{}
	}
	return f.period(s, field)
}

func (f *fields) date(s, field string) time.Time {
	d, err := calendar.ParseDate(s)
	if err != nil {
		f.fail(field, err)
	}
	return d
}

func (f *fields) rate(s, field string) float64 {
	r, err := ParseRate(s)
	if err != nil {
		f.fail(field, err)
	}
	return r
}

// calendar leaves the helper default in place for an empty name.
func (f *fields) calendar(s string) calendar.CalendarID {
	if s == "" {
		return ""
	}
	c, err := calendar.ParseCalendar(s)
	if err != nil {
		f.fail("calendar", err)
	}
	return c
}

func (f *fields) convention(s string) calendar.Convention {
	c, err := calendar.ParseConvention(s)
	if err != nil {
		f.fail("convention", err)
	}
	return c
}

func (f *fields) optionalDayCounter(s string) daycount.DayCounter {
	if s == "" {
		return ""
	}
	dc, err := daycount.Parse(s)
	if err != nil {
		f.fail("day_counter", err)
	}
	return dc
}

func (f *fields) pillar() ratehelper.Pillar {
	choice, err := ratehelper.ParsePillarChoice(f.in.Pillar)
	if err != nil {
		f.fail("pillar", err)
		return ratehelper.Pillar{}
	}
	p := ratehelper.Pillar{Choice: choice}
	if choice == ratehelper.PillarCustom {
		p.Date = f.date(f.in.PillarDate, "pillar_date")
	}
	return p
}
