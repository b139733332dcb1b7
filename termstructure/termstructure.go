// Package termstructure defines the yield curve query surface.
//
// A YieldTermStructure answers discount, zero and forward queries relative to a
// reference date. Times are year fractions from the reference date under the
// curve's own day counter.
package termstructure

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/rates"
)

// instantaneousDt is the time step used for rates at a single date.
const instantaneousDt = 1e-4

// YieldTermStructure is a read-only discount oracle.
type YieldTermStructure interface {
	ReferenceDate() time.Time
	DayCounter() daycount.DayCounter
	MaxDate() time.Time
	TimeFromReference(d time.Time) float64

	Discount(d time.Time) (float64, error)
	DiscountAt(t float64) (float64, error)
	ZeroRate(d time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error)
	ForwardRate(d1, d2 time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error)

	EnableExtrapolation()
	AllowsExtrapolation() bool
}

// Node is one solved point of a curve.
type Node struct {
	Date  time.Time
	Time  float64
	Value float64
}

// Base carries the reference date, day counter and extrapolation flag shared by
// every curve.
type Base struct {
	ref         time.Time
	dc          daycount.DayCounter
	extrapolate int32
}

// NewBase returns a Base anchored at ref.
func NewBase(ref time.Time, dc daycount.DayCounter) Base {
	return Base{ref: ref, dc: dc}
}

// ReferenceDate returns the date at which discount factors are 1.
func (b *Base) ReferenceDate() time.Time { return b.ref }

// DayCounter returns the day counter used to turn dates into times.
func (b *Base) DayCounter() daycount.DayCounter { return b.dc }

// TimeFromReference converts a date to a curve time.
func (b *Base) TimeFromReference(d time.Time) float64 {
	return b.dc.YearFraction(b.ref, d)
}

// EnableExtrapolation allows queries past MaxDate.
func (b *Base) EnableExtrapolation() { atomic.StoreInt32(&b.extrapolate, 1) }

// DisableExtrapolation restores the default.
func (b *Base) DisableExtrapolation() { atomic.StoreInt32(&b.extrapolate, 0) }

// AllowsExtrapolation reports the extrapolation flag.
func (b *Base) AllowsExtrapolation() bool { return atomic.LoadInt32(&b.extrapolate) == 1 }

// CheckRange rejects negative times and, unless extrapolation is enabled, times
// past maxTime.
func (b *Base) CheckRange(op string, t, maxTime float64) error {
	if t < 0 {
		return errs.Newf(errs.KindExtrapolation, op, "time %g before reference date", t)
	}
	if !b.AllowsExtrapolation() && t > maxTime+1e-12*math.Max(1, maxTime) {
		return errs.Newf(errs.KindExtrapolation, op, "time %g past curve end %g", t, maxTime)
	}
	return nil
}

// discounter is the part of a curve the shared rate queries need.
type discounter interface {
	ReferenceDate() time.Time
	TimeFromReference(d time.Time) float64
	Discount(d time.Time) (float64, error)
	DiscountAt(t float64) (float64, error)
}

func zeroRate(ts discounter, d time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	if d.Equal(ts.ReferenceDate()) {
		df, err := ts.DiscountAt(instantaneousDt)
		if err != nil {
			return rates.InterestRate{}, err
		}
		return rates.ImpliedRate(1/df, dc, comp, freq, instantaneousDt)
	}
	df, err := ts.Discount(d)
	if err != nil {
		return rates.InterestRate{}, err
	}
	return rates.ImpliedRate(1/df, dc, comp, freq, dc.YearFraction(ts.ReferenceDate(), d))
}

func forwardRate(ts discounter, d1, d2 time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	if d2.Before(d1) {
		return rates.InterestRate{}, errs.Configuration("termstructure.ForwardRate", "end %s before start %s",
			d2.Format("2006-01-02"), d1.Format("2006-01-02"))
	}
	if d1.Equal(d2) {
		t1 := ts.TimeFromReference(d1)
		df1, err := ts.DiscountAt(t1)
		if err != nil {
			return rates.InterestRate{}, err
		}
		df2, err := ts.DiscountAt(t1 + instantaneousDt)
		if err != nil {
			return rates.InterestRate{}, err
		}
		return rates.ImpliedRate(df1/df2, dc, comp, freq, instantaneousDt)
	}
	df1, err := ts.Discount(d1)
	if err != nil {
		return rates.InterestRate{}, err
	}
	df2, err := ts.Discount(d2)
	if err != nil {
		return rates.InterestRate{}, err
	}
	return rates.ImpliedRate(df1/df2, dc, comp, freq, dc.YearFraction(d1, d2))
}
