package termstructure

import (
	"math"
	"time"

	"github.com/meenmo/curvekit/calendar"
	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/rates"
)

var farFuture = calendar.Date(2199, 12, 31)

// FlatForward is a curve with a single constant rate.
type FlatForward struct {
	Base
	rate rates.InterestRate
}

var _ YieldTermStructure = (*FlatForward)(nil)

// NewFlatForward returns a flat curve. Times are measured with dc, which is also
// the rate's day counter.
func NewFlatForward(ref time.Time, rate float64, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) *FlatForward {
	return &FlatForward{
		Base: NewBase(ref, dc),
		rate: rates.InterestRate{Rate: rate, DayCounter: dc, Compounding: comp, Frequency: freq},
	}
}

// Rate returns the curve rate.
func (f *FlatForward) Rate() rates.InterestRate { return f.rate }

// MaxDate is effectively unbounded.
func (f *FlatForward) MaxDate() time.Time { return farFuture }

// DiscountAt returns the discount factor at time t.
func (f *FlatForward) DiscountAt(t float64) (float64, error) {
	if err := f.CheckRange("FlatForward.DiscountAt", t, math.Inf(1)); err != nil {
		return 0, err
	}
	return f.rate.DiscountFactor(t), nil
}

// Discount returns the discount factor at d.
func (f *FlatForward) Discount(d time.Time) (float64, error) {
	return f.DiscountAt(f.TimeFromReference(d))
}

// ZeroRate returns the zero rate to d.
func (f *FlatForward) ZeroRate(d time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	return zeroRate(f, d, dc, comp, freq)
}

// ForwardRate returns the forward rate between d1 and d2.
func (f *FlatForward) ForwardRate(d1, d2 time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	return forwardRate(f, d1, d2, dc, comp, freq)
}
