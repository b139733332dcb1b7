package termstructure

import (
	"math"
	"time"

	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/quote"
	"github.com/meenmo/curvekit/rates"
)

// GenerationOf returns the input stamp of ts, or 0 for curves without inputs.
func GenerationOf(ts YieldTermStructure) uint64 {
	if g, ok := ts.(interface{ Generation() uint64 }); ok {
		return g.Generation()
	}
	return 0
}

// Implied is a curve moved to a later reference date: D(d) = D0(d) / D0(ref).
type Implied struct {
	Base
	original YieldTermStructure
	shift    float64
}

var _ YieldTermStructure = (*Implied)(nil)

// NewImplied re-anchors original at ref, which must not precede the original
// reference date.
func NewImplied(original YieldTermStructure, ref time.Time) (*Implied, error) {
	if original == nil {
		return nil, errs.Configuration("termstructure.NewImplied", "nil curve")
	}
	if ref.Before(original.ReferenceDate()) {
		return nil, errs.Configuration("termstructure.NewImplied", "reference date %s before %s",
			ref.Format("2006-01-02"), original.ReferenceDate().Format("2006-01-02"))
	}
	dc := original.DayCounter()
	c := &Implied{Base: NewBase(ref, dc), original: original, shift: original.TimeFromReference(ref)}
	if original.AllowsExtrapolation() {
		c.EnableExtrapolation()
	}
	return c, nil
}

// Generation follows the original curve.
func (c *Implied) Generation() uint64 { return GenerationOf(c.original) }

// MaxDate is the original curve's.
func (c *Implied) MaxDate() time.Time { return c.original.MaxDate() }

// DiscountAt returns the discount factor at time t from the new reference date.
func (c *Implied) DiscountAt(t float64) (float64, error) {
	if err := c.CheckRange("Implied.DiscountAt", t, c.TimeFromReference(c.MaxDate())); err != nil {
		return 0, err
	}
	base, err := c.original.DiscountAt(c.shift)
	if err != nil {
		return 0, err
	}
	df, err := c.original.DiscountAt(c.shift + t)
	if err != nil {
		return 0, err
	}
	return df / base, nil
}

// Discount returns the discount factor at d.
func (c *Implied) Discount(d time.Time) (float64, error) {
	return c.DiscountAt(c.TimeFromReference(d))
}

// ZeroRate returns the zero rate from the new reference date to d.
func (c *Implied) ZeroRate(d time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	return zeroRate(c, d, dc, comp, freq)
}

// ForwardRate returns the forward rate between d1 and d2.
func (c *Implied) ForwardRate(d1, d2 time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	return forwardRate(c, d1, d2, dc, comp, freq)
}

// spreaded is the part shared by the spreaded curves.
type spreaded struct {
	Base
	original YieldTermStructure
	spread   *quote.Handle
}

func newSpreaded(op string, original YieldTermStructure, spread *quote.Handle) (spreaded, error) {
	if original == nil || spread == nil {
		return spreaded{}, errs.Configuration(op, "nil curve or spread")
	}
	s := spreaded{Base: NewBase(original.ReferenceDate(), original.DayCounter()), original: original, spread: spread}
	if original.AllowsExtrapolation() {
		s.EnableExtrapolation()
	}
	return s, nil
}

// Generation changes with the original curve or the spread quote.
func (s *spreaded) Generation() uint64 {
	return GenerationOf(s.original) + s.spread.Generation()
}

// MaxDate is the original curve's.
func (s *spreaded) MaxDate() time.Time { return s.original.MaxDate() }

func (s *spreaded) inputs(op string, t float64) (float64, float64, error) {
	if err := s.CheckRange(op, t, s.TimeFromReference(s.MaxDate())); err != nil {
		return 0, 0, err
	}
	spread, err := s.spread.Value()
	if err != nil {
		return 0, 0, err
	}
	df, err := s.original.DiscountAt(t)
	if err != nil {
		return 0, 0, err
	}
	return df, spread, nil
}

// ZeroSpreaded adds a spread quote to the zero rates of a curve. The spread
// is read at query time.
type ZeroSpreaded struct {
	spreaded
	comp rates.Compounding
	freq rates.Frequency
}

var _ YieldTermStructure = (*ZeroSpreaded)(nil)

// NewZeroSpreaded adds spread to original's zero rates quoted with comp and freq.
func NewZeroSpreaded(original YieldTermStructure, spread *quote.Handle, comp rates.Compounding, freq rates.Frequency) (*ZeroSpreaded, error) {
	s, err := newSpreaded("termstructure.NewZeroSpreaded", original, spread)
	if err != nil {
		return nil, err
	}
	return &ZeroSpreaded{spreaded: s, comp: comp, freq: freq}, nil
}

// DiscountAt returns the discount factor at time t.
func (c *ZeroSpreaded) DiscountAt(t float64) (float64, error) {
	const op = "ZeroSpreaded.DiscountAt"
	if t == 0 {
		return 1, nil
	}
	df, spread, err := c.inputs(op, t)
	if err != nil {
		return 0, err
	}
	if c.comp == rates.Continuous {
		return df * math.Exp(-spread*t), nil
	}
	z, err := rates.ImpliedRate(1/df, c.DayCounter(), c.comp, c.freq, t)
	if err != nil {
		return 0, errs.Wrapf(errs.KindConfiguration, err, op, "zero rate at %g", t)
	}
	z.Rate += spread
	return z.DiscountFactor(t), nil
}

// Discount returns the discount factor at d.
func (c *ZeroSpreaded) Discount(d time.Time) (float64, error) {
	return c.DiscountAt(c.TimeFromReference(d))
}

// ZeroRate returns the zero rate to d.
func (c *ZeroSpreaded) ZeroRate(d time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	return zeroRate(c, d, dc, comp, freq)
}

// ForwardRate returns the forward rate between d1 and d2.
func (c *ZeroSpreaded) ForwardRate(d1, d2 time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	return forwardRate(c, d1, d2, dc, comp, freq)
}

// ForwardSpreaded adds a spread quote to the instantaneous forwards of a
// curve, so D(t) = D0(t) exp(-spread t).
type ForwardSpreaded struct {
	spreaded
}

var _ YieldTermStructure = (*ForwardSpreaded)(nil)

// NewForwardSpreaded adds spread to original's instantaneous forwards.
func NewForwardSpreaded(original YieldTermStructure, spread *quote.Handle) (*ForwardSpreaded, error) {
	s, err := newSpreaded("termstructure.NewForwardSpreaded", original, spread)
	if err != nil {
		return nil, err
	}
	return &ForwardSpreaded{spreaded: s}, nil
}

// DiscountAt returns the discount factor at time t.
func (c *ForwardSpreaded) DiscountAt(t float64) (float64, error) {
	df, spread, err := c.inputs("ForwardSpreaded.DiscountAt", t)
	if err != nil {
		return 0, err
	}
	return df * math.Exp(-spread*t), nil
}

// Discount returns the discount factor at d.
func (c *ForwardSpreaded) Discount(d time.Time) (float64, error) {
	return c.DiscountAt(c.TimeFromReference(d))
}

// ZeroRate returns the zero rate to d.
func (c *ForwardSpreaded) ZeroRate(d time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	return zeroRate(c, d, dc, comp, freq)
}

// ForwardRate returns the forward rate between d1 and d2.
func (c *ForwardSpreaded) ForwardRate(d1, d2 time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	return forwardRate(c, d1, d2, dc, comp, freq)
}
