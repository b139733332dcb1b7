package termstructure

import (
	"math"
	"time"

	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/interpolation"
	"github.com/meenmo/curvekit/rates"
)

// Quantity is what the node values of an interpolated curve represent.
type Quantity int

const (
	// DiscountFactor nodes hold D(t).
	DiscountFactor Quantity = iota
	// ZeroYield nodes hold the continuously compounded zero rate z(t), D = exp(-z t).
	ZeroYield
	// InstantaneousForward nodes hold f(t), D = exp(-integral of f).
	InstantaneousForward
)

func (q Quantity) String() string {
	return [...]string{"discount", "zero-yield", "forward-rate"}[q]
}

// Interpolated is a curve defined by nodes and an interpolation scheme.
// It is immutable after construction apart from the extrapolation flag.
type Interpolated struct {
	Base
	quantity Quantity
	scheme   interpolation.Interpolator
	nodes    []Node
	interp   interpolation.Interpolation
}

var _ YieldTermStructure = (*Interpolated)(nil)

// NewInterpolated builds a curve from nodes at strictly increasing dates, the
// first of which must be the reference date.
func NewInterpolated(ref time.Time, dc daycount.DayCounter, q Quantity, dates []time.Time, values []float64,
	scheme interpolation.Interpolator) (*Interpolated, error) {
	const op = "termstructure.NewInterpolated"
	if len(dates) != len(values) {
		return nil, errs.Configuration(op, "%d dates but %d values", len(dates), len(values))
	}
	if len(dates) == 0 || !dates[0].Equal(ref) {
		return nil, errs.Configuration(op, "first node must be at reference date %s", ref.Format("2006-01-02"))
	}
	c := &Interpolated{Base: NewBase(ref, dc), quantity: q, scheme: scheme}
	times := make([]float64, len(dates))
	c.nodes = make([]Node, len(dates))
	for i, d := range dates {
		times[i] = c.TimeFromReference(d)
		if i > 0 && !(times[i] > times[i-1]) {
			return nil, errs.Configuration(op, "node dates not increasing at %s", d.Format("2006-01-02"))
		}
		c.nodes[i] = Node{Date: d, Time: times[i], Value: values[i]}
	}
	if q == DiscountFactor && values[0] != 1 {
		return nil, errs.Configuration(op, "discount factor at reference date is %g, not 1", values[0])
	}
	f, err := scheme.Interpolate(times, values)
	if err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, op, "%s interpolation", scheme)
	}
	c.interp = f
	return c, nil
}

// NewInterpolatedDiscount builds a discount curve from DF nodes. A node at the
// reference date with value 1 is added when missing.
func NewInterpolatedDiscount(ref time.Time, dc daycount.DayCounter, dates []time.Time, dfs []float64,
	scheme interpolation.Interpolator) (*Interpolated, error) {
	if len(dates) > 0 && dates[0].After(ref) {
		dates = append([]time.Time{ref}, dates...)
		dfs = append([]float64{1}, dfs...)
	}
	return NewInterpolated(ref, dc, DiscountFactor, dates, dfs, scheme)
}

// Quantity returns what the node values represent.
func (c *Interpolated) Quantity() Quantity { return c.quantity }

// Scheme returns the interpolation scheme.
func (c *Interpolated) Scheme() interpolation.Interpolator { return c.scheme }

// Nodes returns a copy of the nodes.
func (c *Interpolated) Nodes() []Node {
	out := make([]Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// MaxDate is the last node date.
func (c *Interpolated) MaxDate() time.Time { return c.nodes[len(c.nodes)-1].Date }

// MaxTime is the last node time.
func (c *Interpolated) MaxTime() float64 { return c.nodes[len(c.nodes)-1].Time }

// DiscountAt returns the discount factor at time t.
func (c *Interpolated) DiscountAt(t float64) (float64, error) {
	if err := c.CheckRange("Interpolated.DiscountAt", t, c.MaxTime()); err != nil {
		return 0, err
	}
	return c.discount(t), nil
}

func (c *Interpolated) discount(t float64) float64 {
	switch c.quantity {
	case ZeroYield:
		if t == 0 {
			return 1
		}
		return math.Exp(-c.interp.Value(t) * t)
	case InstantaneousForward:
		if t == 0 {
			return 1
		}
		return math.Exp(-c.interp.Primitive(t))
	default:
		return c.interp.Value(t)
	}
}

// Discount returns the discount factor at d.
func (c *Interpolated) Discount(d time.Time) (float64, error) {
	return c.DiscountAt(c.TimeFromReference(d))
}

// ZeroRate returns the zero rate to d.
func (c *Interpolated) ZeroRate(d time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	return zeroRate(c, d, dc, comp, freq)
}

// ForwardRate returns the forward rate between d1 and d2.
func (c *Interpolated) ForwardRate(d1, d2 time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	return forwardRate(c, d1, d2, dc, comp, freq)
}
