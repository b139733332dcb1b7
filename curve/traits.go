package curve

import (
	"fmt"
	"math"
	"strings"

	"github.com/meenmo/curvekit/termstructure"
)

// Traits selects the quantity solved at each node.
type Traits int

const (
	// Discount solves discount factors.
	Discount Traits = iota
	// ZeroYield solves continuously compounded zero rates.
	ZeroYield
	// ForwardRate solves instantaneous forward rates.
	ForwardRate
)

const (
	// avgRate seeds the first node of every traits.
	avgRate = 0.05
	// DefaultMaxRate bounds the first bracket: rates for ZeroYield and ForwardRate,
	// continuously compounded rates between nodes for Discount.
	DefaultMaxRate = 1.0
	// minDiscount is the default floor of the unbracketed search on discount factors.
	minDiscount = 1e-9
	// minPositiveRate is the floor for rate nodes under log-linear interpolation.
	minPositiveRate = 1e-8
)

func (t Traits) String() string {
	switch t {
	case Discount:
		return "discount"
	case ZeroYield:
		return "zero-yield"
	case ForwardRate:
		return "forward-rate"
	default:
		return fmt.Sprintf("traits(%d)", int(t))
	}
}

// ParseTraits maps a name to Traits. The empty name is Discount.
func ParseTraits(name string) (Traits, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "discount":
		return Discount, nil
	case "zero-yield", "zero", "zeroyield":
		return ZeroYield, nil
	case "forward-rate", "forward", "forwardrate":
		return ForwardRate, nil
	default:
		return 0, fmt.Errorf("curve.ParseTraits: unknown traits %q", name)
	}
}

func (t Traits) quantity() termstructure.Quantity {
	switch t {
	case ZeroYield:
		return termstructure.ZeroYield
	case ForwardRate:
		return termstructure.InstantaneousForward
	default:
		return termstructure.DiscountFactor
	}
}

// initialValue is the value of node 0 before node 1 is solved.
func (t Traits) initialValue() float64 {
	if t == Discount {
		return 1
	}
	return avgRate
}

// tiesFirstNode reports whether node 0 follows node 1. Rate curves have no
// natural value at the reference date.
func (t Traits) tiesFirstNode() bool { return t != Discount }

// guess is the first-pass starting point for node i.
func (t Traits) guess(i int, times, vals []float64) float64 {
	if t != Discount {
		if i == 1 {
			return avgRate
		}
		return vals[i-1]
	}
	if i == 1 {
		return math.Exp(-avgRate * times[1])
	}
	// flat zero rate from the previous node
	r := -math.Log(vals[i-1]) / times[i-1]
	return vals[i-1] * math.Exp(-r*(times[i]-times[i-1]))
}

// bounds is the bracket for node i with the given rate cap.
func (t Traits) bounds(i int, times, vals []float64, maxRate float64) (float64, float64) {
	if t != Discount {
		return -maxRate, maxRate
	}
	dt := times[i] - times[i-1]
	return vals[i-1] * math.Exp(-maxRate*dt), vals[i-1] * math.Exp(maxRate*dt)
}

// step is the initial step of the unbracketed fallback search.
func (t Traits) step(guess float64) float64 {
	if t == Discount {
		return 0.01 * guess
	}
	return 0.01
}
