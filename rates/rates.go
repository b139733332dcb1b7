// Package rates converts between interest rates and compound factors.
package rates

import (
	"fmt"
	"math"
	"strings"

	"github.com/meenmo/curvekit/daycount"
)

// Compounding is the interest compounding rule.
type Compounding int

const (
	Simple Compounding = iota
	Compounded
	Continuous
	SimpleThenCompounded
)

func (c Compounding) String() string {
	return [...]string{"simple", "compounded", "continuous", "simple-then-compounded"}[c]
}

// ParseCompounding maps a name to a Compounding.
func ParseCompounding(name string) (Compounding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "simple":
		return Simple, nil
	case "compounded":
		return Compounded, nil
	case "", "continuous":
		return Continuous, nil
	case "simple-then-compounded", "simplethencompounded":
		return SimpleThenCompounded, nil
	default:
		return 0, fmt.Errorf("ParseCompounding: unknown compounding %q", name)
	}
}

// Frequency is the number of compounding or payment periods per year.
type Frequency int

const (
	Once       Frequency = 0
	Annual     Frequency = 1
	Semiannual Frequency = 2
	Quarterly  Frequency = 4
	Monthly    Frequency = 12
	Weekly     Frequency = 52
	Daily      Frequency = 365
)

// ParseFrequency maps a name to a Frequency.
func ParseFrequency(name string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "once":
		return Once, nil
	case "", "annual":
		return Annual, nil
	case "semiannual":
		return Semiannual, nil
	case "quarterly":
		return Quarterly, nil
	case "monthly":
		return Monthly, nil
	case "weekly":
		return Weekly, nil
	case "daily":
		return Daily, nil
	default:
		return 0, fmt.Errorf("ParseFrequency: unknown frequency %q", name)
	}
}

// InterestRate is a rate together with the conventions needed to turn it into a
// compound factor.
type InterestRate struct {
	Rate        float64
	DayCounter  daycount.DayCounter
	Compounding Compounding
	Frequency   Frequency
}

// CompoundFactor returns the growth of one unit over t years.
func (r InterestRate) CompoundFactor(t float64) float64 {
	f := float64(r.Frequency)
	switch r.Compounding {
	case Simple:
		return 1 + r.Rate*t
	case Compounded:
		return math.Pow(1+r.Rate/f, f*t)
	case SimpleThenCompounded:
		if t <= 1/f {
			return 1 + r.Rate*t
		}
		return math.Pow(1+r.Rate/f, f*t)
	default:
		return math.Exp(r.Rate * t)
	}
}

// DiscountFactor is the reciprocal of CompoundFactor.
func (r InterestRate) DiscountFactor(t float64) float64 {
	return 1 / r.CompoundFactor(t)
}

// ImpliedRate returns the rate that grows one unit into compound over t years.
func ImpliedRate(compound float64, dc daycount.DayCounter, comp Compounding, freq Frequency, t float64) (InterestRate, error) {
	if compound <= 0 {
		return InterestRate{}, fmt.Errorf("ImpliedRate: non-positive compound factor %g", compound)
	}
	if (comp == Compounded || comp == SimpleThenCompounded) && freq <= 0 {
		return InterestRate{}, fmt.Errorf("ImpliedRate: %s compounding needs a positive frequency", comp)
	}
	out := InterestRate{DayCounter: dc, Compounding: comp, Frequency: freq}
	if compound == 1 {
		if t < 0 {
			return InterestRate{}, fmt.Errorf("ImpliedRate: negative time %g", t)
		}
		return out, nil
	}
	if t <= 0 {
		return InterestRate{}, fmt.Errorf("ImpliedRate: non-positive time %g", t)
	}
	f := float64(freq)
	switch comp {
	case Simple:
		out.Rate = (compound - 1) / t
	case Compounded:
		out.Rate = (math.Pow(compound, 1/(f*t)) - 1) * f
	case SimpleThenCompounded:
		if t <= 1/f {
			out.Rate = (compound - 1) / t
		} else {
			out.Rate = (math.Pow(compound, 1/(f*t)) - 1) * f
		}
	default:
		out.Rate = math.Log(compound) / t
	}
	return out, nil
}
