package marketdata

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/quote"
	"github.com/meenmo/curvekit/ratehelper"
)

// Unit is the convention a quote string is written in.
type Unit string

const (
	// Percent quotes rates in percent: "4.35" is 0.0435.
	Percent Unit = "percent"
	// BasisPoints quotes rates in basis points: "25" is 0.0025.
	BasisPoints Unit = "bp"
	// Decimal quotes rates as decimals.
	Decimal Unit = "decimal"
	// Price quotes prices, used as given.
	Price Unit = "price"
)

const bpSuffix = "bp"

var (
	hundred     = decimal.NewFromInt(100)
	tenThousand = decimal.NewFromInt(10000)
)

// ParseUnit maps a name to a Unit.
func ParseUnit(name string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "percent", "pct", "%":
		return Percent, nil
	case "bp", "bps", "basis-points":
		return BasisPoints, nil
	case "decimal":
		return Decimal, nil
	case "price":
		return Price, nil
	default:
		return "", errs.Configuration("marketdata.ParseUnit", "unknown unit %q", name)
	}
}

// Convert turns a quote string in unit u into the value a helper expects.
func Convert(s string, u Unit) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, errs.Wrapf(errs.KindConfiguration, err, "marketdata.Convert", "quote %q", s)
	}
	switch u {
	case Percent:
		d = d.Div(hundred)
	case BasisPoints:
		d = d.Div(tenThousand)
	case Decimal, Price:
	default:
		return 0, errs.Configuration("marketdata.Convert", "unknown unit %q", u)
	}
	return d.InexactFloat64(), nil
}

// ParseRate parses a rate written as "4.25%", "25bp" or a plain decimal. The
// empty string is zero.
func ParseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 0, nil
	case strings.HasSuffix(s, "%"):
		return Convert(strings.TrimSuffix(s, "%"), Percent)
	case strings.HasSuffix(strings.ToLower(s), bpSuffix):
		return Convert(s[:len(s)-len(bpSuffix)], BasisPoints)
	default:
		return Convert(s, Decimal)
	}
}

// DefaultUnit is the unit assumed when an instrument leaves it empty: price for
// futures and bonds, basis points for basis swaps, percent otherwise.
func DefaultUnit(k ratehelper.Kind) Unit {
	switch k {
	case ratehelper.KindFutures, ratehelper.KindBond:
		return Price
	case ratehelper.KindBasisSwap:
		return BasisPoints
	default:
		return Percent
	}
}

// QuoteValue converts the instrument's quote. An empty quote string is zero;
// NewQuote turns it into an empty quote.
func (in Instrument) QuoteValue() (float64, error) {
	if strings.TrimSpace(in.Quote) == "" {
		return 0, nil
	}
	u, err := in.unit()
	if err != nil {
		return 0, err
	}
	v, err := Convert(in.Quote, u)
	if err != nil {
		return 0, errs.Wrapf(errs.KindConfiguration, err, "marketdata.QuoteValue", "instrument %s", in.ID)
	}
	return v, nil
}

func (in Instrument) unit() (Unit, error) {
	if in.Unit != "" {
		return ParseUnit(in.Unit)
	}
	k, err := ratehelper.ParseKind(in.Kind)
	if err != nil {
		return "", errs.Wrapf(errs.KindConfiguration, err, "marketdata.unit", "instrument %s", in.ID)
	}
	return DefaultUnit(k), nil
}

// NewQuote returns the instrument's quote. Instruments without a quote string
// get an empty quote to be filled later.
func (in Instrument) NewQuote() (*quote.Simple, error) {
	if strings.TrimSpace(in.Quote) == "" {
		return quote.NewEmpty(), nil
	}
	v, err := in.QuoteValue()
	if err != nil {
		return nil, err
	}
	return quote.New(v), nil
}

// Quotes creates one quote per instrument, keyed by instrument ID.
func (s *Snapshot) Quotes() (map[string]*quote.Simple, error) {
	out := make(map[string]*quote.Simple)
	for _, c := range s.Curves {
		for _, in := range c.Instruments {
			q, err := in.NewQuote()
			if err != nil {
				return nil, err
			}
			out[in.ID] = q
		}
	}
	return out, nil
}
