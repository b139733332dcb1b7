// Package ratehelper turns market quotes into curve calibration equations.
//
// Each helper wraps one instrument. Given a trial curve it returns the quote the
// instrument would have on that curve; the bootstrapper drives the difference to
// zero by moving the node at the helper's pillar date. The set of instrument
// kinds is closed: RateHelper cannot be implemented outside this package, and
// Kind enumerates every implementation.
package ratehelper

import (
	"fmt"
	"strings"
	"time"

	"github.com/meenmo/curvekit/calendar"
	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/quote"
	"github.com/meenmo/curvekit/termstructure"
)

// Kind identifies the instrument behind a helper.
type Kind int

const (
	KindDeposit Kind = iota
	KindFRA
	KindFutures
	KindSwap
	KindOIS
	KindBond
	KindBasisSwap
)

var kindNames = [...]string{"deposit", "fra", "futures", "swap", "ois", "bond", "basis"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a name to a Kind.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range kindNames {
		if s == n {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("ratehelper.ParseKind: unknown kind %q", name)
}

// PillarChoice selects the date a helper calibrates.
type PillarChoice int

const (
	// PillarLastRelevant uses the last date the instrument depends on.
	PillarLastRelevant PillarChoice = iota
	// PillarMaturity uses the instrument maturity.
	PillarMaturity
	// PillarCustom uses a caller-supplied date between the earliest and last relevant dates.
	PillarCustom
)

// ParsePillarChoice maps a name to a PillarChoice.
func ParsePillarChoice(name string) (PillarChoice, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "last-relevant", "lastrelevant":
		return PillarLastRelevant, nil
	case "maturity":
		return PillarMaturity, nil
	case "custom":
		return PillarCustom, nil
	default:
		return 0, fmt.Errorf("ratehelper.ParsePillarChoice: unknown pillar choice %q", name)
	}
}

// RateHelper is one calibrating instrument.
type RateHelper interface {
	Kind() Kind
	Quote() *quote.Handle
	// QuoteValue is the observed market quote.
	QuoteValue() (float64, error)
	// ImpliedQuote is the quote the instrument would have on ts.
	ImpliedQuote(ts termstructure.YieldTermStructure) (float64, error)
	// QuoteError is QuoteValue minus ImpliedQuote.
	QuoteError(ts termstructure.YieldTermStructure) (float64, error)
	// Generation is a stamp over every input the quote depends on.
	Generation() uint64

	PillarDate() time.Time
	EarliestDate() time.Time
	LatestRelevantDate() time.Time
	MaturityDate() time.Time
	Describe() string

	sealed()
}

// Pillar configures the pillar of a helper. The zero value is PillarLastRelevant.
type Pillar struct {
	Choice PillarChoice
	Date   time.Time // used with PillarCustom
}

// base holds what every helper shares.
type base struct {
	kind     Kind
	quote    *quote.Handle
	ref      time.Time
	earliest time.Time
	latest   time.Time
	maturity time.Time
	pillar   time.Time
	desc     string
}

func (b *base) Kind() Kind                    { return b.kind }
func (b *base) Quote() *quote.Handle          { return b.quote }
func (b *base) PillarDate() time.Time         { return b.pillar }
func (b *base) EarliestDate() time.Time       { return b.earliest }
func (b *base) LatestRelevantDate() time.Time { return b.latest }
func (b *base) MaturityDate() time.Time       { return b.maturity }
func (b *base) Describe() string              { return b.desc }
func (b *base) Generation() uint64            { return b.quote.Generation() }
func (b *base) sealed()                       {}

// QuoteValue dereferences the quote handle.
func (b *base) QuoteValue() (float64, error) {
	return b.quote.Value()
}

func checkQuote(op string, q *quote.Handle) error {
	if q == nil || q.Empty() {
		return errs.Configuration(op, "empty quote handle")
	}
	return nil
}

// finish validates the dates and resolves the pillar. It must run after earliest,
// latest and maturity are set.
func (b *base) finish(op string, p Pillar) error {
	if b.earliest.Before(b.ref) {
		return errs.Configuration(op, "%s: earliest date %s before reference date %s",
			b.desc, b.earliest.Format("2006-01-02"), b.ref.Format("2006-01-02"))
	}
	if !b.maturity.After(b.earliest) {
		return errs.Configuration(op, "%s: maturity %s not after start %s",
			b.desc, b.maturity.Format("2006-01-02"), b.earliest.Format("2006-01-02"))
	}
	switch p.Choice {
	case PillarMaturity:
		b.pillar = b.maturity
	case PillarCustom:
		if p.Date.Before(b.earliest) || p.Date.After(b.latest) {
			return errs.Configuration(op, "%s: custom pillar %s outside [%s, %s]", b.desc,
				p.Date.Format("2006-01-02"), b.earliest.Format("2006-01-02"), b.latest.Format("2006-01-02"))
		}
		b.pillar = p.Date
	default:
		b.pillar = b.latest
	}
	if !b.pillar.After(b.ref) {
		return errs.Configuration(op, "%s: pillar %s not after reference date %s",
			b.desc, b.pillar.Format("2006-01-02"), b.ref.Format("2006-01-02"))
	}
	return nil
}

func quoteError(h RateHelper, ts termstructure.YieldTermStructure) (float64, error) {
	q, err := h.QuoteValue()
	if err != nil {
		return 0, err
	}
	implied, err := h.ImpliedQuote(ts)
	if err != nil {
		return 0, err
	}
	return q - implied, nil
}

// simpleForward is the simply compounded forward rate between start and end.
func simpleForward(ts termstructure.YieldTermStructure, start, end time.Time, dc daycount.DayCounter) (float64, error) {
	d1, err := ts.Discount(start)
	if err != nil {
		return 0, err
	}
	d2, err := ts.Discount(end)
	if err != nil {
		return 0, err
	}
	return (d1/d2 - 1) / dc.YearFraction(start, end), nil
}

func orCalendar(c calendar.CalendarID) calendar.CalendarID {
	if c == "" {
		return calendar.WeekendsOnly
	}
	return c
}

func orDayCounter(dc, fallback daycount.DayCounter) daycount.DayCounter {
	if dc == "" {
		return fallback
	}
	return dc
}

func orPeriod(p, fallback calendar.Period) calendar.Period {
	if p.N == 0 {
		return fallback
	}
	return p
}

func fmtDate(t time.Time) string { return t.Format("2006-01-02") }
