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

// BondInput describes a fixed-rate bullet bond quoted at its clean price per 100.
type BondInput struct {
	IssueDate    time.Time
	MaturityDate time.Time
	// Coupon is the annual coupon rate as a decimal.
	Coupon float64
	// Frequency defaults to 6M and DayCounter to 30/360.
	Frequency      calendar.Period
	DayCounter     daycount.DayCounter
	Calendar       calendar.CalendarID
	Convention     calendar.Convention
	SettlementDays int
	// FaceAmount defaults to 100; Redemption is per 100 of face and defaults to 100.
	FaceAmount float64
	Redemption float64
	Pillar     Pillar
}

// CashFlow is one bond payment.
type CashFlow struct {
	AccrualStart time.Time
	AccrualEnd   time.Time
	PayDate      time.Time
	Amount       float64
}

// Bond calibrates a clean bond price.
type Bond struct {
	base
	dc         daycount.DayCounter
	coupon     float64
	face       float64
	settlement time.Time
	flows      []CashFlow // paid after settlement, redemption last
}

// NewBond builds a bond helper. Coupons accrue on unadjusted schedule dates and
// are paid on adjusted dates.
func NewBond(q *quote.Handle, ref time.Time, in BondInput) (*Bond, error) {
	const op = "ratehelper.NewBond"
	if err := checkQuote(op, q); err != nil {
		return nil, err
	}
	if in.Coupon < 0 {
		return nil, errs.Configuration(op, "negative coupon %g", in.Coupon)
	}
	face := in.FaceAmount
	if face == 0 {
		face = 100
	}
	redemption := in.Redemption
	if redemption == 0 {
		redemption = 100
	}
	if face < 0 || redemption < 0 {
		return nil, errs.Configuration(op, "negative face %g or redemption %g", face, redemption)
	}
	cal := orCalendar(in.Calendar)
	dc := orDayCounter(in.DayCounter, daycount.Thirty360)
	sched, err := schedule.Generate(in.IssueDate, in.MaturityDate, orPeriod(in.Frequency, calendar.Period{N: 6, Unit: calendar.Months}),
		cal, in.Convention, in.Convention, schedule.Backward, false)
	if err != nil {
		return nil, errs.Wrapf(errs.KindConfiguration, err, op, "coupon schedule")
	}

	b := &Bond{dc: dc, coupon: in.Coupon, face: face}
	b.kind, b.quote, b.ref = KindBond, q, ref
	b.desc = fmt.Sprintf("Bond %.4g%% %s", 100*in.Coupon, fmtDate(in.MaturityDate))
	b.settlement = calendar.AddBusinessDays(cal, ref, in.SettlementDays)

	for i := 1; i < len(sched.Dates); i++ {
		pay := sched.Dates[i]
		if !pay.After(b.settlement) {
			continue
		}
		start, end := sched.Unadjusted[i-1], sched.Unadjusted[i]
		b.flows = append(b.flows, CashFlow{
			AccrualStart: start,
			AccrualEnd:   end,
			PayDate:      pay,
			Amount:       face * in.Coupon * dc.YearFraction(start, end),
		})
	}
	if len(b.flows) == 0 {
		return nil, errs.Configuration(op, "%s: no cash flows after settlement %s", b.desc, fmtDate(b.settlement))
	}
	last := b.flows[len(b.flows)-1]
	b.flows = append(b.flows, CashFlow{AccrualStart: last.AccrualEnd, AccrualEnd: last.AccrualEnd,
		PayDate: last.PayDate, Amount: face * redemption / 100})

	b.earliest = b.settlement
	b.maturity = last.PayDate
	b.latest = last.PayDate
	if err := b.finish(op, in.Pillar); err != nil {
		return nil, err
	}
	return b, nil
}

// SettlementDate is the date the clean price settles.
func (b *Bond) SettlementDate() time.Time { return b.settlement }

// CashFlows returns the flows paid after settlement.
func (b *Bond) CashFlows() []CashFlow {
	out := make([]CashFlow, len(b.flows))
	copy(out, b.flows)
	return out
}

// AccruedAmount is the accrued coupon per 100 of face at settlement.
func (b *Bond) AccruedAmount() float64 {
	first := b.flows[0]
	if !b.settlement.After(first.AccrualStart) || first.AccrualStart.Equal(first.AccrualEnd) {
		return 0
	}
	return 100 * b.coupon * b.dc.YearFraction(first.AccrualStart, b.settlement)
}

// ImpliedQuote returns the clean price per 100 implied by ts.
func (b *Bond) ImpliedQuote(ts termstructure.YieldTermStructure) (float64, error) {
	dSettle, err := ts.Discount(b.settlement)
	if err != nil {
		return 0, err
	}
	var dirty float64
	for _, cf := range b.flows {
		df, err := ts.Discount(cf.PayDate)
		if err != nil {
			return 0, err
		}
		dirty += cf.Amount * df
	}
	dirty = dirty / dSettle * 100 / b.face
	return dirty - b.AccruedAmount(), nil
}

// QuoteError implements RateHelper.
func (b *Bond) QuoteError(ts termstructure.YieldTermStructure) (float64, error) {
	return quoteError(b, ts)
}
