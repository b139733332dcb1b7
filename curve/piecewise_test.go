package curve_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/curvekit/calendar"
	"github.com/meenmo/curvekit/curve"
	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/interpolation"
	"github.com/meenmo/curvekit/logger"
	"github.com/meenmo/curvekit/quote"
	"github.com/meenmo/curvekit/ratehelper"
	"github.com/meenmo/curvekit/rates"
	"github.com/meenmo/curvekit/termstructure"
)

var ref = calendar.Date(2025, 1, 1)

func deposit(t *testing.T, q *quote.Simple, tenor string, dc daycount.DayCounter) *ratehelper.Deposit {
	t.Helper()
	h, err := ratehelper.NewDeposit(quote.NewHandle(q), ref, ratehelper.DepositInput{
		Tenor:      calendar.MustPeriod(tenor),
		DayCounter: dc,
	})
	require.NoError(t, err)
	return h
}

func swap(t *testing.T, rate float64, tenor string, disc termstructure.YieldTermStructure) *ratehelper.Swap {
	t.Helper()
	h, err := ratehelper.NewSwap(quote.NewHandle(quote.New(rate)), ref, ratehelper.SwapInput{
		Tenor:         calendar.MustPeriod(tenor),
		DiscountCurve: disc,
	})
	require.NoError(t, err)
	return h
}

func ois(t *testing.T, q *quote.Simple, tenor string, lag int, pillar ratehelper.PillarChoice) *ratehelper.OIS {
	t.Helper()
	h, err := ratehelper.NewOIS(quote.NewHandle(q), ref, ratehelper.OISInput{
		Tenor:      calendar.MustPeriod(tenor),
		PaymentLag: lag,
		Pillar:     ratehelper.Pillar{Choice: pillar},
	})
	require.NoError(t, err)
	return h
}

func quiet() curve.Option { return curve.WithLogger(logger.Nop()) }

func assertRepriced(t *testing.T, c *curve.Piecewise, tol float64) {
	t.Helper()
	for _, h := range c.Helpers() {
		e, err := h.QuoteError(c)
		require.NoError(t, err, h.Describe())
		assert.InDelta(t, 0, e, tol, h.Describe())
	}
}

func TestThreeDepositsReprice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		opts []curve.Option
	}{
		{"default", nil},
		{"tight", []curve.Option{curve.WithAccuracy(1e-14)}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rates3 := []float64{0.0096, 0.0145, 0.0194}
			tenors := []string{"1M", "3M", "6M"}
			helpers := make([]ratehelper.RateHelper, len(tenors))
			for i := range tenors {
				helpers[i] = deposit(t, quote.New(rates3[i]), tenors[i], daycount.Actual365Fixed)
			}

			c, err := curve.NewPiecewise(ref, helpers, append(tc.opts, quiet())...)
			require.NoError(t, err)
			require.NoError(t, c.Calibrate())
			assert.True(t, c.IsCalibrated())
			assertRepriced(t, c, 1e-12)

			three := helpers[1]
			d, err := c.Discount(three.MaturityDate())
			require.NoError(t, err)
			tau := daycount.Actual365Fixed.YearFraction(ref, three.MaturityDate())
			assert.InDelta(t, 0.0145, (1/d-1)/tau, 1e-12)

			implied, err := three.ImpliedQuote(c)
			require.NoError(t, err)
			assert.InDelta(t, 0.0145, implied, 1e-12)

			nodes, err := c.Nodes()
			require.NoError(t, err)
			require.Len(t, nodes, 4)
			assert.Equal(t, 1.0, nodes[0].Value)
			for _, n := range nodes[1:] {
				df, err := c.Discount(n.Date)
				require.NoError(t, err)
				assert.Equal(t, n.Value, df)
			}

			// log-linear discount factors stay positive between nodes
			for d := ref; !d.After(c.MaxDate()); d = d.AddDate(0, 0, 1) {
				df, err := c.Discount(d)
				require.NoError(t, err)
				assert.Greater(t, df, 0.0)
			}
		})
	}
}

func TestSortHelpers(t *testing.T) {
	t.Parallel()

	a := deposit(t, quote.New(0.01), "6M", "")
	b := deposit(t, quote.New(0.01), "1M", "")
	c := deposit(t, quote.New(0.01), "3M", "")

	once, err := curve.SortHelpers([]ratehelper.RateHelper{a, b, c})
	require.NoError(t, err)
	twice, err := curve.SortHelpers(once)
	require.NoError(t, err)
	assert.Equal(t, []ratehelper.RateHelper{b, c, a}, once)
	assert.Equal(t, once, twice)
}

func TestDuplicatePillarRejected(t *testing.T) {
	t.Parallel()

	helpers := []ratehelper.RateHelper{
		deposit(t, quote.New(0.01), "3M", ""),
		deposit(t, quote.New(0.011), "3M", daycount.Actual365Fixed),
	}
	_, err := curve.NewPiecewise(ref, helpers, quiet())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrOrdering)
}

func TestOverlappingLatestDateRejected(t *testing.T) {
	t.Parallel()

	// the custom pillar sorts the 1Y deposit first although it depends on later dates
	long, err := ratehelper.NewDeposit(quote.NewHandle(quote.New(0.02)), ref, ratehelper.DepositInput{
		Tenor:  calendar.MustPeriod("1Y"),
		Pillar: ratehelper.Pillar{Choice: ratehelper.PillarCustom, Date: calendar.Date(2025, 2, 1)},
	})
	require.NoError(t, err)
	short := deposit(t, quote.New(0.01), "3M", "")

	_, err = curve.NewPiecewise(ref, []ratehelper.RateHelper{long, short}, quiet())
	assert.ErrorIs(t, err, errs.ErrOrdering)
}

func TestFailureIsolation(t *testing.T) {
	t.Parallel()

	bad := quote.New(0.0145)
	helpers := []ratehelper.RateHelper{
		deposit(t, quote.New(0.0096), "1M", daycount.Actual365Fixed),
		deposit(t, bad, "3M", daycount.Actual365Fixed),
		deposit(t, quote.New(0.0194), "6M", daycount.Actual365Fixed),
	}
	c, err := curve.NewPiecewise(ref, helpers, quiet())
	require.NoError(t, err)
	require.NoError(t, c.Calibrate())
	before, err := c.Nodes()
	require.NoError(t, err)

	// 1 + r*tau < 0 has no positive discount factor
	_, err = bad.SetValue(-5)
	require.NoError(t, err)
	err = c.Calibrate()
	require.Error(t, err)

	var be *errs.BootstrapError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 1, be.Index)
	assert.Equal(t, helpers[1].PillarDate(), be.Pillar)
	assert.ErrorIs(t, err, errs.ErrBootstrap)
	assert.ErrorIs(t, err, errs.ErrConvergence)

	// nothing partial becomes visible: the old curve is kept but stale
	assert.False(t, c.IsCalibrated())
	_, err = c.Nodes()
	assert.ErrorIs(t, err, errs.ErrStale)

	_, err = bad.SetValue(0.0145)
	require.NoError(t, err)
	require.NoError(t, c.Calibrate())
	after, err := c.Nodes()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFailureOnFreshCurve(t *testing.T) {
	t.Parallel()

	helpers := []ratehelper.RateHelper{
		deposit(t, quote.New(0.01), "1M", ""),
		deposit(t, quote.New(-5), "3M", ""),
	}
	c, err := curve.NewPiecewise(ref, helpers, quiet())
	require.NoError(t, err)
	err = c.Calibrate()
	var be *errs.BootstrapError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 1, be.Index)

	_, err = c.Discount(calendar.Date(2025, 2, 1))
	assert.ErrorIs(t, err, errs.ErrStale)
}

func TestTraitsAndInterpolationReprice(t *testing.T) {
	t.Parallel()

	schemes := []interpolation.Interpolator{
		interpolation.Linear{},
		interpolation.LogLinear{},
		interpolation.BackwardFlat{},
		interpolation.ForwardFlat{},
		interpolation.Cubic{},
	}
	for _, traits := range []curve.Traits{curve.Discount, curve.ZeroYield, curve.ForwardRate} {
		for _, scheme := range schemes {
			if traits == curve.ForwardRate && scheme.String() == "forward-flat" {
				continue
			}
			traits, scheme := traits, scheme
			t.Run(fmt.Sprintf("%s/%s", traits, scheme), func(t *testing.T) {
				t.Parallel()

				helpers := []ratehelper.RateHelper{
					deposit(t, quote.New(0.030), "1M", ""),
					deposit(t, quote.New(0.031), "3M", ""),
					deposit(t, quote.New(0.032), "6M", ""),
					swap(t, 0.034, "2Y", nil),
					swap(t, 0.035, "3Y", nil),
					swap(t, 0.036, "5Y", nil),
					swap(t, 0.037, "7Y", nil),
				}
				c, err := curve.NewPiecewise(ref, helpers,
					curve.WithTraits(traits), curve.WithInterpolator(scheme), quiet())
				require.NoError(t, err)
				require.NoError(t, c.Calibrate())

				assertRepriced(t, c, 1e-10)
				assert.Less(t, c.Stats().MaxQuoteError, 1e-10)
				if scheme.Global() {
					assert.Greater(t, c.Stats().Passes, 1)
				} else {
					assert.Equal(t, 1, c.Stats().Passes)
				}

				nodes, err := c.Nodes()
				require.NoError(t, err)
				assert.Len(t, nodes, len(helpers)+1)
				for _, n := range nodes[1:] {
					df, err := c.Discount(n.Date)
					require.NoError(t, err)
					assert.Greater(t, df, 0.0)
					assert.Less(t, df, 1.0)
				}
			})
		}
	}
}

func TestBondCurve(t *testing.T) {
	t.Parallel()

	issue := calendar.Date(2024, 7, 15)
	bonds := []struct {
		maturity time.Time
		coupon   float64
		price    float64
	}{
		{calendar.Date(2026, 1, 15), 0.02, 99.5},
		{calendar.Date(2027, 1, 15), 0.03, 100.2},
		{calendar.Date(2028, 1, 15), 0.04, 101.0},
	}
	helpers := make([]ratehelper.RateHelper, len(bonds))
	for i, b := range bonds {
		h, err := ratehelper.NewBond(quote.NewHandle(quote.New(b.price)), ref, ratehelper.BondInput{
			IssueDate:    issue,
			MaturityDate: b.maturity,
			Coupon:       b.coupon,
		})
		require.NoError(t, err)
		helpers[i] = h
	}

	c, err := curve.NewPiecewise(ref, helpers, quiet())
	require.NoError(t, err)
	require.NoError(t, c.Calibrate())
	assertRepriced(t, c, 1e-9)
	assert.Equal(t, calendar.Date(2028, 1, 17), c.MaxDate())
}

func TestOISPaymentLagNeedsConvergenceLoop(t *testing.T) {
	t.Parallel()

	tenors := []string{"1Y", "2Y", "3Y", "5Y"}
	build := func(lag int, pillar ratehelper.PillarChoice) *curve.Piecewise {
		helpers := make([]ratehelper.RateHelper, len(tenors))
		for i, tenor := range tenors {
			helpers[i] = ois(t, quote.New(0.03+0.002*float64(i)), tenor, lag, pillar)
		}
		c, err := curve.NewPiecewise(ref, helpers, quiet())
		require.NoError(t, err)
		require.NoError(t, c.Calibrate())
		return c
	}

	lagged := build(2, ratehelper.PillarMaturity)
	assertRepriced(t, lagged, 1e-10)
	assert.Greater(t, lagged.Stats().Passes, 1)

	plain := build(2, ratehelper.PillarLastRelevant)
	assertRepriced(t, plain, 1e-10)
	assert.Equal(t, 1, plain.Stats().Passes)
}

func TestMaxDateCoversLatestRelevantDate(t *testing.T) {
	t.Parallel()

	helpers := []ratehelper.RateHelper{
		ois(t, quote.New(0.03), "1Y", 2, ratehelper.PillarMaturity),
		ois(t, quote.New(0.032), "2Y", 2, ratehelper.PillarMaturity),
	}
	c, err := curve.NewPiecewise(ref, helpers, quiet())
	require.NoError(t, err)
	require.NoError(t, c.Calibrate())
	assert.False(t, c.AllowsExtrapolation())

	last := helpers[1]
	require.True(t, last.LatestRelevantDate().After(last.PillarDate()))
	assert.Equal(t, last.LatestRelevantDate(), c.MaxDate())

	// the payment date past the last pillar is priced without extrapolation
	implied, err := last.ImpliedQuote(c)
	require.NoError(t, err)
	assert.InDelta(t, 0.032, implied, 1e-10)
	assertRepriced(t, c, 1e-10)

	_, err = c.Discount(c.MaxDate().AddDate(0, 0, 1))
	assert.ErrorIs(t, err, errs.ErrExtrapolation)
}

func TestForwardCubicConverges(t *testing.T) {
	t.Parallel()

	helpers := []ratehelper.RateHelper{
		deposit(t, quote.New(0.030), "1M", ""),
		deposit(t, quote.New(0.031), "3M", ""),
		deposit(t, quote.New(0.032), "6M", ""),
		swap(t, 0.034, "2Y", nil),
		swap(t, 0.035, "3Y", nil),
	}
	c, err := curve.NewPiecewise(ref, helpers,
		curve.WithTraits(curve.ForwardRate), curve.WithInterpolator(interpolation.Cubic{}), quiet())
	require.NoError(t, err)
	require.NoError(t, c.Calibrate())

	assertRepriced(t, c, 1e-10)
	assert.Greater(t, c.Stats().Passes, 1)
	assert.Less(t, c.Stats().Passes, 20)

	// node 0 follows node 1
	nodes, err := c.Nodes()
	require.NoError(t, err)
	assert.Equal(t, nodes[1].Value, nodes[0].Value)
}

func TestDualCurveWithExogenousDiscounting(t *testing.T) {
	t.Parallel()

	oisQuotes := []*quote.Simple{quote.New(0.025), quote.New(0.026), quote.New(0.027), quote.New(0.028)}
	oisHelpers := make([]ratehelper.RateHelper, len(oisQuotes))
	for i, tenor := range []string{"1Y", "2Y", "3Y", "5Y"} {
		oisHelpers[i] = ois(t, oisQuotes[i], tenor, 0, ratehelper.PillarLastRelevant)
	}
	discounting, err := curve.NewPiecewise(ref, oisHelpers, curve.WithName("ois"), quiet())
	require.NoError(t, err)
	require.NoError(t, discounting.Calibrate())

	projHelpers := []ratehelper.RateHelper{
		deposit(t, quote.New(0.030), "6M", ""),
		swap(t, 0.032, "2Y", discounting),
		swap(t, 0.033, "3Y", discounting),
		swap(t, 0.034, "5Y", discounting),
	}
	projection, err := curve.NewPiecewise(ref, projHelpers, curve.WithName("ibor"), quiet())
	require.NoError(t, err)
	require.NoError(t, projection.Calibrate())
	assertRepriced(t, projection, 1e-10)

	// forwards differ from the discounting curve
	d1, err := discounting.Discount(calendar.Date(2028, 1, 3))
	require.NoError(t, err)
	d2, err := projection.Discount(calendar.Date(2028, 1, 3))
	require.NoError(t, err)
	assert.Less(t, d2, d1)

	// a discounting quote change makes the projection curve stale too
	_, err = oisQuotes[2].SetValue(0.029)
	require.NoError(t, err)
	assert.False(t, discounting.IsCalibrated())
	assert.False(t, projection.IsCalibrated())

	err = projection.Calibrate()
	assert.ErrorIs(t, err, errs.ErrStale)

	require.NoError(t, discounting.Calibrate())
	require.NoError(t, projection.Calibrate())
	assert.True(t, projection.IsCalibrated())
	assertRepriced(t, projection, 1e-10)
}

func TestLargeRatesWidenBounds(t *testing.T) {
	t.Parallel()

	build := func(opts ...curve.Option) *curve.Piecewise {
		helpers := []ratehelper.RateHelper{
			deposit(t, quote.New(3.0), "1Y", ""),
			deposit(t, quote.New(3.0), "2Y", ""),
		}
		c, err := curve.NewPiecewise(ref, helpers, append(opts, quiet())...)
		require.NoError(t, err)
		require.NoError(t, c.Calibrate())
		assertRepriced(t, c, 1e-10)
		return c
	}

	widened := build(curve.WithMaxAttempts(3))
	assert.GreaterOrEqual(t, widened.Stats().Retries, 1)
	assert.Equal(t, 0, widened.Stats().Fallbacks)

	searched := build()
	assert.GreaterOrEqual(t, searched.Stats().Fallbacks, 1)
}

func TestStaleness(t *testing.T) {
	t.Parallel()

	q := quote.New(0.02)
	helpers := []ratehelper.RateHelper{
		deposit(t, quote.New(0.01), "1M", ""),
		deposit(t, q, "6M", ""),
	}
	c, err := curve.NewPiecewise(ref, helpers, quiet())
	require.NoError(t, err)

	_, err = c.Discount(calendar.Date(2025, 2, 1))
	assert.ErrorIs(t, err, errs.ErrStale)

	require.NoError(t, c.Calibrate())
	g := c.Generation()
	pillar := helpers[1].PillarDate()
	before, err := c.Discount(pillar)
	require.NoError(t, err)

	// calibrating again without changes is a no-op
	require.NoError(t, c.Calibrate())
	assert.Equal(t, g, c.Generation())

	_, err = q.SetValue(0.03)
	require.NoError(t, err)
	assert.False(t, c.IsCalibrated())
	assert.Greater(t, c.Generation(), g)
	_, err = c.Discount(pillar)
	assert.ErrorIs(t, err, errs.ErrStale)
	_, err = c.ZeroRate(pillar, daycount.Actual365Fixed, rates.Continuous, rates.Annual)
	assert.ErrorIs(t, err, errs.ErrStale)

	require.NoError(t, c.Calibrate())
	after, err := c.Discount(pillar)
	require.NoError(t, err)
	assert.Less(t, after, before)

	require.NoError(t, c.Recalculate())
	again, err := c.Discount(pillar)
	require.NoError(t, err)
	assert.Equal(t, after, again)
}

func TestExtrapolation(t *testing.T) {
	t.Parallel()

	helpers := []ratehelper.RateHelper{
		deposit(t, quote.New(0.01), "1M", ""),
		deposit(t, quote.New(0.012), "3M", ""),
	}
	c, err := curve.NewPiecewise(ref, helpers, quiet())
	require.NoError(t, err)
	require.NoError(t, c.Calibrate())

	late := calendar.Date(2026, 1, 1)
	_, err = c.Discount(late)
	assert.ErrorIs(t, err, errs.ErrExtrapolation)
	_, err = c.ForwardRate(ref, late, daycount.Actual365Fixed, rates.Simple, rates.Annual)
	assert.ErrorIs(t, err, errs.ErrExtrapolation)

	c.EnableExtrapolation()
	df, err := c.Discount(late)
	require.NoError(t, err)
	assert.Greater(t, df, 0.0)

	withOpt, err := curve.NewPiecewise(ref, helpers, curve.WithExtrapolation(), quiet())
	require.NoError(t, err)
	assert.True(t, withOpt.AllowsExtrapolation())
}

func TestZeroAndForwardQueries(t *testing.T) {
	t.Parallel()

	helpers := []ratehelper.RateHelper{
		deposit(t, quote.New(0.02), "6M", ""),
		swap(t, 0.025, "2Y", nil),
	}
	c, err := curve.NewPiecewise(ref, helpers, curve.WithTraits(curve.ZeroYield), curve.WithInterpolator(interpolation.Linear{}), quiet())
	require.NoError(t, err)
	require.NoError(t, c.Calibrate())

	nodes, err := c.Nodes()
	require.NoError(t, err)
	last := nodes[len(nodes)-1]

	z, err := c.ZeroRate(last.Date, daycount.Actual365Fixed, rates.Continuous, rates.Annual)
	require.NoError(t, err)
	assert.InDelta(t, last.Value, z.Rate, 1e-14)

	d1, d2 := nodes[1].Date, last.Date
	fwd, err := c.ForwardRate(d1, d2, daycount.Actual365Fixed, rates.Continuous, rates.Annual)
	require.NoError(t, err)
	t1, t2 := c.TimeFromReference(d1), c.TimeFromReference(d2)
	assert.InDelta(t, (last.Value*t2-nodes[1].Value*t1)/(t2-t1), fwd.Rate, 1e-12)
}

func TestConfigurationErrors(t *testing.T) {
	t.Parallel()

	helpers := []ratehelper.RateHelper{deposit(t, quote.New(0.01), "3M", "")}

	_, err := curve.NewPiecewise(ref, nil, quiet())
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = curve.NewPiecewise(ref, helpers, curve.WithTraits(curve.ForwardRate),
		curve.WithInterpolator(interpolation.ForwardFlat{}), quiet())
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = curve.NewPiecewise(ref, helpers, curve.WithAccuracy(0), quiet())
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	// the helper starts before the curve
	_, err = curve.NewPiecewise(calendar.Date(2025, 1, 2), helpers, quiet())
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestParseTraits(t *testing.T) {
	t.Parallel()

	for _, tr := range []curve.Traits{curve.Discount, curve.ZeroYield, curve.ForwardRate} {
		got, err := curve.ParseTraits(tr.String())
		require.NoError(t, err)
		assert.Equal(t, tr, got)
	}
	_, err := curve.ParseTraits("hazard")
	assert.Error(t, err)
}
