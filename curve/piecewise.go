// Package curve bootstraps piecewise yield curves from rate helpers.
//
// A Piecewise curve has one node per helper, at the helper's pillar date, plus a
// node at the reference date. Calibrate solves the nodes in pillar order so that
// every helper reprices its market quote. Once calibrated the curve is immutable;
// when a quote feeding it changes, queries fail with errs.ErrStale until
// Calibrate runs again.
package curve

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meenmo/curvekit/daycount"
	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/interpolation"
	"github.com/meenmo/curvekit/logger"
	"github.com/meenmo/curvekit/ratehelper"
	"github.com/meenmo/curvekit/rates"
	"github.com/meenmo/curvekit/solver"
	"github.com/meenmo/curvekit/termstructure"
)

const (
	DefaultAccuracy       = 1e-12
	DefaultMaxPasses      = 100
	DefaultMaxAttempts    = 1
	DefaultMaxEvaluations = solver.DefaultMaxEvaluations
)

// BuildStats describes the last calibration.
type BuildStats struct {
	Passes      int
	Evaluations int
	// Retries counts bracket widenings; Fallbacks counts unbracketed solves.
	Retries   int
	Fallbacks int
	Duration  time.Duration
	// MaxQuoteError is the largest |quote - implied| after calibration.
	MaxQuoteError float64
}

// Piecewise is a bootstrapped curve.
type Piecewise struct {
	termstructure.Base

	name        string
	helpers     []ratehelper.RateHelper
	dates       []time.Time
	times       []float64
	maxDate     time.Time
	maxT        float64
	traits      Traits
	scheme      interpolation.Interpolator
	accuracy    float64
	maxRate     float64
	minDiscount float64

	maxPasses      int
	maxAttempts    int
	maxEvaluations int
	solver         solver.Solver
	log            *logger.Logger

	calMu sync.Mutex

	mu       sync.RWMutex
	snapshot *termstructure.Interpolated
	stamp    uint64
	stats    BuildStats

	calibrations atomic.Uint64
}

var _ termstructure.YieldTermStructure = (*Piecewise)(nil)

type settings struct {
	name           string
	traits         Traits
	scheme         interpolation.Interpolator
	dc             daycount.DayCounter
	accuracy       float64
	maxRate        float64
	minDiscount    float64
	maxPasses      int
	maxAttempts    int
	maxEvaluations int
	solver         solver.Solver
	extrapolate    bool
	log            *logger.Logger
}

// Option configures a Piecewise curve.
type Option func(*settings)

// WithName labels the curve in logs and errors.
func WithName(name string) Option { return func(s *settings) { s.name = name } }

// WithTraits selects the solved quantity. The default is Discount.
func WithTraits(t Traits) Option { return func(s *settings) { s.traits = t } }

// WithInterpolator selects the scheme between nodes. The default is log-linear.
func WithInterpolator(i interpolation.Interpolator) Option {
	return func(s *settings) { s.scheme = i }
}

// WithDayCounter sets the curve time axis. The default is ACT/365F.
func WithDayCounter(dc daycount.DayCounter) Option { return func(s *settings) { s.dc = dc } }

// WithAccuracy sets the node accuracy for the solver and the convergence loop.
func WithAccuracy(acc float64) Option { return func(s *settings) { s.accuracy = acc } }

// WithMaxRate sets the rate cap defining the first bracket.
func WithMaxRate(r float64) Option { return func(s *settings) { s.maxRate = r } }

// WithMinDiscount sets the floor of the unbracketed search on discount factors.
func WithMinDiscount(df float64) Option { return func(s *settings) { s.minDiscount = df } }

// WithMaxPasses caps the convergence loop.
func WithMaxPasses(n int) Option { return func(s *settings) { s.maxPasses = n } }

// WithMaxAttempts sets how many brackets are tried per node, each twice as wide
// as the one before, before the unbracketed search.
func WithMaxAttempts(n int) Option { return func(s *settings) { s.maxAttempts = n } }

// WithMaxEvaluations caps solver evaluations per node.
func WithMaxEvaluations(n int) Option { return func(s *settings) { s.maxEvaluations = n } }

// WithSolver replaces the default Brent solver for bracketed solves.
func WithSolver(sv solver.Solver) Option { return func(s *settings) { s.solver = sv } }

// WithExtrapolation allows queries past the last pillar.
func WithExtrapolation() Option { return func(s *settings) { s.extrapolate = true } }

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(s *settings) { s.log = l } }

// NewPiecewise validates the helpers and returns an uncalibrated curve.
//
// Helpers are sorted by pillar date. Two helpers with the same pillar, or a
// helper whose last relevant date is not after that of the helper before it,
// give errs.ErrOrdering.
func NewPiecewise(ref time.Time, helpers []ratehelper.RateHelper, opts ...Option) (*Piecewise, error) {
	const op = "curve.NewPiecewise"
	s := settings{
		traits:         Discount,
		scheme:         interpolation.LogLinear{},
		dc:             daycount.Actual365Fixed,
		accuracy:       DefaultAccuracy,
		maxRate:        DefaultMaxRate,
		minDiscount:    minDiscount,
		maxPasses:      DefaultMaxPasses,
		maxAttempts:    DefaultMaxAttempts,
		maxEvaluations: DefaultMaxEvaluations,
	}
	for _, o := range opts {
		o(&s)
	}
	if s.scheme == nil {
		return nil, errs.Configuration(op, "nil interpolator")
	}
	if !(s.accuracy > 0) || !(s.maxRate > 0) || !(s.minDiscount > 0) || s.maxPasses < 1 || s.maxAttempts < 1 || s.maxEvaluations < 1 {
		return nil, errs.Configuration(op, "accuracy %g, max rate %g, passes %d, attempts %d, evaluations %d must be positive",
			s.accuracy, s.maxRate, s.maxPasses, s.maxAttempts, s.maxEvaluations)
	}
	if _, ok := s.scheme.(interpolation.ForwardFlat); ok && s.traits == ForwardRate {
		return nil, errs.Configuration(op, "forward-flat instantaneous forwards leave each pillar node unconstrained")
	}
	for i, h := range helpers {
		if h == nil {
			return nil, errs.Configuration(op, "helper %d is nil", i)
		}
		if h.EarliestDate().Before(ref) {
			return nil, errs.Configuration(op, "%s: earliest date %s before reference date %s",
				h.Describe(), h.EarliestDate().Format("2006-01-02"), ref.Format("2006-01-02"))
		}
		if !h.PillarDate().After(ref) {
			return nil, errs.Configuration(op, "%s: pillar %s not after reference date %s",
				h.Describe(), h.PillarDate().Format("2006-01-02"), ref.Format("2006-01-02"))
		}
	}
	sorted, err := SortHelpers(helpers)
	if err != nil {
		return nil, err
	}
	if s.solver == nil {
		s.solver = solver.NewBrent(solver.WithMaxEvaluations(s.maxEvaluations))
	}
	if s.log == nil {
		s.log = logger.GetLogger("curve")
	}
	if s.name == "" {
		s.name = s.traits.String() + "/" + s.scheme.String()
	}

	p := &Piecewise{
		Base:           termstructure.NewBase(ref, s.dc),
		name:           s.name,
		helpers:        sorted,
		traits:         s.traits,
		scheme:         s.scheme,
		accuracy:       s.accuracy,
		maxRate:        s.maxRate,
		minDiscount:    s.minDiscount,
		maxPasses:      s.maxPasses,
		maxAttempts:    s.maxAttempts,
		maxEvaluations: s.maxEvaluations,
		solver:         s.solver,
		log:            s.log.With("curve", s.name),
	}
	p.dates = make([]time.Time, len(sorted)+1)
	p.times = make([]float64, len(sorted)+1)
	p.dates[0] = ref
	for i, h := range sorted {
		p.dates[i+1] = h.PillarDate()
		p.times[i+1] = p.TimeFromReference(h.PillarDate())
		if !(p.times[i+1] > p.times[i]) {
			return nil, errs.Ordering(op, "%s: pillar %s maps to non-increasing time %g under %s",
				h.Describe(), h.PillarDate().Format("2006-01-02"), p.times[i+1], s.dc)
		}
		if d := h.LatestRelevantDate(); d.After(p.maxDate) {
			p.maxDate = d
		}
	}
	if last := p.dates[len(p.dates)-1]; last.After(p.maxDate) {
		p.maxDate = last
	}
	p.maxT = p.TimeFromReference(p.maxDate)
	if s.extrapolate {
		p.EnableExtrapolation()
	}
	return p, nil
}

// SortHelpers returns the helpers stably sorted by pillar date and checks the
// ordering invariants. Sorting a sorted slice returns the same order.
func SortHelpers(helpers []ratehelper.RateHelper) ([]ratehelper.RateHelper, error) {
	const op = "curve.SortHelpers"
	if len(helpers) == 0 {
		return nil, errs.Configuration(op, "no helpers")
	}
	sorted := make([]ratehelper.RateHelper, len(helpers))
	copy(sorted, helpers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PillarDate().Before(sorted[j].PillarDate())
	})
	for i := 1; i < len(sorted); i++ {
		prev, h := sorted[i-1], sorted[i]
		if h.PillarDate().Equal(prev.PillarDate()) {
			return nil, errs.Ordering(op, "%s and %s share pillar %s",
				prev.Describe(), h.Describe(), h.PillarDate().Format("2006-01-02"))
		}
		if !h.LatestRelevantDate().After(prev.LatestRelevantDate()) {
			return nil, errs.Ordering(op, "%s ends %s, not after %s ending %s",
				h.Describe(), h.LatestRelevantDate().Format("2006-01-02"),
				prev.Describe(), prev.LatestRelevantDate().Format("2006-01-02"))
		}
	}
	return sorted, nil
}

// Name returns the curve label.
func (p *Piecewise) Name() string { return p.name }

// Traits returns the solved quantity.
func (p *Piecewise) Traits() Traits { return p.traits }

// Interpolator returns the scheme between nodes.
func (p *Piecewise) Interpolator() interpolation.Interpolator { return p.scheme }

// Helpers returns the helpers in pillar order.
func (p *Piecewise) Helpers() []ratehelper.RateHelper {
	out := make([]ratehelper.RateHelper, len(p.helpers))
	copy(out, p.helpers)
	return out
}

// PillarDates returns the node dates, the reference date first.
func (p *Piecewise) PillarDates() []time.Time {
	out := make([]time.Time, len(p.dates))
	copy(out, p.dates)
	return out
}

// MaxDate is the later of the last pillar and the last date any helper
// depends on. Queries up to it need no extrapolation flag.
func (p *Piecewise) MaxDate() time.Time { return p.maxDate }

func (p *Piecewise) maxTime() float64 { return p.maxT }

// inputStamp sums the helper stamps.
func (p *Piecewise) inputStamp() uint64 {
	var g uint64
	for _, h := range p.helpers {
		g += h.Generation()
	}
	return g
}

// Generation changes whenever an input changes or the curve is recalibrated,
// so curves discounting on this one can detect both.
func (p *Piecewise) Generation() uint64 {
	return p.inputStamp() + p.calibrations.Load()
}

// IsCalibrated reports whether the curve has been built from the current quotes.
func (p *Piecewise) IsCalibrated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot != nil && p.stamp == p.inputStamp()
}

// Stats returns the statistics of the last successful calibration.
func (p *Piecewise) Stats() BuildStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// Calibrate bootstraps the curve unless it is already calibrated.
func (p *Piecewise) Calibrate() error {
	if p.IsCalibrated() {
		return nil
	}
	return p.Recalculate()
}

// Recalculate bootstraps the curve. On failure the previous state is kept and
// the error matches errs.ErrBootstrap; a failed node solve is a *errs.BootstrapError.
func (p *Piecewise) Recalculate() error {
	p.calMu.Lock()
	defer p.calMu.Unlock()

	stamp := p.inputStamp()
	snap, stats, err := p.bootstrap()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.snapshot, p.stamp, p.stats = snap, stamp, stats
	p.mu.Unlock()
	p.calibrations.Add(1)
	return nil
}

func (p *Piecewise) current(op string) (*termstructure.Interpolated, error) {
	p.mu.RLock()
	snap, stamp := p.snapshot, p.stamp
	p.mu.RUnlock()
	if snap == nil {
		return nil, errs.Newf(errs.KindStale, op, "curve %s not calibrated", p.name)
	}
	if stamp != p.inputStamp() {
		return nil, errs.Newf(errs.KindStale, op, "curve %s inputs changed since calibration", p.name)
	}
	return snap, nil
}

// Nodes returns the calibrated nodes, the reference date first.
func (p *Piecewise) Nodes() ([]termstructure.Node, error) {
	snap, err := p.current("curve.Nodes")
	if err != nil {
		return nil, err
	}
	return snap.Nodes(), nil
}

// DiscountAt returns the discount factor at time t.
func (p *Piecewise) DiscountAt(t float64) (float64, error) {
	const op = "curve.DiscountAt"
	snap, err := p.current(op)
	if err != nil {
		return 0, err
	}
	if err := p.CheckRange(op, t, p.maxTime()); err != nil {
		return 0, err
	}
	return snap.DiscountAt(t)
}

// Discount returns the discount factor at d.
func (p *Piecewise) Discount(d time.Time) (float64, error) {
	return p.DiscountAt(p.TimeFromReference(d))
}

// ZeroRate returns the zero rate to d.
func (p *Piecewise) ZeroRate(d time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	const op = "curve.ZeroRate"
	snap, err := p.current(op)
	if err != nil {
		return rates.InterestRate{}, err
	}
	if err := p.CheckRange(op, p.TimeFromReference(d), p.maxTime()); err != nil {
		return rates.InterestRate{}, err
	}
	return snap.ZeroRate(d, dc, comp, freq)
}

// ForwardRate returns the forward rate between d1 and d2.
func (p *Piecewise) ForwardRate(d1, d2 time.Time, dc daycount.DayCounter, comp rates.Compounding, freq rates.Frequency) (rates.InterestRate, error) {
	const op = "curve.ForwardRate"
	snap, err := p.current(op)
	if err != nil {
		return rates.InterestRate{}, err
	}
	for _, d := range []time.Time{d1, d2} {
		if err := p.CheckRange(op, p.TimeFromReference(d), p.maxTime()); err != nil {
			return rates.InterestRate{}, err
		}
	}
	return snap.ForwardRate(d1, d2, dc, comp, freq)
}
