package curve

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/interpolation"
	"github.com/meenmo/curvekit/solver"
	"github.com/meenmo/curvekit/termstructure"
)

// needsLoop reports whether one pass cannot fix every node: a global scheme
// moves earlier segments when a later node moves, and a helper depending on
// dates past its pillar sees later nodes only through extrapolation on the
// first pass.
func (p *Piecewise) needsLoop() bool {
	if p.scheme.Global() {
		return true
	}
	for _, h := range p.helpers {
		if !h.PillarDate().Equal(h.LatestRelevantDate()) {
			return true
		}
	}
	return false
}

func (p *Piecewise) bootstrap() (*termstructure.Interpolated, BuildStats, error) {
	started := time.Now()
	var stats BuildStats
	n := len(p.helpers)

	quotes := make([]float64, n)
	for i, h := range p.helpers {
		q, err := h.QuoteValue()
		if err != nil {
			return nil, stats, p.fail(i+1, 0, err)
		}
		quotes[i] = q
	}

	vals := make([]float64, n+1)
	vals[0] = p.traits.initialValue()
	prev := make([]float64, n+1)
	loop := p.needsLoop()
	acc := p.accuracy
	if loop {
		// node solves run tighter than the loop tolerance
		acc /= 10
	}

	for pass := 0; ; pass++ {
		copy(prev, vals)
		if pass > 0 && p.scheme.Global() {
			if err := p.newtonPass(pass, vals, quotes, &stats); err != nil {
				return nil, stats, err
			}
		} else {
			for i := 1; i <= n; i++ {
				if err := p.solveNode(i, pass, acc, vals, quotes[i-1], &stats); err != nil {
					return nil, stats, p.fail(i, pass, err)
				}
			}
		}
		stats.Passes = pass + 1
		if !loop {
			break
		}
		if pass == 0 {
			continue
		}
		change := floats.Distance(vals, prev, math.Inf(1))
		p.log.Debugw("bootstrap pass", "pass", pass+1, "change", change)
		if change <= p.accuracy {
			break
		}
		if pass+1 >= p.maxPasses {
			at := worstNode(vals, prev)
			return nil, stats, p.fail(at, pass, &errs.ConvergenceError{
				Evaluations:  stats.Evaluations,
				Accuracy:     p.accuracy,
				LastEstimate: vals[at],
				Message:      "convergence loop did not settle",
			})
		}
	}

	snap, err := termstructure.NewInterpolated(p.ReferenceDate(), p.DayCounter(), p.traits.quantity(), p.dates, vals, p.scheme)
	if err != nil {
		return nil, stats, errs.Wrapf(errs.KindBootstrap, err, "curve.Calibrate", "curve %s", p.name)
	}
	snap.EnableExtrapolation()

	for _, h := range p.helpers {
		e, err := h.QuoteError(snap)
		if err != nil {
			return nil, stats, errs.Wrapf(errs.KindBootstrap, err, "curve.Calibrate", "curve %s repricing %s", p.name, h.Describe())
		}
		stats.MaxQuoteError = math.Max(stats.MaxQuoteError, math.Abs(e))
	}
	stats.Duration = time.Since(started)
	p.log.Debugw("bootstrap done", "passes", stats.Passes, "evaluations", stats.Evaluations,
		"maxQuoteError", stats.MaxQuoteError, "duration", stats.Duration)
	return snap, stats, nil
}

// solveNode solves node i in place. On the first pass the trial curve stops at
// node i; later passes use every node from the previous pass.
func (p *Piecewise) solveNode(i, pass int, acc float64, vals []float64, quote float64, stats *BuildStats) error {
	h := p.helpers[i-1]
	dates, values := p.dates, vals
	if pass == 0 {
		dates, values = p.dates[:i+1], vals[:i+1]
	}

	var evalErr error
	evaluations := 0
	set := func(x float64) { p.setNode(vals, i, x) }
	f := solver.Func(func(x float64) float64 {
		evaluations++
		if evalErr != nil {
			return math.NaN()
		}
		set(x)
		trial, err := termstructure.NewInterpolated(p.ReferenceDate(), p.DayCounter(), p.traits.quantity(), dates, values, p.scheme)
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		trial.EnableExtrapolation()
		implied, err := h.ImpliedQuote(trial)
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		return implied - quote
	})
	defer func() { stats.Evaluations += evaluations }()

	guess := vals[i]
	if pass == 0 {
		guess = p.traits.guess(i, p.times, vals)
	}

	var (
		root float64
		err  error
	)
	solved := false
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			stats.Retries++
		}
		lo, hi := p.traits.bounds(i, p.times, vals, p.maxRate*math.Pow(2, float64(attempt)))
		lo = p.floor(lo)
		root, err = p.solver.SolveBracketed(f, acc, clampGuess(guess, lo, hi), lo, hi)
		if evalErr != nil {
			return evalErr
		}
		if err == nil {
			solved = true
			break
		}
		if !errors.Is(err, errs.ErrBracketing) {
			return err
		}
		p.log.Debugw("bracket failed", "helper", h.Describe(), "attempt", attempt+1, "low", lo, "high", hi)
	}
	if !solved {
		stats.Fallbacks++
		root, err = p.fallback().Solve(f, acc, guess, p.traits.step(guess))
		if evalErr != nil {
			return evalErr
		}
		if err != nil {
			return err
		}
	}
	set(root)
	return nil
}

// floor keeps rate nodes positive under log-linear interpolation.
func (p *Piecewise) floor(lo float64) float64 {
	if _, ok := p.scheme.(interpolation.LogLinear); ok && p.traits != Discount {
		return math.Max(lo, minPositiveRate)
	}
	return lo
}

func (p *Piecewise) fallback() solver.Solver {
	opts := []solver.Option{solver.WithMaxEvaluations(p.maxEvaluations)}
	switch {
	case p.traits == Discount:
		opts = append(opts, solver.WithLowerBound(p.minDiscount))
	case p.floor(math.Inf(-1)) > 0:
		opts = append(opts, solver.WithLowerBound(minPositiveRate))
	}
	return solver.NewBrent(opts...)
}

// clampGuess moves a guess on or outside the bracket a fifth of the way in.
func clampGuess(guess, lo, hi float64) float64 {
	switch {
	case guess >= hi:
		return hi - (hi-lo)/5
	case guess <= lo:
		return lo + (hi-lo)/5
	default:
		return guess
	}
}

func worstNode(vals, prev []float64) int {
	at, worst := 1, -1.0
	for i := 1; i < len(vals); i++ {
		if d := math.Abs(vals[i] - prev[i]); d > worst {
			at, worst = i, d
		}
	}
	return at
}

// fail wraps err with the identity of the helper behind node i.
func (p *Piecewise) fail(i, pass int, err error) error {
	h := p.helpers[i-1]
	be := &errs.BootstrapError{
		Index:  i - 1,
		Pillar: h.PillarDate(),
		Helper: h.Describe(),
		Pass:   pass + 1,
		Err:    err,
	}
	p.log.Warnw("bootstrap failed", "helper", h.Describe(), "index", i-1, "pass", pass+1, "error", err)
	return be
}
