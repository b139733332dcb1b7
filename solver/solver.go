// Package solver finds roots of scalar functions.
//
// Every algorithm shares the same driver: Solve expands a bracket geometrically
// around a guess until the function changes sign, SolveBracketed starts from a
// caller-supplied bracket. The algorithm then refines the root inside the bracket.
// The returned root is always the last point the function was evaluated at, so
// callers whose objective mutates state (a trial curve node) are left consistent.
package solver

import (
	"math"

	"github.com/meenmo/curvekit/errs"
)

const (
	// DefaultMaxEvaluations caps function evaluations per solve.
	DefaultMaxEvaluations = 100
	growthFactor          = 1.6
	machineEpsilon        = 2.220446049250313e-16
)

// Objective is a scalar function of one variable.
type Objective interface {
	Value(x float64) float64
}

// Func adapts a plain function to Objective.
type Func func(x float64) float64

// Value calls f.
func (f Func) Value(x float64) float64 { return f(x) }

// Differentiable is an Objective with an analytic first derivative, as required by
// the Newton solvers.
type Differentiable interface {
	Objective
	Derivative(x float64) float64
}

// WithDerivative pairs a function with its derivative.
type WithDerivative struct {
	F  Func
	DF Func
}

func (w WithDerivative) Value(x float64) float64      { return w.F(x) }
func (w WithDerivative) Derivative(x float64) float64 { return w.DF(x) }

// Solver is a one-dimensional root finder.
type Solver interface {
	// Solve searches outward from guess in steps of step until a sign change
	// is found, then refines the root to accuracy.
	Solve(f Objective, accuracy, guess, step float64) (float64, error)
	// SolveBracketed refines a root known to lie in [low, high].
	SolveBracketed(f Objective, accuracy, guess, low, high float64) (float64, error)
}

// Config holds the settings shared by every algorithm.
type Config struct {
	MaxEvaluations int
	lowerBound     float64
	upperBound     float64
	lowerEnforced  bool
	upperEnforced  bool
}

// Option configures a solver.
type Option func(*Config)

// WithMaxEvaluations overrides DefaultMaxEvaluations.
func WithMaxEvaluations(n int) Option {
	return func(c *Config) { c.MaxEvaluations = n }
}

// WithLowerBound keeps every trial point at or above x.
func WithLowerBound(x float64) Option {
	return func(c *Config) { c.lowerBound, c.lowerEnforced = x, true }
}

// WithUpperBound keeps every trial point at or below x.
func WithUpperBound(x float64) Option {
	return func(c *Config) { c.upperBound, c.upperEnforced = x, true }
}

func newConfig(opts []Option) Config {
	c := Config{MaxEvaluations: DefaultMaxEvaluations}
	for _, o := range opts {
		o(&c)
	}
	if c.MaxEvaluations <= 0 {
		c.MaxEvaluations = DefaultMaxEvaluations
	}
	return c
}

func (c Config) enforceBounds(x float64) float64 {
	if c.lowerEnforced && x < c.lowerBound {
		return c.lowerBound
	}
	if c.upperEnforced && x > c.upperBound {
		return c.upperBound
	}
	return x
}

// state is the per-call bracket, kept out of the solver so one solver value can
// be shared between goroutines.
type state struct {
	cfg          Config
	root         float64
	xMin, xMax   float64
	fxMin, fxMax float64
	evaluations  int
}

func (s *state) eval(f Objective, x float64) float64 {
	s.evaluations++
	return f.Value(x)
}

func (s *state) exhausted() bool {
	return s.evaluations > s.cfg.MaxEvaluations
}

func (s *state) convergenceError(accuracy float64) error {
	return &errs.ConvergenceError{
		Evaluations:  s.evaluations,
		Accuracy:     accuracy,
		LastEstimate: s.root,
	}
}

// refineFunc runs an algorithm on a state whose bracket is established and whose
// root holds the starting point.
type refineFunc func(s *state, f Objective, accuracy float64) (float64, error)

func solve(cfg Config, refine refineFunc, f Objective, accuracy, guess, step float64) (float64, error) {
	if step == 0 {
		return 0, errs.Configuration("solver.Solve", "zero step")
	}
	accuracy = math.Max(accuracy, machineEpsilon)
	s := &state{cfg: cfg, root: guess}

	s.fxMax = s.eval(f, s.root)
	if closeToZero(s.fxMax) {
		return s.root, nil
	}
	if s.fxMax > 0 {
		s.xMin = cfg.enforceBounds(s.root - step)
		s.fxMin = s.eval(f, s.xMin)
		s.xMax = s.root
	} else {
		s.xMin = s.root
		s.fxMin = s.fxMax
		s.xMax = cfg.enforceBounds(s.root + step)
		s.fxMax = s.eval(f, s.xMax)
	}

	flip := false
	for !s.exhausted() {
		if s.fxMin*s.fxMax <= 0 {
			if closeToZero(s.fxMin) {
				return s.xMin, nil
			}
			if closeToZero(s.fxMax) {
				return s.xMax, nil
			}
			s.root = (s.xMax + s.xMin) / 2
			return refine(s, f, accuracy)
		}
		switch {
		case math.Abs(s.fxMin) < math.Abs(s.fxMax):
			s.xMin = cfg.enforceBounds(s.xMin + growthFactor*(s.xMin-s.xMax))
			s.fxMin = s.eval(f, s.xMin)
		case math.Abs(s.fxMin) > math.Abs(s.fxMax):
			s.xMax = cfg.enforceBounds(s.xMax + growthFactor*(s.xMax-s.xMin))
			s.fxMax = s.eval(f, s.xMax)
		case !flip:
			s.xMin = cfg.enforceBounds(s.xMin + growthFactor*(s.xMin-s.xMax))
			s.fxMin = s.eval(f, s.xMin)
			flip = true
		default:
			s.xMax = cfg.enforceBounds(s.xMax + growthFactor*(s.xMax-s.xMin))
			s.fxMax = s.eval(f, s.xMax)
			flip = false
		}
	}
	return 0, &errs.ConvergenceError{
		Evaluations:  s.evaluations,
		Accuracy:     accuracy,
		LastEstimate: s.root,
		Message:      "unable to bracket root",
	}
}

func solveBracketed(cfg Config, refine refineFunc, f Objective, accuracy, guess, low, high float64) (float64, error) {
	if !(low < high) {
		return 0, errs.Configuration("solver.SolveBracketed", "invalid range: low %g >= high %g", low, high)
	}
	if cfg.lowerEnforced && low < cfg.lowerBound {
		return 0, errs.Configuration("solver.SolveBracketed", "low %g below enforced bound %g", low, cfg.lowerBound)
	}
	if cfg.upperEnforced && high > cfg.upperBound {
		return 0, errs.Configuration("solver.SolveBracketed", "high %g above enforced bound %g", high, cfg.upperBound)
	}
	accuracy = math.Max(accuracy, machineEpsilon)
	s := &state{cfg: cfg, xMin: low, xMax: high}

	s.fxMin = s.eval(f, s.xMin)
	if closeToZero(s.fxMin) {
		return s.xMin, nil
	}
	s.fxMax = s.eval(f, s.xMax)
	if closeToZero(s.fxMax) {
		return s.xMax, nil
	}
	if s.fxMin*s.fxMax > 0 {
		return 0, &errs.BracketingError{Low: low, High: high, FLow: s.fxMin, FHigh: s.fxMax}
	}
	if !(guess > low && guess < high) {
		return 0, errs.Configuration("solver.SolveBracketed", "guess %g outside (%g, %g)", guess, low, high)
	}
	s.root = guess
	return refine(s, f, accuracy)
}

// closeToZero mirrors a 42-ulp closeness test against zero.
func closeToZero(x float64) bool {
	tol := 42 * machineEpsilon
	return x == 0 || math.Abs(x) < tol*tol
}

// sign returns |a| with the sign of b.
func sign(a, b float64) float64 {
	if b >= 0 {
		return math.Abs(a)
	}
	return -math.Abs(a)
}
