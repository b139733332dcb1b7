package solver

import (
	"fmt"
	"math"
	"strings"

	"github.com/meenmo/curvekit/errs"
)

// Algorithm is a configured root finder. It implements Solver.
type Algorithm struct {
	name   string
	cfg    Config
	refine refineFunc
}

var _ Solver = (*Algorithm)(nil)

func newAlgorithm(name string, refine refineFunc, opts []Option) *Algorithm {
	return &Algorithm{name: name, cfg: newConfig(opts), refine: refine}
}

// NewBrent returns Brent's method: inverse quadratic interpolation safeguarded by bisection.
func NewBrent(opts ...Option) *Algorithm { return newAlgorithm("brent", brent, opts) }

// NewBisection returns plain interval halving.
func NewBisection(opts ...Option) *Algorithm { return newAlgorithm("bisection", bisection, opts) }

// NewSecant returns the secant method. It ignores the guess of a bracketed solve.
func NewSecant(opts ...Option) *Algorithm { return newAlgorithm("secant", secant, opts) }

// NewRidder returns Ridder's exponential-fit method.
func NewRidder(opts ...Option) *Algorithm { return newAlgorithm("ridder", ridder, opts) }

// NewFalsePosition returns regula falsi.
func NewFalsePosition(opts ...Option) *Algorithm {
	return newAlgorithm("false-position", falsePosition, opts)
}

// NewNewton returns Newton's method; it falls back to NewtonSafe when a step
// leaves the bracket. The objective must be Differentiable.
func NewNewton(opts ...Option) *Algorithm { return newAlgorithm("newton", newton, opts) }

// NewNewtonSafe returns Newton's method with bisection fallback.
// The objective must be Differentiable.
func NewNewtonSafe(opts ...Option) *Algorithm { return newAlgorithm("newton-safe", newtonSafe, opts) }

// New returns the algorithm with the given name.
func New(name string, opts ...Option) (*Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "brent":
		return NewBrent(opts...), nil
	case "bisection":
		return NewBisection(opts...), nil
	case "secant":
		return NewSecant(opts...), nil
	case "ridder":
		return NewRidder(opts...), nil
	case "false-position", "falseposition":
		return NewFalsePosition(opts...), nil
	case "newton":
		return NewNewton(opts...), nil
	case "newton-safe", "newtonsafe":
		return NewNewtonSafe(opts...), nil
	default:
		return nil, fmt.Errorf("solver.New: unknown algorithm %q", name)
	}
}

// Name returns the algorithm name.
func (a *Algorithm) Name() string { return a.name }

// Solve implements Solver.
func (a *Algorithm) Solve(f Objective, accuracy, guess, step float64) (float64, error) {
	return solve(a.cfg, a.refine, f, accuracy, guess, step)
}

// SolveBracketed implements Solver.
func (a *Algorithm) SolveBracketed(f Objective, accuracy, guess, low, high float64) (float64, error) {
	return solveBracketed(a.cfg, a.refine, f, accuracy, guess, low, high)
}

func brent(s *state, f Objective, accuracy float64) (float64, error) {
	froot := s.eval(f, s.root)
	if froot*s.fxMin < 0 {
		s.xMax, s.fxMax = s.xMin, s.fxMin
	} else {
		s.xMin, s.fxMin = s.xMax, s.fxMax
	}
	d := s.root - s.xMax
	e := d

	for !s.exhausted() {
		if (froot > 0 && s.fxMax > 0) || (froot < 0 && s.fxMax < 0) {
			// rename so that root and xMax bracket the root
			s.xMax, s.fxMax = s.xMin, s.fxMin
			d = s.root - s.xMin
			e = d
		}
		if math.Abs(s.fxMax) < math.Abs(froot) {
			s.xMin, s.root, s.xMax = s.root, s.xMax, s.root
			s.fxMin, froot, s.fxMax = froot, s.fxMax, froot
		}
		xAcc1 := 2*machineEpsilon*math.Abs(s.root) + 0.5*accuracy
		xMid := (s.xMax - s.root) / 2
		if math.Abs(xMid) <= xAcc1 || closeToZero(froot) {
			s.eval(f, s.root)
			return s.root, nil
		}
		if math.Abs(e) >= xAcc1 && math.Abs(s.fxMin) > math.Abs(froot) {
			var p, q float64
			sr := froot / s.fxMin
			if s.xMin == s.xMax {
				p = 2 * xMid * sr
				q = 1 - sr
			} else {
				q = s.fxMin / s.fxMax
				r := froot / s.fxMax
				p = sr * (2*xMid*q*(q-r) - (s.root-s.xMin)*(r-1))
				q = (q - 1) * (r - 1) * (sr - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			min1 := 3*xMid*q - math.Abs(xAcc1*q)
			min2 := math.Abs(e * q)
			if 2*p < math.Min(min1, min2) {
				e = d
				d = p / q
			} else {
				d = xMid
				e = d
			}
		} else {
			d = xMid
			e = d
		}
		s.xMin, s.fxMin = s.root, froot
		if math.Abs(d) > xAcc1 {
			s.root += d
		} else {
			s.root += sign(xAcc1, xMid)
		}
		froot = s.eval(f, s.root)
	}
	return 0, s.convergenceError(accuracy)
}

func bisection(s *state, f Objective, accuracy float64) (float64, error) {
	// orient so that f > 0 lies at root+dx
	var dx float64
	if s.fxMin < 0 {
		dx = s.xMax - s.xMin
		s.root = s.xMin
	} else {
		dx = s.xMin - s.xMax
		s.root = s.xMax
	}
	for !s.exhausted() {
		dx /= 2
		xMid := s.root + dx
		fMid := s.eval(f, xMid)
		if fMid <= 0 {
			s.root = xMid
		}
		if math.Abs(dx) < accuracy || closeToZero(fMid) {
			s.eval(f, s.root)
			return s.root, nil
		}
	}
	return 0, s.convergenceError(accuracy)
}

func secant(s *state, f Objective, accuracy float64) (float64, error) {
	var froot, xl, fl float64
	if math.Abs(s.fxMin) < math.Abs(s.fxMax) {
		s.root, froot = s.xMin, s.fxMin
		xl, fl = s.xMax, s.fxMax
	} else {
		s.root, froot = s.xMax, s.fxMax
		xl, fl = s.xMin, s.fxMin
	}
	for !s.exhausted() {
		dx := (xl - s.root) * froot / (froot - fl)
		xl, fl = s.root, froot
		s.root += dx
		froot = s.eval(f, s.root)
		if math.Abs(dx) < accuracy || closeToZero(froot) {
			return s.root, nil
		}
	}
	return 0, s.convergenceError(accuracy)
}

func ridder(s *state, f Objective, accuracy float64) (float64, error) {
	// Ridder undershoots the requested accuracy; tighten it.
	xAcc := accuracy / 100
	s.root = -math.MaxFloat64

	for !s.exhausted() {
		xMid := 0.5 * (s.xMin + s.xMax)
		fxMid := s.eval(f, xMid)
		sq := math.Sqrt(fxMid*fxMid - s.fxMin*s.fxMax)
		if closeToZero(sq) {
			s.root = xMid
			return s.root, nil
		}
		dir := -1.0
		if s.fxMin >= s.fxMax {
			dir = 1.0
		}
		next := xMid + (xMid-s.xMin)*(dir*fxMid/sq)
		if math.Abs(next-s.root) <= xAcc {
			s.eval(f, s.root)
			return s.root, nil
		}
		s.root = next
		froot := s.eval(f, s.root)
		if closeToZero(froot) {
			return s.root, nil
		}
		switch {
		case sign(fxMid, froot) != fxMid:
			s.xMin, s.fxMin = xMid, fxMid
			s.xMax, s.fxMax = s.root, froot
		case sign(s.fxMin, froot) != s.fxMin:
			s.xMax, s.fxMax = s.root, froot
		case sign(s.fxMax, froot) != s.fxMax:
			s.xMin, s.fxMin = s.root, froot
		default:
			return 0, &errs.ConvergenceError{
				Evaluations:  s.evaluations,
				Accuracy:     accuracy,
				LastEstimate: s.root,
				Message:      "bracket lost",
			}
		}
		if math.Abs(s.xMax-s.xMin) <= xAcc {
			s.eval(f, s.root)
			return s.root, nil
		}
	}
	return 0, s.convergenceError(accuracy)
}

func falsePosition(s *state, f Objective, accuracy float64) (float64, error) {
	var xl, fl, xh, fh float64
	if s.fxMin < 0 {
		xl, fl, xh, fh = s.xMin, s.fxMin, s.xMax, s.fxMax
	} else {
		xl, fl, xh, fh = s.xMax, s.fxMax, s.xMin, s.fxMin
	}
	for !s.exhausted() {
		s.root = xl + (xh-xl)*fl/(fl-fh)
		froot := s.eval(f, s.root)
		var del float64
		if froot < 0 {
			del = xl - s.root
			xl, fl = s.root, froot
		} else {
			del = xh - s.root
			xh, fh = s.root, froot
		}
		if math.Abs(del) < accuracy || closeToZero(froot) {
			return s.root, nil
		}
	}
	return 0, s.convergenceError(accuracy)
}

func differentiable(f Objective, op string) (Differentiable, error) {
	d, ok := f.(Differentiable)
	if !ok {
		return nil, errs.Configuration(op, "objective has no derivative")
	}
	return d, nil
}

func newton(s *state, f Objective, accuracy float64) (float64, error) {
	df, err := differentiable(f, "solver.newton")
	if err != nil {
		return 0, err
	}
	froot := s.eval(f, s.root)
	dfroot := df.Derivative(s.root)

	for !s.exhausted() {
		dx := froot / dfroot
		s.root -= dx
		if (s.xMin-s.root)*(s.root-s.xMax) < 0 {
			// jumped out of the bracket
			remaining := s.cfg.MaxEvaluations - s.evaluations
			if remaining <= 0 {
				break
			}
			safe := newConfig([]Option{WithMaxEvaluations(remaining)})
			lo, hi := math.Min(s.xMin, s.xMax), math.Max(s.xMin, s.xMax)
			guess := s.root + dx
			if !(guess > lo && guess < hi) {
				guess = (lo + hi) / 2
			}
			return solveBracketed(safe, newtonSafe, f, accuracy, guess, lo, hi)
		}
		if math.Abs(dx) < accuracy {
			s.eval(f, s.root)
			return s.root, nil
		}
		froot = s.eval(f, s.root)
		dfroot = df.Derivative(s.root)
	}
	return 0, s.convergenceError(accuracy)
}

func newtonSafe(s *state, f Objective, accuracy float64) (float64, error) {
	df, err := differentiable(f, "solver.newtonSafe")
	if err != nil {
		return 0, err
	}
	var xl, xh float64
	if s.fxMin < 0 {
		xl, xh = s.xMin, s.xMax
	} else {
		xh, xl = s.xMin, s.xMax
	}
	dxOld := s.xMax - s.xMin
	dx := dxOld

	froot := s.eval(f, s.root)
	dfroot := df.Derivative(s.root)
	for !s.exhausted() {
		outOfRange := ((s.root-xh)*dfroot-froot)*((s.root-xl)*dfroot-froot) > 0
		if outOfRange || math.Abs(2*froot) > math.Abs(dxOld*dfroot) {
			dxOld = dx
			dx = (xh - xl) / 2
			s.root = xl + dx
		} else {
			dxOld = dx
			dx = froot / dfroot
			s.root -= dx
		}
		if math.Abs(dx) < accuracy {
			s.eval(f, s.root)
			return s.root, nil
		}
		froot = s.eval(f, s.root)
		dfroot = df.Derivative(s.root)
		if froot < 0 {
			xl = s.root
		} else {
			xh = s.root
		}
	}
	return 0, s.convergenceError(accuracy)
}
