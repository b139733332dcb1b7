package solver_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/solver"
)

var (
	// increasing through 1
	f1 = solver.WithDerivative{
		F:  func(x float64) float64 { return x*x - 1 },
		DF: func(x float64) float64 { return 2 * x },
	}
	// decreasing through 1
	f2 = solver.WithDerivative{
		F:  func(x float64) float64 { return 1 - x*x },
		DF: func(x float64) float64 { return -2 * x },
	}
	// flat far from the root
	f3 = solver.WithDerivative{
		F:  func(x float64) float64 { return math.Atan(x - 1) },
		DF: func(x float64) float64 { return 1 / (1 + (x-1)*(x-1)) },
	}
)

// probe records the last argument it was called with.
type probe struct {
	last     float64
	previous float64
	offset   float64
}

func (p *probe) Value(x float64) float64 {
	p.last = x
	return p.previous + p.offset - x*x
}

func (p *probe) Derivative(x float64) float64 { return -2 * x }

func algorithms() []*solver.Algorithm {
	return []*solver.Algorithm{
		solver.NewBrent(),
		solver.NewBisection(),
		solver.NewFalsePosition(),
		solver.NewNewton(),
		solver.NewNewtonSafe(),
		solver.NewRidder(),
		solver.NewSecant(),
	}
}

func TestSolversFindRoot(t *testing.T) {
	t.Parallel()

	for _, s := range algorithms() {
		s := s
		t.Run(s.Name(), func(t *testing.T) {
			t.Parallel()
			for _, f := range []solver.WithDerivative{f1, f2} {
				for _, guess := range []float64{0.5, 1.5} {
					for _, acc := range []float64{1e-4, 1e-6, 1e-8} {
						root, err := s.Solve(f, acc, guess, 0.1)
						require.NoError(t, err)
						assert.InDelta(t, 1.0, root, acc, "unbracketed guess=%g acc=%g", guess, acc)

						root, err = s.SolveBracketed(f, acc, guess, 0, 2)
						require.NoError(t, err)
						assert.InDelta(t, 1.0, root, acc, "bracketed guess=%g acc=%g", guess, acc)
					}
				}
			}
			// the first expansion step lands on the guess' own neighbourhood
			for _, acc := range []float64{1e-4, 1e-6, 1e-8} {
				root, err := s.Solve(f3, acc, 1.00001, 0.1)
				require.NoError(t, err)
				assert.InDelta(t, 1.0, root, acc)
			}
		})
	}
}

func TestSolversLastCallAtRoot(t *testing.T) {
	t.Parallel()

	accuracy := map[string]float64{
		"brent":          1e-6,
		"bisection":      1e-6,
		"false-position": 1e-6,
		"newton":         1e-12,
		"newton-safe":    1e-9,
		"ridder":         1e-6,
		"secant":         1e-6,
	}
	mins := []float64{3.0, 2.25, 1.5, 1.0}
	maxs := []float64{7.0, 5.75, 4.5, 3.0}
	steps := []float64{0.2, 0.2, 0.1, 0.1}
	offsets := []float64{25.0, 11.0, 5.0, 1.0}
	guesses := []float64{4.5, 4.5, 2.5, 2.5}

	for _, s := range algorithms() {
		acc := accuracy[s.Name()]
		for _, bracketed := range []bool{false, true} {
			argument := 0.0
			for i := range mins {
				p := &probe{last: argument, previous: argument, offset: offsets[i]}
				var (
					root float64
					err  error
				)
				if bracketed {
					root, err = s.SolveBracketed(p, acc, guesses[i], mins[i], maxs[i])
				} else {
					root, err = s.Solve(p, acc, guesses[i], steps[i])
				}
				require.NoError(t, err, "%s bracketed=%v case %d", s.Name(), bracketed, i)
				argument = p.last
				assert.LessOrEqual(t, math.Abs(root-argument), 2*2.220446049250313e-16,
					"%s bracketed=%v case %d: root %g, last call %g", s.Name(), bracketed, i, root, argument)
			}
		}
	}
}

func TestBracketingError(t *testing.T) {
	t.Parallel()

	_, err := solver.NewBrent().SolveBracketed(f1, 1e-10, 2.5, 2, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrBracketing))

	var be *errs.BracketingError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 2.0, be.Low)
	assert.Equal(t, 3.0, be.High)
	assert.InDelta(t, 3.0, be.FLow, 1e-15)
	assert.InDelta(t, 8.0, be.FHigh, 1e-15)
}

func TestConvergenceError(t *testing.T) {
	t.Parallel()

	_, err := solver.NewBisection(solver.WithMaxEvaluations(5)).SolveBracketed(f1, 1e-12, 0.5, 0, 3)
	require.Error(t, err)
	var ce *errs.ConvergenceError
	require.True(t, errors.As(err, &ce))
	assert.True(t, errors.Is(err, errs.ErrConvergence))
	assert.Greater(t, ce.Evaluations, 5)
	assert.InDelta(t, 1.0, ce.LastEstimate, 0.5)

	// no sign change anywhere
	_, err = solver.NewBrent().Solve(solver.Func(func(x float64) float64 { return x*x + 1 }), 1e-10, 0, 0.1)
	assert.ErrorIs(t, err, errs.ErrConvergence)
}

func TestBoundsAndValidation(t *testing.T) {
	t.Parallel()

	// the first downward step would cross zero; the bound clamps it
	s := solver.NewBrent(solver.WithLowerBound(0))
	root, err := s.Solve(f2, 1e-10, 0.3, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, root, 1e-10)

	_, err = s.SolveBracketed(f1, 1e-10, 0.5, -1, 2)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = solver.NewBrent().SolveBracketed(f1, 1e-10, 3, 0, 2)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = solver.NewNewton().SolveBracketed(solver.Func(f1.F), 1e-10, 0.5, 0, 2)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"brent", "bisection", "secant", "ridder", "false-position", "newton", "newton-safe"} {
		s, err := solver.New(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}
	_, err := solver.New("halley")
	assert.Error(t, err)
}
