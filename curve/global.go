package curve

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/curvekit/errs"
	"github.com/meenmo/curvekit/termstructure"
)

const (
	// jacobianBump is the relative finite-difference step on a node.
	jacobianBump = 1e-7
	// maxHalvings caps the backtracking of one Newton step.
	maxHalvings = 12
)

// residuals reprices every helper on the full curve built from vals.
func (p *Piecewise) residuals(vals, quotes []float64, stats *BuildStats) ([]float64, int, error) {
	stats.Evaluations++
	trial, err := termstructure.NewInterpolated(p.ReferenceDate(), p.DayCounter(), p.traits.quantity(), p.dates, vals, p.scheme)
	if err != nil {
		return nil, 1, err
	}
	trial.EnableExtrapolation()
	r := make([]float64, len(p.helpers))
	for i, h := range p.helpers {
		implied, err := h.ImpliedQuote(trial)
		if err != nil {
			return nil, i + 1, err
		}
		r[i] = implied - quotes[i]
	}
	return r, 0, nil
}

// setNode writes x into node i, keeping node 0 tied to node 1 for rate traits.
func (p *Piecewise) setNode(vals []float64, i int, x float64) {
	vals[i] = x
	if i == 1 && p.traits.tiesFirstNode() {
		vals[0] = x
	}
}

// newtonPass moves all nodes at once by a damped Newton step on the repricing
// errors. Under a global scheme every helper depends on every node.
func (p *Piecewise) newtonPass(pass int, vals, quotes []float64, stats *BuildStats) error {
	n := len(p.helpers)
	r, at, err := p.residuals(vals, quotes, stats)
	if err != nil {
		return p.fail(at, pass, err)
	}

	jac := mat.NewDense(n, n, nil)
	bumped := make([]float64, len(vals))
	for j := 1; j <= n; j++ {
		copy(bumped, vals)
		h := jacobianBump * math.Max(1, math.Abs(vals[j]))
		p.setNode(bumped, j, vals[j]+h)
		rj, at, err := p.residuals(bumped, quotes, stats)
		if err != nil {
			return p.fail(at, pass, err)
		}
		for i := range rj {
			jac.Set(i, j-1, (rj[i]-r[i])/h)
		}
	}

	rhs := make([]float64, n)
	floats.ScaleTo(rhs, -1, r)
	var step mat.VecDense
	if err := step.SolveVec(jac, mat.NewVecDense(n, rhs)); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return p.fail(worstResidual(r), pass, &errs.ConvergenceError{
				Evaluations: stats.Evaluations,
				Accuracy:    p.accuracy,
				Message:     "singular repricing jacobian: " + err.Error(),
			})
		}
		p.log.Debugw("ill-conditioned jacobian", "pass", pass+1, "condition", float64(cond))
	}

	norm := floats.Norm(r, math.Inf(1))
	trial := make([]float64, len(vals))
	scale := 1.0
	for k := 0; k <= maxHalvings; k++ {
		copy(trial, vals)
		for j := 1; j <= n; j++ {
			p.setNode(trial, j, vals[j]+scale*step.AtVec(j-1))
		}
		if p.admissible(trial) {
			if rt, _, err := p.residuals(trial, quotes, stats); err == nil {
				if next := floats.Norm(rt, math.Inf(1)); next <= norm || next <= p.accuracy {
					copy(vals, trial)
					return nil
				}
			}
		}
		scale /= 2
	}
	return p.fail(worstResidual(r), pass, &errs.ConvergenceError{
		Evaluations:  stats.Evaluations,
		Accuracy:     p.accuracy,
		LastEstimate: norm,
		Message:      "newton step does not reduce the repricing error",
	})
}

// admissible rejects discount factors that are not positive.
func (p *Piecewise) admissible(vals []float64) bool {
	if p.traits != Discount {
		return !floats.HasNaN(vals)
	}
	for _, v := range vals {
		if !(v > 0) {
			return false
		}
	}
	return true
}

func worstResidual(r []float64) int {
	at, worst := 1, -1.0
	for i, v := range r {
		if a := math.Abs(v); a > worst {
			at, worst = i+1, a
		}
	}
	return at
}
