// Package interpolation turns sorted nodes into continuous functions.
//
// An Interpolator is a factory. Interpolate copies its inputs, so the caller may
// reuse the slices. Every Interpolation reproduces its nodes exactly and extends
// past the node range: linear schemes continue their end segment, flat schemes
// hold their end value, the cubic spline continues along its end tangent.
// Whether such queries are allowed is the caller's decision.
package interpolation

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Interpolation is a continuous function through a fixed set of nodes.
type Interpolation interface {
	Value(x float64) float64
	Derivative(x float64) float64
	// Primitive is the integral from XMin to x.
	Primitive(x float64) float64
	XMin() float64
	XMax() float64
	IsInRange(x float64) bool
}

// Interpolator builds Interpolations of one kind.
type Interpolator interface {
	Interpolate(xs, ys []float64) (Interpolation, error)
	// Global reports whether moving one node can change the function away from
	// that node's neighbouring segments.
	Global() bool
	RequiredPoints() int
	String() string
}

// Parse maps a scheme name to an Interpolator.
func Parse(name string) (Interpolator, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "linear":
		return Linear{}, nil
	case "", "log-linear", "loglinear":
		return LogLinear{}, nil
	case "backward-flat", "backwardflat":
		return BackwardFlat{}, nil
	case "forward-flat", "forwardflat":
		return ForwardFlat{}, nil
	case "cubic", "natural-cubic", "cubic-spline":
		return Cubic{}, nil
	default:
		return nil, fmt.Errorf("interpolation.Parse: unknown scheme %q", name)
	}
}

// nodes holds validated copies of the abscissae and ordinates.
type nodes struct {
	xs, ys []float64
}

func newNodes(xs, ys []float64, required int, op string) (nodes, error) {
	if len(xs) != len(ys) {
		return nodes{}, fmt.Errorf("%s: %d x values but %d y values", op, len(xs), len(ys))
	}
	if len(xs) < required {
		return nodes{}, fmt.Errorf("%s: need at least %d points, got %d", op, required, len(xs))
	}
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			return nodes{}, fmt.Errorf("%s: non-finite node %d (%g, %g)", op, i, xs[i], ys[i])
		}
		if i > 0 && !(xs[i] > xs[i-1]) {
			return nodes{}, fmt.Errorf("%s: x values not strictly increasing at %d (%g <= %g)", op, i, xs[i], xs[i-1])
		}
	}
	n := nodes{xs: make([]float64, len(xs)), ys: make([]float64, len(ys))}
	copy(n.xs, xs)
	copy(n.ys, ys)
	return n, nil
}

func (n nodes) XMin() float64 { return n.xs[0] }
func (n nodes) XMax() float64 { return n.xs[len(n.xs)-1] }

// IsInRange allows a relative tolerance so that times computed from the same
// dates by slightly different routes still count as inside.
func (n nodes) IsInRange(x float64) bool {
	lo, hi := n.XMin(), n.XMax()
	tol := 1e-12 * math.Max(1, math.Max(math.Abs(lo), math.Abs(hi)))
	return x >= lo-tol && x <= hi+tol
}

// locate returns the index i of the segment [xs[i], xs[i+1]] used for x,
// clamped to the first and last segments outside the range.
func (n nodes) locate(x float64) int {
	last := len(n.xs) - 2
	if last < 0 {
		return 0
	}
	i := sort.Search(len(n.xs), func(k int) bool { return n.xs[k] > x }) - 1
	if i < 0 {
		return 0
	}
	if i > last {
		return last
	}
	return i
}

// exactIndex returns the node index equal to x, or -1.
func (n nodes) exactIndex(x float64) int {
	i := sort.SearchFloat64s(n.xs, x)
	if i < len(n.xs) && n.xs[i] == x {
		return i
	}
	return -1
}
