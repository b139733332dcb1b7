package interpolation

import (
	"fmt"
	"math"
)

// Linear interpolates linearly between nodes.
type Linear struct{}

func (Linear) Global() bool        { return false }
func (Linear) RequiredPoints() int { return 2 }
func (Linear) String() string      { return "linear" }

// Interpolate implements Interpolator.
func (l Linear) Interpolate(xs, ys []float64) (Interpolation, error) {
	n, err := newNodes(xs, ys, l.RequiredPoints(), "interpolation.Linear")
	if err != nil {
		return nil, err
	}
	return newLinear(n), nil
}

type linear struct {
	nodes
	slopes    []float64
	primitive []float64 // integral from xs[0] to xs[i]
}

func newLinear(n nodes) *linear {
	l := &linear{
		nodes:     n,
		slopes:    make([]float64, len(n.xs)-1),
		primitive: make([]float64, len(n.xs)),
	}
	for i := 1; i < len(n.xs); i++ {
		dx := n.xs[i] - n.xs[i-1]
		l.slopes[i-1] = (n.ys[i] - n.ys[i-1]) / dx
		l.primitive[i] = l.primitive[i-1] + dx*(n.ys[i-1]+n.ys[i])/2
	}
	return l
}

func (l *linear) Value(x float64) float64 {
	if k := l.exactIndex(x); k >= 0 {
		return l.ys[k]
	}
	i := l.locate(x)
	return l.ys[i] + (x-l.xs[i])*l.slopes[i]
}

func (l *linear) Derivative(x float64) float64 {
	return l.slopes[l.locate(x)]
}

func (l *linear) Primitive(x float64) float64 {
	i := l.locate(x)
	dx := x - l.xs[i]
	return l.primitive[i] + dx*(l.ys[i]+0.5*dx*l.slopes[i])
}

// LogLinear interpolates linearly in log(y). Node values must be positive, and so
// is every interpolated value.
type LogLinear struct{}

func (LogLinear) Global() bool        { return false }
func (LogLinear) RequiredPoints() int { return 2 }
func (LogLinear) String() string      { return "log-linear" }

// Interpolate implements Interpolator.
func (ll LogLinear) Interpolate(xs, ys []float64) (Interpolation, error) {
	n, err := newNodes(xs, ys, ll.RequiredPoints(), "interpolation.LogLinear")
	if err != nil {
		return nil, err
	}
	logs := nodes{xs: n.xs, ys: make([]float64, len(n.ys))}
	for i, y := range n.ys {
		if !(y > 0) {
			return nil, fmt.Errorf("interpolation.LogLinear: non-positive value %g at node %d", y, i)
		}
		logs.ys[i] = math.Log(y)
	}
	return &logLinear{nodes: n, log: newLinear(logs)}, nil
}

type logLinear struct {
	nodes
	log *linear
}

func (l *logLinear) Value(x float64) float64 {
	if k := l.exactIndex(x); k >= 0 {
		return l.ys[k]
	}
	return math.Exp(l.log.Value(x))
}

func (l *logLinear) Derivative(x float64) float64 {
	return l.Value(x) * l.log.Derivative(x)
}

func (l *logLinear) Primitive(x float64) float64 {
	var sum float64
	i := l.locate(x)
	for k := 0; k < i; k++ {
		sum += expSegment(l.ys[k], l.log.slopes[k], l.xs[k+1]-l.xs[k])
	}
	return sum + expSegment(l.ys[i], l.log.slopes[i], x-l.xs[i])
}

// expSegment integrates y0*exp(b*s) for s in [0, dx].
func expSegment(y0, b, dx float64) float64 {
	if math.Abs(b*dx) < 1e-10 {
		return y0 * dx * (1 + 0.5*b*dx)
	}
	return y0 * math.Expm1(b*dx) / b
}
