package interpolation

import (
	"fmt"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/interp"
)

// gaussPoints integrates a cubic segment exactly.
const gaussPoints = 3

// Cubic is a natural cubic spline. Every node affects the whole curve, so a
// bootstrap with this scheme needs more than one pass. With two nodes it reduces
// to a straight line.
type Cubic struct{}

func (Cubic) Global() bool        { return true }
func (Cubic) RequiredPoints() int { return 2 }
func (Cubic) String() string      { return "cubic" }

// Interpolate implements Interpolator.
func (c Cubic) Interpolate(xs, ys []float64) (Interpolation, error) {
	n, err := newNodes(xs, ys, c.RequiredPoints(), "interpolation.Cubic")
	if err != nil {
		return nil, err
	}
	if len(n.xs) < 3 {
		return newLinear(n), nil
	}
	var spline interp.NaturalCubic
	if err := spline.Fit(n.xs, n.ys); err != nil {
		return nil, fmt.Errorf("interpolation.Cubic: %w", err)
	}
	cs := &cubic{nodes: n, spline: &spline, primitive: make([]float64, len(n.xs))}
	cs.dLeft = spline.PredictDerivative(n.XMin())
	cs.dRight = spline.PredictDerivative(n.XMax())
	for i := 1; i < len(n.xs); i++ {
		cs.primitive[i] = cs.primitive[i-1] + cs.integrate(n.xs[i-1], n.xs[i])
	}
	return cs, nil
}

type cubic struct {
	nodes
	spline        *interp.NaturalCubic
	dLeft, dRight float64
	primitive     []float64
}

func (c *cubic) integrate(a, b float64) float64 {
	return quad.Fixed(c.spline.Predict, a, b, gaussPoints, nil, 0)
}

func (c *cubic) Value(x float64) float64 {
	if k := c.exactIndex(x); k >= 0 {
		return c.ys[k]
	}
	switch {
	case x < c.XMin():
		return c.ys[0] + c.dLeft*(x-c.XMin())
	case x > c.XMax():
		return c.ys[len(c.ys)-1] + c.dRight*(x-c.XMax())
	default:
		return c.spline.Predict(x)
	}
}

func (c *cubic) Derivative(x float64) float64 {
	switch {
	case x < c.XMin():
		return c.dLeft
	case x > c.XMax():
		return c.dRight
	default:
		return c.spline.PredictDerivative(x)
	}
}

func (c *cubic) Primitive(x float64) float64 {
	last := len(c.xs) - 1
	switch {
	case x < c.XMin():
		dx := x - c.XMin()
		return dx * (c.ys[0] + 0.5*c.dLeft*dx)
	case x > c.XMax():
		dx := x - c.XMax()
		return c.primitive[last] + dx*(c.ys[last]+0.5*c.dRight*dx)
	}
	i := c.locate(x)
	return c.primitive[i] + c.integrate(c.xs[i], x)
}
