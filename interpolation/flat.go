package interpolation

import "sort"

// BackwardFlat holds each node's value over the segment ending at that node.
type BackwardFlat struct{}

func (BackwardFlat) Global() bool        { return false }
func (BackwardFlat) RequiredPoints() int { return 1 }
func (BackwardFlat) String() string      { return "backward-flat" }

// Interpolate implements Interpolator.
func (b BackwardFlat) Interpolate(xs, ys []float64) (Interpolation, error) {
	n, err := newNodes(xs, ys, b.RequiredPoints(), "interpolation.BackwardFlat")
	if err != nil {
		return nil, err
	}
	return &flat{nodes: n, backward: true, primitive: flatPrimitive(n, true)}, nil
}

// ForwardFlat holds each node's value over the segment starting at that node.
type ForwardFlat struct{}

func (ForwardFlat) Global() bool        { return false }
func (ForwardFlat) RequiredPoints() int { return 1 }
func (ForwardFlat) String() string      { return "forward-flat" }

// Interpolate implements Interpolator.
func (f ForwardFlat) Interpolate(xs, ys []float64) (Interpolation, error) {
	n, err := newNodes(xs, ys, f.RequiredPoints(), "interpolation.ForwardFlat")
	if err != nil {
		return nil, err
	}
	return &flat{nodes: n, primitive: flatPrimitive(n, false)}, nil
}

type flat struct {
	nodes
	backward  bool
	primitive []float64
}

func flatPrimitive(n nodes, backward bool) []float64 {
	p := make([]float64, len(n.xs))
	for i := 1; i < len(n.xs); i++ {
		y := n.ys[i-1]
		if backward {
			y = n.ys[i]
		}
		p[i] = p[i-1] + (n.xs[i]-n.xs[i-1])*y
	}
	return p
}

// level returns the index whose value applies at x.
func (f *flat) level(x float64) int {
	last := len(f.xs) - 1
	if f.backward {
		// first node with xs[i] >= x
		i := sort.Search(len(f.xs), func(k int) bool { return f.xs[k] >= x })
		if i > last {
			return last
		}
		return i
	}
	// last node with xs[i] <= x
	i := sort.Search(len(f.xs), func(k int) bool { return f.xs[k] > x }) - 1
	if i < 0 {
		return 0
	}
	return i
}

func (f *flat) Value(x float64) float64 { return f.ys[f.level(x)] }

func (f *flat) Derivative(float64) float64 { return 0 }

func (f *flat) Primitive(x float64) float64 {
	if x <= f.xs[0] {
		return (x - f.xs[0]) * f.ys[0]
	}
	i := sort.Search(len(f.xs), func(k int) bool { return f.xs[k] >= x }) - 1
	if i >= len(f.xs)-1 {
		i = len(f.xs) - 1
		return f.primitive[i] + (x-f.xs[i])*f.ys[i]
	}
	y := f.ys[i]
	if f.backward {
		y = f.ys[i+1]
	}
	return f.primitive[i] + (x-f.xs[i])*y
}
