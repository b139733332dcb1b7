package interpolation_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/integrate/quad"

	"github.com/meenmo/curvekit/interpolation"
)

var (
	xs = []float64{0, 0.25, 0.5, 1, 2, 5, 10}
	ys = []float64{1, 0.997, 0.993, 0.982, 0.955, 0.86, 0.70}
)

func schemes() []interpolation.Interpolator {
	return []interpolation.Interpolator{
		interpolation.Linear{},
		interpolation.LogLinear{},
		interpolation.BackwardFlat{},
		interpolation.ForwardFlat{},
		interpolation.Cubic{},
	}
}

func TestNodesReproducedExactly(t *testing.T) {
	t.Parallel()

	for _, s := range schemes() {
		f, err := s.Interpolate(xs, ys)
		require.NoError(t, err, s.String())
		for i := range xs {
			assert.Equal(t, ys[i], f.Value(xs[i]), "%s node %d", s, i)
		}
		assert.Equal(t, xs[0], f.XMin())
		assert.Equal(t, xs[len(xs)-1], f.XMax())
		assert.True(t, f.IsInRange(3))
		assert.False(t, f.IsInRange(10.5))
	}
}

func TestPrimitiveMatchesQuadrature(t *testing.T) {
	t.Parallel()

	for _, s := range schemes() {
		f, err := s.Interpolate(xs, ys)
		require.NoError(t, err)
		for _, x := range []float64{0.1, 0.5, 1.7, 4.2, 10} {
			// integrate segment by segment so kinks fall on boundaries
			var want float64
			lo := xs[0]
			for _, node := range append(xs[1:], x) {
				hi := math.Min(node, x)
				if hi > lo {
					want += quad.Fixed(f.Value, lo, hi, 20, nil, 0)
					lo = hi
				}
			}
			assert.InDelta(t, want, f.Primitive(x), 1e-9, "%s x=%g", s, x)
		}
	}
}

func TestLinearBetweenNodes(t *testing.T) {
	t.Parallel()

	f, err := interpolation.Linear{}.Interpolate([]float64{1, 2, 4}, []float64{10, 20, 0})
	require.NoError(t, err)
	assert.InDelta(t, 15, f.Value(1.5), 1e-12)
	assert.InDelta(t, 10, f.Value(3), 1e-12)
	assert.InDelta(t, -10, f.Derivative(3), 1e-12)
	// end segments continue outside
	assert.InDelta(t, 0, f.Value(0), 1e-12)
	assert.InDelta(t, -10, f.Value(5), 1e-12)
}

func TestLogLinearStaysPositive(t *testing.T) {
	t.Parallel()

	dfs := []float64{1, 0.5, 1e-6, 0.9, 3}
	f, err := interpolation.LogLinear{}.Interpolate([]float64{0, 1, 2, 3, 4}, dfs)
	require.NoError(t, err)
	for x := 0.0; x <= 4; x += 0.01 {
		assert.Greater(t, f.Value(x), 0.0, "x=%g", x)
	}
	// geometric mean halfway
	assert.InDelta(t, math.Sqrt(0.5*1e-6), f.Value(1.5), 1e-15)

	_, err = interpolation.LogLinear{}.Interpolate([]float64{0, 1}, []float64{1, -0.1})
	assert.Error(t, err)
}

func TestFlatSchemes(t *testing.T) {
	t.Parallel()

	x := []float64{0, 1, 2}
	y := []float64{0.01, 0.02, 0.03}

	bf, err := interpolation.BackwardFlat{}.Interpolate(x, y)
	require.NoError(t, err)
	assert.Equal(t, 0.02, bf.Value(0.5))
	assert.Equal(t, 0.03, bf.Value(1.5))
	assert.Equal(t, 0.03, bf.Value(7))
	assert.InDelta(t, 0.02+0.015, bf.Primitive(1.5), 1e-15)

	ff, err := interpolation.ForwardFlat{}.Interpolate(x, y)
	require.NoError(t, err)
	assert.Equal(t, 0.01, ff.Value(0.5))
	assert.Equal(t, 0.02, ff.Value(1.5))
	assert.Equal(t, 0.03, ff.Value(7))
	assert.InDelta(t, 0.01, ff.Primitive(1), 1e-15)
	assert.InDelta(t, 0.01+0.01, ff.Primitive(1.5), 1e-15)
}

func TestCubicIsSmoothAndExtendsLinearly(t *testing.T) {
	t.Parallel()

	f, err := interpolation.Cubic{}.Interpolate(xs, ys)
	require.NoError(t, err)
	assert.True(t, interpolation.Cubic{}.Global())

	// derivative continuous across an interior node
	h := 1e-7
	assert.InDelta(t, f.Derivative(2-h), f.Derivative(2+h), 1e-5)

	d := f.Derivative(10)
	assert.InDelta(t, ys[len(ys)-1]+d*2, f.Value(12), 1e-12)

	// two points degrade to a line
	line, err := interpolation.Cubic{}.Interpolate([]float64{0, 1}, []float64{1, 3})
	require.NoError(t, err)
	assert.InDelta(t, 2, line.Value(0.5), 1e-15)
}

func TestInvalidInput(t *testing.T) {
	t.Parallel()

	for _, s := range schemes() {
		_, err := s.Interpolate([]float64{0, 1, 1}, []float64{1, 2, 3})
		assert.Error(t, err, s.String())
		_, err = s.Interpolate([]float64{0, 1}, []float64{1})
		assert.Error(t, err, s.String())
		_, err = s.Interpolate(nil, nil)
		assert.Error(t, err, s.String())
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]string{
		"linear":        "linear",
		"LogLinear":     "log-linear",
		"backward_flat": "backward-flat",
		"forward-flat":  "forward-flat",
		"cubic":         "cubic",
		"":              "log-linear",
	} {
		s, err := interpolation.Parse(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, s.String())
	}
	_, err := interpolation.Parse("akima")
	assert.Error(t, err)
}
