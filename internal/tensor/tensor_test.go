package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsUnknownDims(t *testing.T) {
	_, err := New(Shape{Unknown, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadShape)
}

func TestFromSlice(t *testing.T) {
	tr, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 6, tr.NumElements())
	assert.Equal(t, 6.0, tr.At(1, 2))

	_, err = FromSlice([]float64{1, 2}, Shape{2, 3})
	assert.ErrorIs(t, err, ErrBadShape)
}

func TestMatMul(t *testing.T) {
	a, _ := FromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	b, _ := FromSlice([]float64{7, 8, 9, 10, 11, 12}, Shape{3, 2})

	out, err := a.MatMul(b)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(Shape{2, 2}))

	// [[58, 64], [139, 154]]
	assert.Equal(t, 58.0, out.At(0, 0))
	assert.Equal(t, 64.0, out.At(0, 1))
	assert.Equal(t, 139.0, out.At(1, 0))
	assert.Equal(t, 154.0, out.At(1, 1))
}

func TestMatMul_ShapeMismatch(t *testing.T) {
	a, _ := FromSlice([]float64{1, 2, 3, 4}, Shape{2, 2})
	b, _ := FromSlice([]float64{1, 2, 3}, Shape{3, 1})

	_, err := a.MatMul(b)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestAdd_Broadcast(t *testing.T) {
	x, _ := FromSlice([]float64{1, 2, 3, 4}, Shape{2, 2})
	bias, _ := FromSlice([]float64{10, 20}, Shape{2})

	out, err := x.Add(bias)
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 22, 13, 24}, out.Data())

	// Operand is untouched.
	assert.Equal(t, []float64{1, 2, 3, 4}, x.Data())
}

func TestMul_SameShape(t *testing.T) {
	x, _ := FromSlice([]float64{1, 2, 3}, Shape{3})
	y, _ := FromSlice([]float64{2, 3, 4}, Shape{3})

	out, err := x.Mul(y)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 6, 12}, out.Data())
}

func TestSoftmax(t *testing.T) {
	x, _ := FromSlice([]float64{1, 2, 3, 1, 1, 1}, Shape{2, 3})
	out := x.Softmax()

	for row := 0; row < 2; row++ {
		sum := 0.0
		for col := 0; col < 3; col++ {
			sum += out.At(row, col)
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}

	// Uniform input gives a uniform distribution.
	assert.InDelta(t, 1.0/3.0, out.At(1, 0), 1e-9)
}

func TestReshape(t *testing.T) {
	x, _ := FromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})

	flat, err := x.Reshape(Shape{Unknown})
	require.NoError(t, err)
	assert.True(t, flat.Shape().Equal(Shape{6}))

	wide, err := x.Reshape(Shape{3, Unknown})
	require.NoError(t, err)
	assert.True(t, wide.Shape().Equal(Shape{3, 2}))

	_, err = x.Reshape(Shape{4, Unknown})
	assert.ErrorIs(t, err, ErrBadShape)

	_, err = x.Reshape(Shape{Unknown, Unknown})
	assert.ErrorIs(t, err, ErrBadShape)
}

func TestConcat(t *testing.T) {
	a, _ := FromSlice([]float64{1, 2, 3, 4}, Shape{2, 2})
	b, _ := FromSlice([]float64{5, 6, 7, 8, 9, 10}, Shape{2, 3})

	out, err := Concat(-1, a, b)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(Shape{2, 5}))
	assert.Equal(t, []float64{1, 2, 5, 6, 7, 3, 4, 8, 9, 10}, out.Data())

	// Axis 0 requires matching trailing dims.
	c, _ := FromSlice([]float64{11, 12}, Shape{1, 2})
	out, err = Concat(0, a, c)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(Shape{3, 2}))
	assert.Equal(t, []float64{1, 2, 3, 4, 11, 12}, out.Data())

	_, err = Concat(0, a, b)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestMeanVariance(t *testing.T) {
	x, _ := FromSlice([]float64{1, 10, 3, 20}, Shape{2, 2})

	mean, err := x.Mean()
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 15}, mean.Data())

	variance, err := x.Variance()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 25}, variance.Data())
}

func TestApplyScale(t *testing.T) {
	x, _ := FromSlice([]float64{-1, 0, 2}, Shape{3})

	relu := x.Apply(func(v float64) float64 { return math.Max(0, v) })
	assert.Equal(t, []float64{0, 0, 2}, relu.Data())

	scaled := x.Scale(2)
	assert.Equal(t, []float64{-2, 0, 4}, scaled.Data())
}

func TestDenseRoundTrip(t *testing.T) {
	x, _ := FromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})

	d, err := x.Dense()
	require.NoError(t, err)
	back := FromDense(d)
	assert.True(t, back.Shape().Equal(x.Shape()))
	assert.Equal(t, x.Data(), back.Data())
}
