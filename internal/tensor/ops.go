package tensor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MatMul computes the matrix product of two rank-2 tensors.
//
// Shapes: (m, k) x (k, n) → (m, n).
func (t *Tensor) MatMul(other *Tensor) (*Tensor, error) {
	if t.shape.Rank() != 2 || other.shape.Rank() != 2 {
		return nil, fmt.Errorf("%w: MatMul got shapes %s and %s", ErrNotMatrix, t.shape, other.shape)
	}
	if t.shape[1] != other.shape[0] {
		return nil, fmt.Errorf("%w: MatMul inner dimensions differ: %s x %s", ErrShapeMismatch, t.shape, other.shape)
	}

	a := mat.NewDense(t.shape[0], t.shape[1], t.data)
	b := mat.NewDense(other.shape[0], other.shape[1], other.data)
	out := mat.NewDense(t.shape[0], other.shape[1], nil)
	out.Mul(a, b)

	return FromDense(out), nil
}

// Add computes elementwise addition. The other operand must either have
// the same shape or be a rank-1 tensor matching the last dimension, in
// which case it is broadcast across the leading axes (the bias case).
func (t *Tensor) Add(other *Tensor) (*Tensor, error) {
	return t.zipBroadcast(other, func(a, b float64) float64 { return a + b })
}

// Mul computes elementwise multiplication with the same broadcasting rule
// as Add.
func (t *Tensor) Mul(other *Tensor) (*Tensor, error) {
	return t.zipBroadcast(other, func(a, b float64) float64 { return a * b })
}

// Sub computes elementwise subtraction with the same broadcasting rule as
// Add.
func (t *Tensor) Sub(other *Tensor) (*Tensor, error) {
	return t.zipBroadcast(other, func(a, b float64) float64 { return a - b })
}

func (t *Tensor) zipBroadcast(other *Tensor, op func(a, b float64) float64) (*Tensor, error) {
	out := t.Clone()

	switch {
	case t.shape.Equal(other.shape):
		for i := range out.data {
			out.data[i] = op(out.data[i], other.data[i])
		}
	case other.shape.Rank() == 1 && t.shape.Rank() >= 1 && other.shape[0] == t.shape[t.shape.Rank()-1]:
		n := other.shape[0]
		for i := range out.data {
			out.data[i] = op(out.data[i], other.data[i%n])
		}
	default:
		return nil, fmt.Errorf("%w: cannot broadcast %s with %s", ErrShapeMismatch, t.shape, other.shape)
	}
	return out, nil
}

// Apply returns a new tensor with fn applied to every element.
func (t *Tensor) Apply(fn func(float64) float64) *Tensor {
	out := t.Clone()
	for i := range out.data {
		out.data[i] = fn(out.data[i])
	}
	return out
}

// Scale returns the tensor multiplied by a scalar.
func (t *Tensor) Scale(factor float64) *Tensor {
	return t.Apply(func(v float64) float64 { return v * factor })
}

// Softmax normalizes the tensor along its last axis so that every slice
// sums to one. Uses the max-subtraction trick for numerical stability.
func (t *Tensor) Softmax() *Tensor {
	out := t.Clone()
	n := t.shape[t.shape.Rank()-1]

	for start := 0; start < len(out.data); start += n {
		row := out.data[start : start+n]

		maxVal := math.Inf(-1)
		for _, v := range row {
			if v > maxVal {
				maxVal = v
			}
		}

		sum := 0.0
		for i, v := range row {
			row[i] = math.Exp(v - maxVal)
			sum += row[i]
		}
		for i := range row {
			row[i] /= sum
		}
	}
	return out
}

// Mean computes the per-column mean of a rank-2 tensor, returning a rank-1
// tensor with one value per column.
func (t *Tensor) Mean() (*Tensor, error) {
	if t.shape.Rank() != 2 {
		return nil, fmt.Errorf("%w: Mean got shape %s", ErrNotMatrix, t.shape)
	}
	rows, cols := t.shape[0], t.shape[1]
	out, _ := New(Shape{cols})
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += t.data[i*cols+j]
		}
		out.data[j] = sum / float64(rows)
	}
	return out, nil
}

// Variance computes the per-column population variance of a rank-2 tensor.
func (t *Tensor) Variance() (*Tensor, error) {
	mean, err := t.Mean()
	if err != nil {
		return nil, err
	}
	rows, cols := t.shape[0], t.shape[1]
	out, _ := New(Shape{cols})
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			d := t.data[i*cols+j] - mean.data[j]
			sum += d * d
		}
		out.data[j] = sum / float64(rows)
	}
	return out, nil
}

// Concat concatenates tensors along the given axis. All tensors must have
// the same rank and agree on every dimension except the concatenation
// axis. A negative axis counts from the end.
func Concat(axis int, tensors ...*Tensor) (*Tensor, error) {
	if len(tensors) == 0 {
		return nil, fmt.Errorf("%w: Concat needs at least one tensor", ErrBadShape)
	}

	rank := tensors[0].shape.Rank()
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return nil, fmt.Errorf("%w: Concat axis %d out of range for rank %d", ErrBadShape, axis, rank)
	}

	outShape := tensors[0].shape.Clone()
	for _, t := range tensors[1:] {
		if t.shape.Rank() != rank {
			return nil, fmt.Errorf("%w: Concat rank mismatch: %s vs %s", ErrShapeMismatch, tensors[0].shape, t.shape)
		}
		for i := range t.shape {
			if i == axis {
				continue
			}
			if t.shape[i] != outShape[i] {
				return nil, fmt.Errorf("%w: Concat dimension %d differs: %s vs %s", ErrShapeMismatch, i, tensors[0].shape, t.shape)
			}
		}
		outShape[axis] += t.shape[axis]
	}

	out, err := New(outShape)
	if err != nil {
		return nil, err
	}

	// Copy block-wise: each tensor contributes contiguous runs of
	// axisDim*innerSize elements per outer index.
	outerSize := 1
	for i := 0; i < axis; i++ {
		outerSize *= outShape[i]
	}
	innerSize := 1
	for i := axis + 1; i < rank; i++ {
		innerSize *= outShape[i]
	}

	outRun := outShape[axis] * innerSize
	offset := 0
	for _, t := range tensors {
		run := t.shape[axis] * innerSize
		for outer := 0; outer < outerSize; outer++ {
			src := t.data[outer*run : (outer+1)*run]
			dst := out.data[outer*outRun+offset : outer*outRun+offset+run]
			copy(dst, src)
		}
		offset += run
	}
	return out, nil
}
