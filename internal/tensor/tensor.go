// Package tensor implements the dense value storage used by the layer
// graph: shapes with deferred (Unknown) dimensions and float64 tensors
// with the handful of operations that layer forward passes need.
//
// Matrix products are delegated to gonum's mat package; everything else
// operates directly on the flat row-major data slice.
package tensor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Common errors.
var (
	ErrShapeMismatch = errors.New("tensor shapes do not match")
	ErrNotMatrix     = errors.New("operation requires a rank-2 tensor")
	ErrBadShape      = errors.New("invalid tensor shape")
)

// Tensor is a dense float64 tensor in row-major layout.
type Tensor struct {
	shape Shape
	data  []float64
}

// New creates a zero-filled tensor with the given shape. The shape must be
// fully defined.
func New(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadShape, err)
	}
	if !shape.IsFullyDefined() {
		return nil, fmt.Errorf("%w: cannot allocate shape %s with unknown dimensions", ErrBadShape, shape)
	}
	return &Tensor{shape: shape.Clone(), data: make([]float64, shape.NumElements())}, nil
}

// FromSlice creates a tensor that wraps the given data. The data length
// must match the number of elements in the shape. The slice is not copied.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	t, err := New(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("%w: data length %d does not match shape %s", ErrBadShape, len(data), shape)
	}
	t.data = data
	return t, nil
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) (*Tensor, error) {
	return New(shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) (*Tensor, error) {
	return Full(shape, 1)
}

// Full creates a tensor filled with the given value.
func Full(shape Shape, value float64) (*Tensor, error) {
	t, err := New(shape)
	if err != nil {
		return nil, err
	}
	for i := range t.data {
		t.data[i] = value
	}
	return t, nil
}

// FromDense wraps a gonum matrix as a rank-2 tensor. Data is copied.
func FromDense(d *mat.Dense) *Tensor {
	rows, cols := d.Dims()
	data := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		copy(data[i*cols:(i+1)*cols], d.RawRowView(i))
	}
	return &Tensor{shape: Shape{rows, cols}, data: data}
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Data returns the underlying row-major data slice.
func (t *Tensor) Data() []float64 {
	return t.data
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), data: data}
}

// At returns the element at the given coordinates.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.offset(indices)]
}

// Set assigns the element at the given coordinates.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.offset(indices)] = value
}

func (t *Tensor) offset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: expected %d indices, got %d", len(t.shape), len(indices)))
	}
	offset := 0
	for i, stride := range t.shape.ComputeStrides() {
		offset += indices[i] * stride
	}
	return offset
}

// Reshape returns a view of the tensor with a new shape. At most one
// dimension may be Unknown; it is inferred from the remaining ones. The
// data slice is shared with the receiver.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	resolved, err := ResolveReshape(t.shape, shape)
	if err != nil {
		return nil, err
	}
	return &Tensor{shape: resolved, data: t.data}, nil
}

// ResolveReshape resolves a target shape with at most one Unknown wildcard
// dimension against a fully defined source shape.
func ResolveReshape(from, to Shape) (Shape, error) {
	wildcard := -1
	known := 1
	for i, dim := range to {
		switch {
		case dim == Unknown && wildcard >= 0:
			return nil, fmt.Errorf("%w: more than one unknown dimension in %s", ErrBadShape, to)
		case dim == Unknown:
			wildcard = i
		case dim <= 0:
			return nil, fmt.Errorf("%w: invalid dimension %d in %s", ErrBadShape, dim, to)
		default:
			known *= dim
		}
	}

	total := from.NumElements()
	if total < 0 {
		return nil, fmt.Errorf("%w: cannot reshape from partially defined shape %s", ErrBadShape, from)
	}

	resolved := to.Clone()
	if wildcard >= 0 {
		if total%known != 0 {
			return nil, fmt.Errorf("%w: cannot reshape %s into %s", ErrBadShape, from, to)
		}
		resolved[wildcard] = total / known
	} else if known != total {
		return nil, fmt.Errorf("%w: cannot reshape %s (%d elements) into %s (%d elements)",
			ErrBadShape, from, total, to, known)
	}
	return resolved, nil
}

// Dense returns the tensor as a gonum matrix. The tensor must be rank-2.
// The returned matrix shares no data with the tensor.
func (t *Tensor) Dense() (*mat.Dense, error) {
	if t.shape.Rank() != 2 {
		return nil, fmt.Errorf("%w: got shape %s", ErrNotMatrix, t.shape)
	}
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return mat.NewDense(t.shape[0], t.shape[1], data), nil
}

// String renders a short description, e.g. "Tensor(2, 3)".
func (t *Tensor) String() string {
	return "Tensor" + t.shape.String()
}
