// Copyright 2026 Strata ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for strata's dense float64
// tensors and partially defined shapes.
//
// Shapes may contain Unknown dimensions, which is how undetermined batch
// sizes flow through shape inference:
//
//	shape := tensor.WithBatch(10) // (?, 10)
//	x, err := tensor.FromSlice(data, tensor.Shape{2, 10})
package tensor

import (
	"gonum.org/v1/gonum/mat"

	"github.com/strata-ml/strata/internal/tensor"
)

// Unknown marks a dimension whose size is not determined yet, such as
// the batch axis before any data is seen.
const Unknown = tensor.Unknown

// Shape describes tensor dimensions. Dimensions may be Unknown.
type Shape = tensor.Shape

// Tensor is a dense float64 tensor in row-major order.
type Tensor = tensor.Tensor

// Common errors.
var (
	ErrShapeMismatch = tensor.ErrShapeMismatch
	ErrNotMatrix     = tensor.ErrNotMatrix
	ErrBadShape      = tensor.ErrBadShape
)

// WithBatch prepends an Unknown batch axis to per-sample dimensions.
//
//	tensor.WithBatch(10)     // (?, 10)
//	tensor.WithBatch(32, 32) // (?, 32, 32)
func WithBatch(dims ...int) Shape {
	return tensor.WithBatch(dims...)
}

// New creates a zero-filled tensor. The shape must be fully defined.
func New(shape Shape) (*Tensor, error) {
	return tensor.New(shape)
}

// FromSlice creates a tensor from row-major data.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) (*Tensor, error) {
	return tensor.Zeros(shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) (*Tensor, error) {
	return tensor.Ones(shape)
}

// Full creates a tensor filled with a constant value.
func Full(shape Shape, value float64) (*Tensor, error) {
	return tensor.Full(shape, value)
}

// FromDense creates a tensor from a gonum dense matrix.
func FromDense(d *mat.Dense) *Tensor {
	return tensor.FromDense(d)
}

// Concat concatenates tensors along an axis. A negative axis counts from
// the end.
func Concat(axis int, tensors ...*Tensor) (*Tensor, error) {
	return tensor.Concat(axis, tensors...)
}
