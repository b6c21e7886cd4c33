package tensor

import (
	"fmt"
	"strings"
)

// Unknown marks a dimension whose size is not known until the network is
// connected to concrete data. The batch axis is the usual case.
const Unknown = -1

// Shape represents the dimensions of a tensor. Dimensions set to Unknown
// are resolved later, during shape propagation or at evaluation time.
type Shape []int

// WithBatch builds a shape with an Unknown leading batch axis.
//
// Example:
//
//	tensor.WithBatch(10)     // (?, 10)
//	tensor.WithBatch(32, 32) // (?, 32, 32)
func WithBatch(dims ...int) Shape {
	s := make(Shape, 0, len(dims)+1)
	s = append(s, Unknown)
	return append(s, dims...)
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// IsFullyDefined reports whether every dimension is known.
func (s Shape) IsFullyDefined() bool {
	for _, dim := range s {
		if dim == Unknown {
			return false
		}
	}
	return true
}

// NumElements returns the total number of elements. It returns -1 when the
// shape contains an Unknown dimension. A zero-rank shape is a scalar with
// one element.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		if dim == Unknown {
			return -1
		}
		n *= dim
	}
	return n
}

// Validate checks that every dimension is either positive or Unknown.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 && dim != Unknown {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0 or Unknown)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are identical, Unknown dimensions included.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Compatible reports whether two shapes could describe the same tensor:
// same rank, and every pair of dimensions either equal or at least one of
// them Unknown.
func (s Shape) Compatible(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] && s[i] != Unknown && other[i] != Unknown {
			return false
		}
	}
	return true
}

// Merge combines two compatible shapes into the most specific shape both
// agree on. Known dimensions win over Unknown ones.
//
//	(?, 10).Merge((32, ?)) → (32, 10)
func (s Shape) Merge(other Shape) (Shape, error) {
	if !s.Compatible(other) {
		return nil, fmt.Errorf("shapes %s and %s are not compatible", s, other)
	}
	merged := make(Shape, len(s))
	for i := range s {
		if s[i] != Unknown {
			merged[i] = s[i]
		} else {
			merged[i] = other[i]
		}
	}
	return merged, nil
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// String renders the shape in tuple notation with "?" for Unknown
// dimensions, e.g. "(?, 10)".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		if dim == Unknown {
			parts[i] = "?"
		} else {
			parts[i] = fmt.Sprintf("%d", dim)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ComputeStrides calculates row-major strides for a fully defined shape.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}
