package layers

import (
	"fmt"

	"github.com/strata-ml/strata/internal/tensor"
)

// Input declares a network entry point and the shape of the data fed
// into it. The batch axis is implicit and stays unknown until evaluation.
type Input struct {
	base
	shape tensor.Shape
}

// NewInput creates an input layer for per-sample feature dimensions.
//
//	layers.NewInput(10)     // accepts (?, 10)
//	layers.NewInput(32, 32) // accepts (?, 32, 32)
func NewInput(dims ...int) *Input {
	return NewInputShape(tensor.WithBatch(dims...))
}

// NewInputShape creates an input layer for an explicit shape, batch axis
// included. Use tensor.Unknown for deferred dimensions.
func NewInputShape(shape tensor.Shape, opts ...Option) *Input {
	o := buildOptions(opts)
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("layers: invalid input shape: %v", err))
	}
	return &Input{
		base:  newBase("input", o.name),
		shape: shape.Clone(),
	}
}

// Shape returns the declared input shape.
func (l *Input) Shape() tensor.Shape {
	return l.shape
}

// OutputShape returns the declared shape, refined by whatever the caller
// already knows about the incoming data.
func (l *Input) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if in == nil {
		return l.shape, nil
	}
	merged, err := l.shape.Merge(in)
	if err != nil {
		return nil, &ConnectionError{To: l.name, Details: err.Error()}
	}
	return merged, nil
}

// Output validates the tensor against the declared shape and passes it
// through unchanged.
func (l *Input) Output(inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	x, err := single(l.name, inputs)
	if err != nil {
		return nil, err
	}
	if !x.Shape().Compatible(l.shape) {
		return nil, fmt.Errorf("%w: layer %q expects shape %s, got %s",
			ErrInvalidInput, l.name, l.shape, x.Shape())
	}
	return x, nil
}

// String renders the layer, e.g. "Input(10)".
func (l *Input) String() string {
	if len(l.shape) == 2 && l.shape[0] == tensor.Unknown {
		return fmt.Sprintf("Input(%d)", l.shape[1])
	}
	return "Input" + l.shape.String()
}
