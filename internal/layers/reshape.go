package layers

import (
	"fmt"

	"github.com/strata-ml/strata/internal/tensor"
)

// Reshape rearranges the non-batch dimensions of its input. The target
// shape excludes the batch axis and may contain a single Unknown
// wildcard, inferred from the element count. With no target the layer
// flattens everything after the batch axis:
//
//	NewReshape()     // (?, 3, 4) → (?, 12)
//	NewReshape(2, 6) // (?, 3, 4) → (?, 2, 6)
type Reshape struct {
	base
	target tensor.Shape // nil means flatten
}

// NewReshape creates a reshape layer. dims describe the per-sample output
// shape; leave empty to flatten.
func NewReshape(dims ...int) *Reshape {
	target := tensor.Shape(dims)
	if err := target.Validate(); err != nil {
		panic(fmt.Sprintf("layers: invalid reshape target: %v", err))
	}
	if len(dims) == 0 {
		target = nil
	}
	return &Reshape{base: newBase("reshape", ""), target: target}
}

// OutputShape computes the reshaped per-sample dimensions, carrying the
// batch axis through untouched.
func (l *Reshape) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if in == nil {
		return nil, nil
	}
	if in.Rank() < 2 {
		return nil, &ConnectionError{
			To:      l.name,
			Details: fmt.Sprintf("input shape expected to have at least 2 dimensions, got %s", in),
		}
	}

	sample := in[1:]
	target := l.target
	if target == nil {
		target = tensor.Shape{tensor.Unknown}
	}

	if !sample.IsFullyDefined() {
		// Cannot resolve wildcards yet; the output stays partially
		// unknown until evaluation time.
		out := append(tensor.Shape{in[0]}, target.Clone()...)
		return out, nil
	}

	resolved, err := tensor.ResolveReshape(sample, target)
	if err != nil {
		return nil, &ConnectionError{To: l.name, Details: err.Error()}
	}
	return append(tensor.Shape{in[0]}, resolved...), nil
}

// Output reshapes the tensor, resolving any wildcard against the actual
// sample size.
func (l *Reshape) Output(inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	x, err := single(l.name, inputs)
	if err != nil {
		return nil, err
	}

	out, err := l.OutputShape(x.Shape())
	if err != nil {
		return nil, err
	}
	reshaped, err := x.Reshape(out)
	if err != nil {
		return nil, fmt.Errorf("layer %q: %w", l.name, err)
	}
	return reshaped, nil
}

// String renders the layer, e.g. "Reshape()" or "Reshape(2, 6)".
func (l *Reshape) String() string {
	if l.target == nil {
		return "Reshape()"
	}
	return "Reshape" + l.target.String()
}
