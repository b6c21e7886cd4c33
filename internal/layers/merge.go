package layers

import (
	"fmt"

	"github.com/strata-ml/strata/internal/tensor"
)

// Concatenate merges parallel branches by concatenating their outputs
// along one axis. It is one of the two layers that accept fan-in greater
// than one. A negative axis counts from the end; the usual choice is -1,
// the feature axis.
type Concatenate struct {
	base
	axis int
}

// NewConcatenate creates a concatenation merge layer.
func NewConcatenate(axis int, opts ...Option) *Concatenate {
	o := buildOptions(opts)
	return &Concatenate{base: newBase("concatenate", o.name), axis: axis}
}

// OutputShape handles the single-predecessor case; multi-input shapes go
// through mergeInputShapes.
func (l *Concatenate) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if in == nil {
		return nil, nil
	}
	return l.mergeInputShapes([]tensor.Shape{in})
}

func (l *Concatenate) mergeInputShapes(ins []tensor.Shape) (tensor.Shape, error) {
	for _, in := range ins {
		if in == nil {
			return nil, nil
		}
	}

	rank := ins[0].Rank()
	axis := l.axis
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return nil, &ConnectionError{
			To:      l.name,
			Details: fmt.Sprintf("concatenation axis %d out of range for rank %d", l.axis, rank),
		}
	}

	out := ins[0].Clone()
	for _, in := range ins[1:] {
		if in.Rank() != rank {
			return nil, &ConnectionError{
				To:      l.name,
				Details: fmt.Sprintf("branch ranks differ: %s vs %s", ins[0], in),
			}
		}
		for i := range in {
			if i == axis {
				switch {
				case out[i] == tensor.Unknown || in[i] == tensor.Unknown:
					out[i] = tensor.Unknown
				default:
					out[i] += in[i]
				}
				continue
			}
			merged, err := tensor.Shape{out[i]}.Merge(tensor.Shape{in[i]})
			if err != nil {
				return nil, &ConnectionError{
					To:      l.name,
					Details: fmt.Sprintf("branch shapes differ at dimension %d: %s vs %s", i, ins[0], in),
				}
			}
			out[i] = merged[0]
		}
	}
	return out, nil
}

// Output concatenates all inputs along the configured axis.
func (l *Concatenate) Output(inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	if len(inputs) == 0 {
		return nil, &ConnectionError{To: l.name, Details: "layer received no inputs"}
	}
	out, err := tensor.Concat(l.axis, inputs...)
	if err != nil {
		return nil, fmt.Errorf("layer %q: %w", l.name, err)
	}
	return out, nil
}

// String renders the layer, e.g. "Concatenate(-1)".
func (l *Concatenate) String() string {
	return fmt.Sprintf("Concatenate(%d)", l.axis)
}

// MergeOp selects how Elementwise combines its inputs.
type MergeOp string

// Supported elementwise merge operations.
const (
	OpAdd      MergeOp = "add"
	OpMultiply MergeOp = "multiply"
	OpMean     MergeOp = "mean"
)

// Elementwise merges parallel branches by combining them value for
// value. All branches must produce the same shape. Like Concatenate it
// accepts fan-in greater than one; a residual connection is Elementwise
// with OpAdd over the main path and an Identity skip.
type Elementwise struct {
	base
	op MergeOp
}

// NewElementwise creates an elementwise merge layer.
func NewElementwise(op MergeOp, opts ...Option) *Elementwise {
	switch op {
	case OpAdd, OpMultiply, OpMean:
	default:
		panic(fmt.Sprintf("layers: unsupported elementwise operation %q", op))
	}
	o := buildOptions(opts)
	return &Elementwise{base: newBase("elementwise", o.name), op: op}
}

// OutputShape handles the single-predecessor case; multi-input shapes go
// through mergeInputShapes.
func (l *Elementwise) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return in, nil
}

func (l *Elementwise) mergeInputShapes(ins []tensor.Shape) (tensor.Shape, error) {
	out := ins[0]
	for _, in := range ins[1:] {
		if out == nil || in == nil {
			return nil, nil
		}
		merged, err := out.Merge(in)
		if err != nil {
			return nil, &ConnectionError{
				To:      l.name,
				Details: fmt.Sprintf("branch shapes differ: %s vs %s", out, in),
			}
		}
		out = merged
	}
	return out, nil
}

// Output folds all inputs with the configured operation.
func (l *Elementwise) Output(inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	if len(inputs) == 0 {
		return nil, &ConnectionError{To: l.name, Details: "layer received no inputs"}
	}

	out := inputs[0]
	var err error
	for _, in := range inputs[1:] {
		switch l.op {
		case OpMultiply:
			out, err = out.Mul(in)
		default:
			out, err = out.Add(in)
		}
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", l.name, err)
		}
	}
	if l.op == OpMean {
		out = out.Scale(1 / float64(len(inputs)))
	}
	return out, nil
}

// String renders the layer, e.g. `Elementwise("add")`.
func (l *Elementwise) String() string {
	return fmt.Sprintf("Elementwise(%q)", string(l.op))
}

// Identity passes its input through unchanged. Useful as the skip branch
// of a residual connection.
type Identity struct {
	base
}

// NewIdentity creates an identity layer.
func NewIdentity(opts ...Option) *Identity {
	o := buildOptions(opts)
	return &Identity{base: newBase("identity", o.name)}
}

// OutputShape passes the input shape through unchanged.
func (l *Identity) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return in, nil
}

// Output passes the input through unchanged.
func (l *Identity) Output(inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	return single(l.name, inputs)
}

// String renders the layer.
func (l *Identity) String() string {
	return "Identity()"
}
