package layers

import (
	"fmt"
	"math"
	"sort"

	"github.com/strata-ml/strata/internal/inits"
	"github.com/strata-ml/strata/internal/tensor"
)

// Activation is the dense-plus-activation layer family: Linear, Relu,
// Sigmoid, Tanh, Softmax and friends all share this machinery.
//
// Every member takes an optional unit count. With units > 0 the layer
// performs a dense transformation (weight [in, units], optional bias
// [units]) before applying its activation function; with units == 0 it is
// parameter-free and only applies the activation.
//
//	layers.NewRelu(20)  // dense 20-unit layer with ReLU
//	layers.NewRelu(0)   // plain elementwise ReLU
type Activation struct {
	base
	display string // constructor name for String()
	units   int

	weightInit inits.Initializer
	biasInit   inits.Initializer
	useBias    bool

	// Relu negative slope; PRelu trainable alpha configuration.
	alpha     float64
	alphaInit inits.Initializer
	alphaAxes []int

	weight   *Variable
	bias     *Variable
	alphaVar *Variable

	// alphaAxes resolved to positive indices at initialization.
	resolvedAxes []int
}

func newActivation(kind, display string, units int, defaultWeight inits.Initializer, o options) *Activation {
	if units < 0 {
		panic(fmt.Sprintf("layers: %s: units must be >= 0, got %d", display, units))
	}

	weight := o.weight
	if weight == nil {
		weight = defaultWeight
	}
	bias := o.bias
	if bias == nil {
		bias = inits.Constant{}
	}

	return &Activation{
		base:       newBase(kind, o.name),
		display:    display,
		units:      units,
		weightInit: weight,
		biasInit:   bias,
		useBias:    !o.noBias,
		alpha:      o.alpha,
		alphaInit:  o.alphaInit,
		alphaAxes:  o.alphaAxes,
	}
}

// NewLinear creates a dense layer with no activation (identity).
func NewLinear(units int, opts ...Option) *Activation {
	return newActivation("linear", "Linear", units, inits.HeNormal{}, buildOptions(opts))
}

// NewSigmoid creates a dense layer with the sigmoid activation.
func NewSigmoid(units int, opts ...Option) *Activation {
	return newActivation("sigmoid", "Sigmoid", units, inits.HeNormal{}, buildOptions(opts))
}

// NewHardSigmoid creates a dense layer with the piecewise-linear sigmoid
// approximation clip(0.2x + 0.5, 0, 1).
func NewHardSigmoid(units int, opts ...Option) *Activation {
	return newActivation("hard-sigmoid", "HardSigmoid", units, inits.HeNormal{}, buildOptions(opts))
}

// NewTanh creates a dense layer with the tanh activation.
func NewTanh(units int, opts ...Option) *Activation {
	return newActivation("tanh", "Tanh", units, inits.HeNormal{}, buildOptions(opts))
}

// NewRelu creates a dense layer with the rectifier activation. A non-zero
// WithAlpha option turns it into a leaky rectifier with that slope.
func NewRelu(units int, opts ...Option) *Activation {
	return newActivation("relu", "Relu", units, inits.HeNormal{Gain: 2}, buildOptions(opts))
}

// NewLeakyRelu creates a dense layer with a leaky rectifier using the
// conventional 0.01 negative slope. Same as NewRelu with WithAlpha(0.01).
func NewLeakyRelu(units int, opts ...Option) *Activation {
	o := buildOptions(opts)
	o.alpha = 0.01
	return newActivation("leaky-relu", "LeakyRelu", units, inits.HeNormal{}, o)
}

// NewSoftplus creates a dense layer with the softplus activation
// log(1 + exp(x)).
func NewSoftplus(units int, opts ...Option) *Activation {
	return newActivation("softplus", "Softplus", units, inits.HeNormal{}, buildOptions(opts))
}

// NewSoftmax creates a dense layer with softmax normalization along the
// last axis.
func NewSoftmax(units int, opts ...Option) *Activation {
	return newActivation("softmax", "Softmax", units, inits.HeNormal{}, buildOptions(opts))
}

// NewElu creates a dense layer with the exponential linear unit
// activation.
func NewElu(units int, opts ...Option) *Activation {
	return newActivation("elu", "Elu", units, inits.HeNormal{}, buildOptions(opts))
}

// NewPRelu creates a dense layer with a parametrized rectifier: the
// negative slope is a trainable variable with one value per position
// along the configured axes (the last axis by default).
func NewPRelu(units int, opts ...Option) *Activation {
	o := buildOptions(opts)
	if o.alphaInit == nil {
		o.alphaInit = inits.Constant{Value: 0.25}
	}
	if o.alphaAxes == nil {
		o.alphaAxes = []int{-1}
	}
	return newActivation("prelu", "PRelu", units, inits.HeNormal{Gain: 2}, o)
}

// Units returns the number of output units; zero for activation-only
// layers.
func (a *Activation) Units() int {
	return a.units
}

// Weight returns the weight variable, or nil before initialization.
func (a *Activation) Weight() *Variable {
	return a.weight
}

// Bias returns the bias variable, or nil before initialization or when
// the bias is disabled.
func (a *Activation) Bias() *Variable {
	return a.bias
}

// Alpha returns the trainable alpha variable of a PRelu layer, or nil.
func (a *Activation) Alpha() *Variable {
	return a.alphaVar
}

// OutputShape implements shape inference for the dense family. With
// units > 0 the input must be rank-2 (?, in) and the output is
// (batch, units); otherwise the shape passes through unchanged.
func (a *Activation) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if in == nil {
		if a.units > 0 {
			return tensor.Shape{tensor.Unknown, a.units}, nil
		}
		return nil, nil
	}

	out := in
	if a.units > 0 {
		if in.Rank() != 2 {
			return nil, &ConnectionError{
				To:      a.name,
				Details: fmt.Sprintf("input shape expected to have 2 dimensions, got %d (shape %s)", in.Rank(), in),
			}
		}
		out = tensor.Shape{in[0], a.units}
	}

	if a.kind == "prelu" {
		if _, err := resolveAxes(a.alphaAxes, out.Rank()); err != nil {
			return nil, &ConnectionError{To: a.name, Details: err.Error()}
		}
	}
	return out, nil
}

func (a *Activation) initialize(in tensor.Shape) error {
	a.resetParameters()
	a.weight, a.bias, a.alphaVar = nil, nil, nil

	out, err := a.OutputShape(in)
	if err != nil {
		return err
	}

	if a.units > 0 {
		if in == nil {
			return &ConnectionError{
				To:      a.name,
				Details: "cannot create weights: input shape unknown",
			}
		}
		nIn := in[in.Rank()-1]
		if nIn == tensor.Unknown {
			return &ConnectionError{
				To:      a.name,
				Details: fmt.Sprintf("cannot create weights: input feature dimension unknown in %s", in),
			}
		}

		a.weight, err = a.addParameter("weight", a.weightInit, tensor.Shape{nIn, a.units}, true)
		if err != nil {
			return fmt.Errorf("layer %q: %w", a.name, err)
		}

		if a.useBias {
			a.bias, err = a.addParameter("bias", a.biasInit, tensor.Shape{a.units}, true)
			if err != nil {
				return fmt.Errorf("layer %q: %w", a.name, err)
			}
		}
	}

	if a.kind == "prelu" {
		axes, err := resolveAxes(a.alphaAxes, out.Rank())
		if err != nil {
			return &ConnectionError{To: a.name, Details: err.Error()}
		}
		a.resolvedAxes = axes

		alphaShape := make(tensor.Shape, len(axes))
		for i, axis := range axes {
			if out[axis] == tensor.Unknown {
				return &ConnectionError{
					To:      a.name,
					Details: fmt.Sprintf("cannot create alpha: dimension %d unknown in %s", axis, out),
				}
			}
			alphaShape[i] = out[axis]
		}

		a.alphaVar, err = a.addParameter("alpha", a.alphaInit, alphaShape, true)
		if err != nil {
			return fmt.Errorf("layer %q: %w", a.name, err)
		}
	}
	return nil
}

// Output computes the forward pass: dense transform when units > 0,
// then the activation function.
func (a *Activation) Output(inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	x, err := single(a.name, inputs)
	if err != nil {
		return nil, err
	}

	if a.units > 0 {
		if a.weight == nil {
			return nil, fmt.Errorf("layer %q: not initialized", a.name)
		}
		y, err := x.MatMul(a.weight.Value())
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", a.name, err)
		}
		if a.bias != nil {
			y, err = y.Add(a.bias.Value())
			if err != nil {
				return nil, fmt.Errorf("layer %q: %w", a.name, err)
			}
		}
		x = y
	}

	return a.activate(x)
}

func (a *Activation) activate(x *tensor.Tensor) (*tensor.Tensor, error) {
	switch a.kind {
	case "linear":
		return x, nil
	case "relu":
		alpha := a.alpha
		return x.Apply(func(v float64) float64 {
			if v >= 0 {
				return v
			}
			return alpha * v
		}), nil
	case "leaky-relu":
		return x.Apply(func(v float64) float64 {
			if v >= 0 {
				return v
			}
			return 0.01 * v
		}), nil
	case "sigmoid":
		return x.Apply(func(v float64) float64 {
			return 1 / (1 + math.Exp(-v))
		}), nil
	case "hard-sigmoid":
		return x.Apply(func(v float64) float64 {
			return math.Min(1, math.Max(0, 0.2*v+0.5))
		}), nil
	case "tanh":
		return x.Apply(math.Tanh), nil
	case "softplus":
		return x.Apply(func(v float64) float64 {
			return math.Log1p(math.Exp(v))
		}), nil
	case "softmax":
		return x.Softmax(), nil
	case "elu":
		return x.Apply(func(v float64) float64 {
			if v >= 0 {
				return v
			}
			return math.Expm1(v)
		}), nil
	case "prelu":
		return a.prelu(x)
	default:
		return nil, fmt.Errorf("layer %q: unknown activation kind %q", a.name, a.kind)
	}
}

// prelu applies a leaky rectifier whose negative slope is looked up from
// the alpha variable by the element's coordinates along the alpha axes.
func (a *Activation) prelu(x *tensor.Tensor) (*tensor.Tensor, error) {
	if a.alphaVar == nil {
		return nil, fmt.Errorf("layer %q: not initialized", a.name)
	}

	shape := x.Shape()
	strides := shape.ComputeStrides()
	alpha := a.alphaVar.Value()
	alphaStrides := alpha.Shape().ComputeStrides()

	out := x.Clone()
	data := out.Data()
	for flat, v := range data {
		if v >= 0 {
			continue
		}
		offset := 0
		for k, axis := range a.resolvedAxes {
			coord := (flat / strides[axis]) % shape[axis]
			offset += coord * alphaStrides[k]
		}
		data[flat] = alpha.Data()[offset] * v
	}
	return out, nil
}

// String renders the constructor form, e.g. "Relu(20)" or "Softmax()".
func (a *Activation) String() string {
	if a.units == 0 {
		return a.display + "()"
	}
	return fmt.Sprintf("%s(%d)", a.display, a.units)
}

// resolveAxes normalizes negative axes against a rank and rejects the
// batch axis, duplicates, and out-of-range values.
func resolveAxes(axes []int, rank int) ([]int, error) {
	resolved := make([]int, len(axes))
	for i, axis := range axes {
		if axis < 0 {
			axis += rank
		}
		if axis <= 0 || axis >= rank {
			return nil, fmt.Errorf("alpha axis %d out of range for rank %d (batch axis not allowed)", axes[i], rank)
		}
		resolved[i] = axis
	}
	sort.Ints(resolved)
	for i := 1; i < len(resolved); i++ {
		if resolved[i] == resolved[i-1] {
			return nil, fmt.Errorf("duplicate alpha axis %d", resolved[i])
		}
	}
	return resolved, nil
}
