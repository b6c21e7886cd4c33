// Package layers implements the layer graph at the heart of strata:
// layers connected into a directed acyclic graph, shape propagation
// through that graph, parameter accounting, and structure rendering.
//
// Networks are composed with Join and Parallel:
//
//	network, err := layers.Join(
//	    layers.NewInput(784),
//	    layers.NewRelu(500),
//	    layers.NewRelu(300),
//	    layers.NewSoftmax(10),
//	)
//
// Branching graphs use Parallel with a merge layer:
//
//	branches, err := layers.Parallel(
//	    layers.NewRelu(16),
//	    layers.NewTanh(16),
//	)
//	...
//	network, err := layers.Join(
//	    layers.NewInput(10),
//	    branches,
//	    layers.NewConcatenate(-1),
//	    layers.NewSoftmax(4),
//	)
//
// The graph topology is held in a gonum directed graph, which also
// provides topological ordering and Graphviz DOT rendering.
package layers

import (
	"github.com/strata-ml/strata/internal/inits"
	"github.com/strata-ml/strata/internal/tensor"
)

// Layer is a single node in a network graph.
//
// OutputShape answers shape inference questions without touching data; a
// nil input shape means "not known yet" and propagates as a nil output.
// Output computes the forward pass. Layers that merge several branches
// accept multiple inputs; all others require exactly one.
type Layer interface {
	// Name returns the layer's unique identifier within a network.
	// Layers constructed without an explicit name are named when first
	// added to a network.
	Name() string

	// OutputShape derives the output shape from an input shape.
	OutputShape(in tensor.Shape) (tensor.Shape, error)

	// Output computes the layer's forward pass.
	Output(inputs ...*tensor.Tensor) (*tensor.Tensor, error)

	// Parameters returns the layer's variables in creation order.
	// Empty until the owning network has been initialized.
	Parameters() []*Variable
}

// Hooks the network uses on layers from this package. Implemented by the
// embedded base and by individual layer types.
type (
	// namable layers can receive a generated name.
	namable interface {
		kindName() string
		setName(name string)
	}

	// initializable layers create their variables once the input shape
	// is pinned down.
	initializable interface {
		initialize(in tensor.Shape) error
	}

	// merger layers accept fan-in greater than one.
	merger interface {
		mergeInputShapes(ins []tensor.Shape) (tensor.Shape, error)
	}

	// trainingAware layers behave differently during training
	// (dropout, noise, batch normalization).
	trainingAware interface {
		setTraining(training bool)
	}
)

// base carries the state shared by every layer in this package.
type base struct {
	kind     string
	name     string
	training bool
	params   []*Variable
}

func newBase(kind, name string) base {
	return base{kind: kind, name: name}
}

// Name returns the layer name. Empty until assigned.
func (b *base) Name() string {
	return b.name
}

// Parameters returns the layer's variables in creation order.
func (b *base) Parameters() []*Variable {
	return b.params
}

func (b *base) kindName() string {
	return b.kind
}

func (b *base) setName(name string) {
	b.name = name
}

func (b *base) setTraining(training bool) {
	b.training = training
}

// addParameter samples a variable from an initializer and registers it.
func (b *base) addParameter(name string, ini inits.Initializer, shape tensor.Shape, trainable bool) (*Variable, error) {
	value, err := ini.Sample(shape)
	if err != nil {
		return nil, err
	}
	v := NewVariable(name, value, trainable)
	b.params = append(b.params, v)
	return v, nil
}

// resetParameters drops all variables so initialize can run again.
func (b *base) resetParameters() {
	b.params = nil
}

// single extracts the sole input, erroring on any other arity.
func single(layer string, inputs []*tensor.Tensor) (*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, &ConnectionError{
			To:      layer,
			Details: "layer expects exactly one input",
		}
	}
	return inputs[0], nil
}

// Option configures optional layer settings at construction time.
type Option func(*options)

type options struct {
	name       string
	weight     inits.Initializer
	bias       inits.Initializer
	noBias     bool
	alpha      float64
	alphaInit  inits.Initializer
	alphaAxes  []int
	momentum   float64
	epsilon    float64
	momentumOK bool
	epsilonOK  bool
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithName gives the layer an explicit name instead of a generated one.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithWeight overrides the weight initializer. Combine with
// inits.FromTensor to pin exact values.
func WithWeight(ini inits.Initializer) Option {
	return func(o *options) { o.weight = ini }
}

// WithBias overrides the bias initializer.
func WithBias(ini inits.Initializer) Option {
	return func(o *options) { o.bias = ini }
}

// WithoutBias removes the bias term from a dense layer.
func WithoutBias() Option {
	return func(o *options) { o.noBias = true }
}

// WithAlpha sets the negative-slope coefficient for Relu.
func WithAlpha(alpha float64) Option {
	return func(o *options) { o.alpha = alpha }
}

// WithAlphaInit overrides the alpha initializer for PRelu.
func WithAlphaInit(ini inits.Initializer) Option {
	return func(o *options) { o.alphaInit = ini }
}

// WithAlphaAxes sets the axes that carry independent alpha values in
// PRelu. Negative axes count from the end. Defaults to the last axis.
func WithAlphaAxes(axes ...int) Option {
	return func(o *options) { o.alphaAxes = axes }
}

// WithMomentum sets the running-statistics update rate for BatchNorm.
func WithMomentum(momentum float64) Option {
	return func(o *options) { o.momentum = momentum; o.momentumOK = true }
}

// WithEpsilon sets the numerical stability constant for BatchNorm.
func WithEpsilon(epsilon float64) Option {
	return func(o *options) { o.epsilon = epsilon; o.epsilonOK = true }
}
