package layers

import (
	"fmt"
	"math"

	"github.com/strata-ml/strata/internal/inits"
	"github.com/strata-ml/strata/internal/tensor"
)

// BatchNorm normalizes rank-2 activations per feature.
//
// During training each batch is normalized with its own mean and
// variance, and exponential running statistics are updated. Outside of
// training the stored running statistics are used, so a freshly
// initialized layer behaves as the identity (running mean 0, variance 1).
//
// Variables: gamma and beta are trainable scale and shift; running-mean
// and running-variance are non-trainable.
type BatchNorm struct {
	base
	momentum float64
	epsilon  float64

	gammaInit inits.Initializer
	betaInit  inits.Initializer

	gamma       *Variable
	beta        *Variable
	runningMean *Variable
	runningVar  *Variable
}

// NewBatchNorm creates a batch normalization layer. Defaults: momentum
// 0.1, epsilon 1e-5, gamma ones, beta zeros. Override gamma and beta
// with WithWeight and WithBias.
func NewBatchNorm(opts ...Option) *BatchNorm {
	o := buildOptions(opts)

	momentum := 0.1
	if o.momentumOK {
		momentum = o.momentum
	}
	if momentum <= 0 || momentum > 1 {
		panic(fmt.Sprintf("layers: BatchNorm momentum must be in (0, 1], got %g", momentum))
	}
	epsilon := 1e-5
	if o.epsilonOK {
		epsilon = o.epsilon
	}

	gamma := o.weight
	if gamma == nil {
		gamma = inits.Constant{Value: 1}
	}
	beta := o.bias
	if beta == nil {
		beta = inits.Constant{}
	}

	return &BatchNorm{
		base:      newBase("batch-norm", o.name),
		momentum:  momentum,
		epsilon:   epsilon,
		gammaInit: gamma,
		betaInit:  beta,
	}
}

// Gamma returns the scale variable, or nil before initialization.
func (l *BatchNorm) Gamma() *Variable {
	return l.gamma
}

// Beta returns the shift variable, or nil before initialization.
func (l *BatchNorm) Beta() *Variable {
	return l.beta
}

// OutputShape validates that the input is rank-2 and passes it through.
func (l *BatchNorm) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if in == nil {
		return nil, nil
	}
	if in.Rank() != 2 {
		return nil, &ConnectionError{
			To:      l.name,
			Details: fmt.Sprintf("input shape expected to have 2 dimensions, got %d (shape %s)", in.Rank(), in),
		}
	}
	return in, nil
}

func (l *BatchNorm) initialize(in tensor.Shape) error {
	l.resetParameters()

	if _, err := l.OutputShape(in); err != nil {
		return err
	}
	if in == nil {
		return &ConnectionError{
			To:      l.name,
			Details: "cannot create parameters: input shape unknown",
		}
	}
	features := in[1]
	if features == tensor.Unknown {
		return &ConnectionError{
			To:      l.name,
			Details: fmt.Sprintf("cannot create parameters: feature dimension unknown in %s", in),
		}
	}

	shape := tensor.Shape{features}
	var err error
	if l.gamma, err = l.addParameter("gamma", l.gammaInit, shape, true); err != nil {
		return fmt.Errorf("layer %q: %w", l.name, err)
	}
	if l.beta, err = l.addParameter("beta", l.betaInit, shape, true); err != nil {
		return fmt.Errorf("layer %q: %w", l.name, err)
	}
	if l.runningMean, err = l.addParameter("running-mean", inits.Constant{}, shape, false); err != nil {
		return fmt.Errorf("layer %q: %w", l.name, err)
	}
	if l.runningVar, err = l.addParameter("running-variance", inits.Constant{Value: 1}, shape, false); err != nil {
		return fmt.Errorf("layer %q: %w", l.name, err)
	}
	return nil
}

// Output normalizes the batch. Training mode uses batch statistics and
// updates the running ones; inference mode uses the running statistics.
func (l *BatchNorm) Output(inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	x, err := single(l.name, inputs)
	if err != nil {
		return nil, err
	}
	if l.gamma == nil {
		return nil, fmt.Errorf("layer %q: not initialized", l.name)
	}

	var mean, variance *tensor.Tensor
	if l.training {
		if mean, err = x.Mean(); err != nil {
			return nil, fmt.Errorf("layer %q: %w", l.name, err)
		}
		if variance, err = x.Variance(); err != nil {
			return nil, fmt.Errorf("layer %q: %w", l.name, err)
		}
		l.updateRunning(l.runningMean, mean)
		l.updateRunning(l.runningVar, variance)
	} else {
		mean = l.runningMean.Value()
		variance = l.runningVar.Value()
	}

	centered, err := x.Sub(mean)
	if err != nil {
		return nil, fmt.Errorf("layer %q: %w", l.name, err)
	}

	invStd := variance.Apply(func(v float64) float64 {
		return 1 / math.Sqrt(v+l.epsilon)
	})
	normalized, err := centered.Mul(invStd)
	if err != nil {
		return nil, fmt.Errorf("layer %q: %w", l.name, err)
	}

	scaled, err := normalized.Mul(l.gamma.Value())
	if err != nil {
		return nil, fmt.Errorf("layer %q: %w", l.name, err)
	}
	out, err := scaled.Add(l.beta.Value())
	if err != nil {
		return nil, fmt.Errorf("layer %q: %w", l.name, err)
	}
	return out, nil
}

func (l *BatchNorm) updateRunning(running *Variable, batch *tensor.Tensor) {
	data := running.Value().Data()
	update := batch.Data()
	for i := range data {
		data[i] = (1-l.momentum)*data[i] + l.momentum*update[i]
	}
}

// String renders the layer, e.g. "BatchNorm()".
func (l *BatchNorm) String() string {
	return "BatchNorm()"
}
