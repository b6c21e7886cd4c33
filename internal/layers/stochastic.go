package layers

import (
	"fmt"
	"math/rand"

	"github.com/strata-ml/strata/internal/tensor"
)

// Dropout randomly zeroes a fraction of its input during training and
// rescales the survivors by 1/(1-proba) so activations keep their
// expected magnitude (inverted dropout). Outside of training it is the
// identity.
type Dropout struct {
	base
	proba float64
}

// NewDropout creates a dropout layer. proba is the fraction of values to
// drop and must be in [0, 1).
func NewDropout(proba float64, opts ...Option) *Dropout {
	if proba < 0 || proba >= 1 {
		panic(fmt.Sprintf("layers: Dropout proba must be in [0, 1), got %g", proba))
	}
	o := buildOptions(opts)
	return &Dropout{base: newBase("dropout", o.name), proba: proba}
}

// Proba returns the drop fraction.
func (l *Dropout) Proba() float64 {
	return l.proba
}

// OutputShape passes the input shape through unchanged.
func (l *Dropout) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return in, nil
}

// Output applies dropout in training mode and is the identity otherwise.
func (l *Dropout) Output(inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	x, err := single(l.name, inputs)
	if err != nil {
		return nil, err
	}
	if !l.training || l.proba == 0 {
		return x, nil
	}

	keep := 1 - l.proba
	out := x.Clone()
	data := out.Data()
	for i := range data {
		//nolint:gosec // math/rand is fine for dropout masks
		if rand.Float64() < l.proba {
			data[i] = 0
		} else {
			data[i] /= keep
		}
	}
	return out, nil
}

// String renders the layer, e.g. "Dropout(proba=0.5)".
func (l *Dropout) String() string {
	return fmt.Sprintf("Dropout(proba=%g)", l.proba)
}

// GaussianNoise adds gaussian noise to its input during training. Outside
// of training it is the identity.
type GaussianNoise struct {
	base
	mean float64
	std  float64
}

// NewGaussianNoise creates a noise layer with the given mean and standard
// deviation. The standard deviation must be positive.
func NewGaussianNoise(mean, std float64, opts ...Option) *GaussianNoise {
	if std <= 0 {
		panic(fmt.Sprintf("layers: GaussianNoise std must be > 0, got %g", std))
	}
	o := buildOptions(opts)
	return &GaussianNoise{base: newBase("gaussian-noise", o.name), mean: mean, std: std}
}

// OutputShape passes the input shape through unchanged.
func (l *GaussianNoise) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return in, nil
}

// Output adds noise in training mode and is the identity otherwise.
func (l *GaussianNoise) Output(inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	x, err := single(l.name, inputs)
	if err != nil {
		return nil, err
	}
	if !l.training {
		return x, nil
	}

	out := x.Clone()
	data := out.Data()
	for i := range data {
		//nolint:gosec // math/rand is fine for augmentation noise
		data[i] += rand.NormFloat64()*l.std + l.mean
	}
	return out, nil
}

// String renders the layer, e.g. "GaussianNoise(mean=0, std=1)".
func (l *GaussianNoise) String() string {
	return fmt.Sprintf("GaussianNoise(mean=%g, std=%g)", l.mean, l.std)
}
