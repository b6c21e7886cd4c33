// Package associative implements competitive networks trained without
// gradients. Kohonen is a winner-take-all self-organizing layer used for
// clustering.
package associative

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/strata-ml/strata/internal/inits"
	"github.com/strata-ml/strata/internal/tensor"
)

// ErrDimensionMismatch reports input data that does not match the
// network's input width.
var ErrDimensionMismatch = errors.New("input dimension mismatch")

// Kohonen is a self-organizing winner-take-all network. Each of the
// output neurons holds a weight column; an input activates the neuron
// whose weights align with it best, and training pulls the winning
// column towards the input.
//
//	som := associative.NewKohonen(2, 3)
//	deltas, err := som.Train(data, 100)
//	clusters := som.Predict(data) // one-hot rows
type Kohonen struct {
	inputs  int
	outputs int
	step    float64
	weight  *mat.Dense // inputs x outputs
}

// KohonenOption configures optional Kohonen settings.
type KohonenOption func(*kohonenOptions)

type kohonenOptions struct {
	step   float64
	weight inits.Initializer
}

// WithStep sets the learning rate. Defaults to 0.1.
func WithStep(step float64) KohonenOption {
	return func(o *kohonenOptions) { o.step = step }
}

// WithWeightInit overrides the weight initializer. Defaults to a
// standard normal.
func WithWeightInit(ini inits.Initializer) KohonenOption {
	return func(o *kohonenOptions) { o.weight = ini }
}

// NewKohonen creates a Kohonen network mapping inputs features onto
// outputs competing neurons.
func NewKohonen(inputs, outputs int, opts ...KohonenOption) *Kohonen {
	if inputs < 1 || outputs < 1 {
		panic(fmt.Sprintf("associative: Kohonen dimensions must be >= 1, got (%d, %d)", inputs, outputs))
	}

	o := kohonenOptions{step: 0.1, weight: inits.Normal{Std: 1}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.step <= 0 {
		panic(fmt.Sprintf("associative: Kohonen step must be > 0, got %g", o.step))
	}

	sample, err := o.weight.Sample(tensor.Shape{inputs, outputs})
	if err != nil {
		panic(fmt.Sprintf("associative: sample Kohonen weights: %v", err))
	}
	weight, err := sample.Dense()
	if err != nil {
		panic(fmt.Sprintf("associative: sample Kohonen weights: %v", err))
	}

	return &Kohonen{
		inputs:  inputs,
		outputs: outputs,
		step:    o.step,
		weight:  weight,
	}
}

// Weights returns the weight matrix (inputs x outputs). Mutating it
// changes the network.
func (k *Kohonen) Weights() *mat.Dense {
	return k.weight
}

// winner returns the index of the neuron with the strongest response.
func (k *Kohonen) winner(row []float64) int {
	best, bestScore := 0, math.Inf(-1)
	for j := 0; j < k.outputs; j++ {
		score := 0.0
		for i, v := range row {
			score += v * k.weight.At(i, j)
		}
		if score > bestScore {
			best, bestScore = j, score
		}
	}
	return best
}

// Predict assigns each input row to a neuron, returned as one-hot rows.
func (k *Kohonen) Predict(x mat.Matrix) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != k.inputs {
		return nil, fmt.Errorf("%w: got %d features, want %d", ErrDimensionMismatch, cols, k.inputs)
	}

	out := mat.NewDense(rows, k.outputs, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, k.winner(mat.Row(nil, i, x)), 1)
	}
	return out, nil
}

// TrainEpoch performs one winner-take-all pass over the data and reports
// the mean absolute weight update.
func (k *Kohonen) TrainEpoch(x mat.Matrix) (float64, error) {
	rows, cols := x.Dims()
	if cols != k.inputs {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrDimensionMismatch, cols, k.inputs)
	}
	if rows == 0 {
		return 0, nil
	}

	total := 0.0
	for i := 0; i < rows; i++ {
		row := mat.Row(nil, i, x)
		winner := k.winner(row)
		for j, v := range row {
			w := k.weight.At(j, winner)
			delta := k.step * (v - w)
			k.weight.Set(j, winner, w+delta)
			total += math.Abs(delta)
		}
	}
	return total / float64(rows*k.inputs), nil
}

// Train runs the given number of epochs and returns the mean absolute
// weight update of each one.
func (k *Kohonen) Train(x mat.Matrix, epochs int) ([]float64, error) {
	deltas := make([]float64, 0, epochs)
	for e := 0; e < epochs; e++ {
		delta, err := k.TrainEpoch(x)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, delta)
	}
	return deltas, nil
}

// String renders the network, e.g. "Kohonen(2, 3)".
func (k *Kohonen) String() string {
	return fmt.Sprintf("Kohonen(%d, %d)", k.inputs, k.outputs)
}
