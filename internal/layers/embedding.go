package layers

import (
	"fmt"
	"math"

	"github.com/strata-ml/strata/internal/inits"
	"github.com/strata-ml/strata/internal/tensor"
)

// Embedding maps discrete indices to dense vectors through a trainable
// lookup table with shape [vocab, dim]. The input holds indices (as
// float64 values); the output appends the embedding dimension to the
// input shape:
//
//	(?, n) → (?, n, dim)
type Embedding struct {
	base
	vocab int
	dim   int

	weightInit inits.Initializer
	weight     *Variable
}

// NewEmbedding creates an embedding layer for a vocabulary of the given
// size and embedding dimension.
func NewEmbedding(vocab, dim int, opts ...Option) *Embedding {
	if vocab < 1 || dim < 1 {
		panic(fmt.Sprintf("layers: Embedding dimensions must be >= 1, got (%d, %d)", vocab, dim))
	}

	o := buildOptions(opts)
	weight := o.weight
	if weight == nil {
		weight = inits.HeNormal{}
	}
	return &Embedding{
		base:       newBase("embedding", o.name),
		vocab:      vocab,
		dim:        dim,
		weightInit: weight,
	}
}

// Weight returns the lookup table variable, or nil before initialization.
func (l *Embedding) Weight() *Variable {
	return l.weight
}

// OutputShape appends the embedding dimension to the input shape.
func (l *Embedding) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if in == nil {
		return nil, nil
	}
	out := in.Clone()
	return append(out, l.dim), nil
}

func (l *Embedding) initialize(tensor.Shape) error {
	l.resetParameters()

	var err error
	l.weight, err = l.addParameter("weight", l.weightInit, tensor.Shape{l.vocab, l.dim}, true)
	if err != nil {
		return fmt.Errorf("layer %q: %w", l.name, err)
	}
	return nil
}

// Output gathers one embedding row per input index.
func (l *Embedding) Output(inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	x, err := single(l.name, inputs)
	if err != nil {
		return nil, err
	}
	if l.weight == nil {
		return nil, fmt.Errorf("layer %q: not initialized", l.name)
	}

	outShape := append(x.Shape().Clone(), l.dim)
	out, err := tensor.New(outShape)
	if err != nil {
		return nil, fmt.Errorf("layer %q: %w", l.name, err)
	}

	table := l.weight.Value().Data()
	data := out.Data()
	for i, v := range x.Data() {
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: layer %q: index %v is not an integer",
				ErrInvalidInput, l.name, v)
		}
		idx := int(v)
		if idx < 0 || idx >= l.vocab {
			return nil, fmt.Errorf("%w: layer %q: index %d out of range [0, %d)",
				ErrInvalidInput, l.name, idx, l.vocab)
		}
		copy(data[i*l.dim:(i+1)*l.dim], table[idx*l.dim:(idx+1)*l.dim])
	}
	return out, nil
}

// String renders the layer, e.g. "Embedding(5, 2)".
func (l *Embedding) String() string {
	return fmt.Sprintf("Embedding(%d, %d)", l.vocab, l.dim)
}
