// Copyright 2026 Strata ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layers provides the public API for building layer graphs.
//
// Networks are composed from layers with Join and Parallel, propagate
// shapes through the graph, and evaluate in topological order:
//
//	network, err := layers.Join(
//	    layers.NewInput(784),
//	    layers.NewRelu(500),
//	    layers.NewSoftmax(10),
//	)
//	...
//	out, err := network.Predict(x)
package layers

import (
	"github.com/strata-ml/strata/internal/inits"
	"github.com/strata-ml/strata/internal/layers"
)

// Layer is a single node in a network graph.
type Layer = layers.Layer

// Network is a directed acyclic graph of layers.
type Network = layers.Network

// Variable is a named parameter slot owned by a layer.
type Variable = layers.Variable

// ConnectionError reports why two layers cannot be wired together.
type ConnectionError = layers.ConnectionError

// Common errors.
var (
	ErrLayerConnection = layers.ErrLayerConnection
	ErrUnknownLayer    = layers.ErrUnknownLayer
	ErrInvalidInput    = layers.ErrInvalidInput
)

// NewVariable creates a variable holding the given tensor.
var NewVariable = layers.NewVariable

// VariableKey builds the graph-scoped key for a layer variable, e.g.
// "layer:linear-1/weight".
var VariableKey = layers.VariableKey

// Graph construction

// NewNetwork creates an empty network for explicit Connect calls.
func NewNetwork() *Network {
	return layers.NewNetwork()
}

// Join composes elements left to right into one network. Elements may be
// layers, networks, or []Layer chains.
func Join(elements ...any) (*Network, error) {
	return layers.Join(elements...)
}

// Parallel places branches side by side without connecting them.
func Parallel(branches ...any) (*Network, error) {
	return layers.Parallel(branches...)
}

// Layer types

// Input declares a network entry point.
type Input = layers.Input

// Activation is the dense-plus-activation layer family.
type Activation = layers.Activation

// Dropout randomly zeroes values during training.
type Dropout = layers.Dropout

// GaussianNoise adds gaussian noise during training.
type GaussianNoise = layers.GaussianNoise

// Embedding maps discrete indices to dense vectors.
type Embedding = layers.Embedding

// BatchNorm normalizes activations per feature.
type BatchNorm = layers.BatchNorm

// Reshape rearranges the non-batch dimensions of its input.
type Reshape = layers.Reshape

// Concatenate merges branches along an axis.
type Concatenate = layers.Concatenate

// Elementwise merges branches value for value.
type Elementwise = layers.Elementwise

// Identity passes its input through unchanged.
type Identity = layers.Identity

// MergeOp selects how Elementwise combines its inputs.
type MergeOp = layers.MergeOp

// Supported elementwise merge operations.
const (
	OpAdd      = layers.OpAdd
	OpMultiply = layers.OpMultiply
	OpMean     = layers.OpMean
)

// Constructors

var (
	// NewInput creates an input layer for per-sample feature dimensions.
	NewInput = layers.NewInput
	// NewInputShape creates an input layer for an explicit shape, batch
	// axis included.
	NewInputShape = layers.NewInputShape

	// NewLinear creates a dense layer with no activation.
	NewLinear = layers.NewLinear
	// NewSigmoid creates a dense layer with the sigmoid activation.
	NewSigmoid = layers.NewSigmoid
	// NewHardSigmoid creates a dense layer with a piecewise-linear
	// sigmoid approximation.
	NewHardSigmoid = layers.NewHardSigmoid
	// NewTanh creates a dense layer with the tanh activation.
	NewTanh = layers.NewTanh
	// NewRelu creates a dense layer with the rectifier activation.
	NewRelu = layers.NewRelu
	// NewLeakyRelu creates a dense layer with a leaky rectifier.
	NewLeakyRelu = layers.NewLeakyRelu
	// NewSoftplus creates a dense layer with the softplus activation.
	NewSoftplus = layers.NewSoftplus
	// NewSoftmax creates a dense layer with softmax normalization.
	NewSoftmax = layers.NewSoftmax
	// NewElu creates a dense layer with the exponential linear unit.
	NewElu = layers.NewElu
	// NewPRelu creates a dense layer with a trainable negative slope.
	NewPRelu = layers.NewPRelu

	// NewDropout creates a dropout layer.
	NewDropout = layers.NewDropout
	// NewGaussianNoise creates a noise layer.
	NewGaussianNoise = layers.NewGaussianNoise
	// NewEmbedding creates an embedding lookup layer.
	NewEmbedding = layers.NewEmbedding
	// NewBatchNorm creates a batch normalization layer.
	NewBatchNorm = layers.NewBatchNorm
	// NewReshape creates a reshape layer; no arguments means flatten.
	NewReshape = layers.NewReshape

	// NewConcatenate creates a concatenation merge layer.
	NewConcatenate = layers.NewConcatenate
	// NewElementwise creates an elementwise merge layer.
	NewElementwise = layers.NewElementwise
	// NewIdentity creates an identity layer.
	NewIdentity = layers.NewIdentity
)

// Options

// Option configures optional layer settings at construction time.
type Option = layers.Option

// WithName gives the layer an explicit name instead of a generated one.
func WithName(name string) Option {
	return layers.WithName(name)
}

// WithWeight overrides the weight initializer.
func WithWeight(ini inits.Initializer) Option {
	return layers.WithWeight(ini)
}

// WithBias overrides the bias initializer.
func WithBias(ini inits.Initializer) Option {
	return layers.WithBias(ini)
}

// WithoutBias removes the bias term from a dense layer.
func WithoutBias() Option {
	return layers.WithoutBias()
}

// WithAlpha sets the negative-slope coefficient for Relu.
func WithAlpha(alpha float64) Option {
	return layers.WithAlpha(alpha)
}

// WithAlphaInit overrides the alpha initializer for PRelu.
func WithAlphaInit(ini inits.Initializer) Option {
	return layers.WithAlphaInit(ini)
}

// WithAlphaAxes sets the axes that carry independent alpha values in
// PRelu.
func WithAlphaAxes(axes ...int) Option {
	return layers.WithAlphaAxes(axes...)
}

// WithMomentum sets the running-statistics update rate for BatchNorm.
func WithMomentum(momentum float64) Option {
	return layers.WithMomentum(momentum)
}

// WithEpsilon sets the numerical stability constant for BatchNorm.
func WithEpsilon(epsilon float64) Option {
	return layers.WithEpsilon(epsilon)
}
