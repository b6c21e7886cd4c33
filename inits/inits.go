// Copyright 2026 Strata ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package inits provides the public API for parameter initializers.
//
// Initializers sample tensors of a requested shape and are attached to
// layers through options:
//
//	layers.NewRelu(20, layers.WithWeight(inits.XavierNormal{}))
//
// Call Seed for reproducible sampling.
package inits

import (
	"github.com/strata-ml/strata/internal/inits"
)

// Initializer samples a tensor of the requested shape.
type Initializer = inits.Initializer

// Seed makes subsequent sampling reproducible.
func Seed(seed uint64) {
	inits.Seed(seed)
}

// Constant fills tensors with a single value.
type Constant = inits.Constant

// Uniform samples from [Low, High).
type Uniform = inits.Uniform

// Normal samples from a gaussian with the given mean and deviation.
type Normal = inits.Normal

// HeNormal samples from a gaussian scaled by the fan-in.
type HeNormal = inits.HeNormal

// HeUniform samples uniformly with a fan-in dependent bound.
type HeUniform = inits.HeUniform

// XavierNormal samples from a gaussian scaled by fan-in and fan-out.
type XavierNormal = inits.XavierNormal

// XavierUniform samples uniformly with a fan-in and fan-out dependent
// bound.
type XavierUniform = inits.XavierUniform

// FromTensor reuses an existing tensor as the initial value.
type FromTensor = inits.FromTensor
