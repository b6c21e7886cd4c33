// Copyright 2026 Strata ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package associative provides the public API for competitive networks
// trained without gradients.
//
//	som := associative.NewKohonen(2, 3, associative.WithStep(0.5))
//	deltas, err := som.Train(data, 100)
//	clusters, err := som.Predict(data)
package associative

import (
	"github.com/strata-ml/strata/internal/associative"
)

// Kohonen is a self-organizing winner-take-all network.
type Kohonen = associative.Kohonen

// KohonenOption configures optional Kohonen settings.
type KohonenOption = associative.KohonenOption

// ErrDimensionMismatch reports input data that does not match the
// network's input width.
var ErrDimensionMismatch = associative.ErrDimensionMismatch

// NewKohonen creates a Kohonen network mapping inputs features onto
// outputs competing neurons.
var NewKohonen = associative.NewKohonen

// WithStep sets the learning rate.
var WithStep = associative.WithStep

// WithWeightInit overrides the weight initializer.
var WithWeightInit = associative.WithWeightInit
