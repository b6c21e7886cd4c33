package layers

import (
	"fmt"

	"github.com/strata-ml/strata/internal/tensor"
)

// Variable is a named parameter slot owned by a layer: a weight matrix, a
// bias vector, or a non-trainable running statistic.
//
// Variables come into existence when the network is initialized, once
// input shapes are known. Before that, a layer's Parameters() is empty.
type Variable struct {
	name      string
	value     *tensor.Tensor
	trainable bool
}

// NewVariable creates a variable holding the given tensor.
func NewVariable(name string, value *tensor.Tensor, trainable bool) *Variable {
	return &Variable{name: name, value: value, trainable: trainable}
}

// Name returns the parameter name within its layer (e.g. "weight").
func (v *Variable) Name() string {
	return v.name
}

// Value returns the parameter tensor.
func (v *Variable) Value() *tensor.Tensor {
	return v.value
}

// Trainable reports whether the variable takes part in training.
func (v *Variable) Trainable() bool {
	return v.trainable
}

// NumElements returns the number of scalar parameters stored.
func (v *Variable) NumElements() int {
	return v.value.NumElements()
}

// SetValue replaces the parameter tensor. The new tensor must have the
// same shape as the current one.
func (v *Variable) SetValue(t *tensor.Tensor) error {
	if !t.Shape().Equal(v.value.Shape()) {
		return fmt.Errorf("variable %q: shape mismatch: have %s, got %s", v.name, v.value.Shape(), t.Shape())
	}
	v.value = t
	return nil
}

// VariableKey builds the graph-scoped key for a layer variable, e.g.
// "layer:linear-1/weight".
func VariableKey(l Layer, v *Variable) string {
	return fmt.Sprintf("layer:%s/%s", l.Name(), v.Name())
}
