// Package inits provides parameter initialization strategies for layer
// weights and biases.
//
// Every initializer samples a tensor for a requested shape. Fan-in and
// fan-out are derived from the shape: the first dimension is treated as
// fan-in and the last as fan-out, which matches the (in, out) layout of
// dense weight matrices.
//
// Random draws go through gonum's distuv distributions and share a single
// package-level source, so Seed makes an entire initialization pass
// reproducible.
package inits

import (
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/strata-ml/strata/internal/tensor"
)

// Initializer samples parameter values for a given shape.
type Initializer interface {
	// Sample creates a tensor of the given fully defined shape.
	Sample(shape tensor.Shape) (*tensor.Tensor, error)

	// String describes the initializer, e.g. "HeNormal(gain=1.0)".
	String() string
}

var (
	mu  sync.Mutex
	src = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
)

// Seed reseeds the shared random source. Use it in tests and experiments
// that need reproducible parameter draws.
func Seed(seed uint64) {
	mu.Lock()
	defer mu.Unlock()
	src = rand.New(rand.NewSource(seed))
}

func sample(shape tensor.Shape, draw func(r *rand.Rand) float64) (*tensor.Tensor, error) {
	t, err := tensor.New(shape)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()

	data := t.Data()
	for i := range data {
		data[i] = draw(src)
	}
	return t, nil
}

func fans(shape tensor.Shape) (fanIn, fanOut int) {
	if shape.Rank() == 0 {
		return 1, 1
	}
	return shape[0], shape[len(shape)-1]
}

// Constant fills every element with the same value.
type Constant struct {
	Value float64
}

// Sample implements Initializer.
func (c Constant) Sample(shape tensor.Shape) (*tensor.Tensor, error) {
	return tensor.Full(shape, c.Value)
}

func (c Constant) String() string {
	return fmt.Sprintf("Constant(%g)", c.Value)
}

// Uniform samples from U(Low, High).
type Uniform struct {
	Low, High float64
}

// Sample implements Initializer.
func (u Uniform) Sample(shape tensor.Shape) (*tensor.Tensor, error) {
	return sample(shape, func(r *rand.Rand) float64 {
		return distuv.Uniform{Min: u.Low, Max: u.High, Src: r}.Rand()
	})
}

func (u Uniform) String() string {
	return fmt.Sprintf("Uniform(%g, %g)", u.Low, u.High)
}

// Normal samples from N(Mean, Std).
type Normal struct {
	Mean, Std float64
}

// Sample implements Initializer.
func (n Normal) Sample(shape tensor.Shape) (*tensor.Tensor, error) {
	return sample(shape, func(r *rand.Rand) float64 {
		return distuv.Normal{Mu: n.Mean, Sigma: n.Std, Src: r}.Rand()
	})
}

func (n Normal) String() string {
	return fmt.Sprintf("Normal(mean=%g, std=%g)", n.Mean, n.Std)
}

// HeNormal samples from N(0, sqrt(gain / fan_in)).
//
// Suited to layers followed by rectifier activations; use Gain 2 for ReLU
// family layers. A zero Gain means 1.
type HeNormal struct {
	Gain float64
}

// Sample implements Initializer.
func (h HeNormal) Sample(shape tensor.Shape) (*tensor.Tensor, error) {
	fanIn, _ := fans(shape)
	std := math.Sqrt(h.gain() / float64(fanIn))
	return Normal{Std: std}.Sample(shape)
}

func (h HeNormal) gain() float64 {
	if h.Gain == 0 {
		return 1
	}
	return h.Gain
}

func (h HeNormal) String() string {
	return fmt.Sprintf("HeNormal(gain=%.1f)", h.gain())
}

// HeUniform samples from U(-b, b) with b = sqrt(3 * gain / fan_in).
type HeUniform struct {
	Gain float64
}

// Sample implements Initializer.
func (h HeUniform) Sample(shape tensor.Shape) (*tensor.Tensor, error) {
	fanIn, _ := fans(shape)
	bound := math.Sqrt(3 * h.gain() / float64(fanIn))
	return Uniform{Low: -bound, High: bound}.Sample(shape)
}

func (h HeUniform) gain() float64 {
	if h.Gain == 0 {
		return 1
	}
	return h.Gain
}

func (h HeUniform) String() string {
	return fmt.Sprintf("HeUniform(gain=%.1f)", h.gain())
}

// XavierNormal samples from N(0, sqrt(2 / (fan_in + fan_out))).
type XavierNormal struct{}

// Sample implements Initializer.
func (XavierNormal) Sample(shape tensor.Shape) (*tensor.Tensor, error) {
	fanIn, fanOut := fans(shape)
	std := math.Sqrt(2 / float64(fanIn+fanOut))
	return Normal{Std: std}.Sample(shape)
}

func (XavierNormal) String() string {
	return "XavierNormal()"
}

// XavierUniform samples from U(-b, b) with b = sqrt(6 / (fan_in + fan_out)).
type XavierUniform struct{}

// Sample implements Initializer.
func (XavierUniform) Sample(shape tensor.Shape) (*tensor.Tensor, error) {
	fanIn, fanOut := fans(shape)
	bound := math.Sqrt(6 / float64(fanIn+fanOut))
	return Uniform{Low: -bound, High: bound}.Sample(shape)
}

func (XavierUniform) String() string {
	return "XavierUniform()"
}

// FromTensor reuses an existing tensor as the initial value. The shape
// requested at initialization time must match the tensor's shape. Useful
// for loading pre-trained weights or pinning values in tests.
type FromTensor struct {
	Tensor *tensor.Tensor
}

// Sample implements Initializer.
func (f FromTensor) Sample(shape tensor.Shape) (*tensor.Tensor, error) {
	if !f.Tensor.Shape().Equal(shape) {
		return nil, fmt.Errorf("initializer tensor has shape %s, layer expects %s", f.Tensor.Shape(), shape)
	}
	return f.Tensor.Clone(), nil
}

func (f FromTensor) String() string {
	return "FromTensor" + f.Tensor.Shape().String()
}

