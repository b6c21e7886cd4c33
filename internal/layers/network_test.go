package layers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ml/strata/internal/inits"
	"github.com/strata-ml/strata/internal/tensor"
)

func mustTensor(t *testing.T, data []float64, dims ...int) *tensor.Tensor {
	t.Helper()
	tt, err := tensor.FromSlice(data, tensor.Shape(dims))
	require.NoError(t, err)
	return tt
}

func TestJoinChain(t *testing.T) {
	net, err := Join(NewInput(10), NewRelu(20), NewSoftmax(4))
	require.NoError(t, err)

	in, err := net.InputShape()
	require.NoError(t, err)
	assert.True(t, in.Equal(tensor.Shape{tensor.Unknown, 10}))

	out, err := net.OutputShape()
	require.NoError(t, err)
	assert.True(t, out.Equal(tensor.Shape{tensor.Unknown, 4}))

	names := make([]string, 0, 3)
	for _, l := range net.Layers() {
		names = append(names, l.Name())
	}
	assert.Equal(t, []string{"input-1", "relu-1", "softmax-1"}, names)
}

func TestAutoNamingCountsPerKind(t *testing.T) {
	net, err := Join(NewInput(10), NewRelu(20), NewRelu(30), NewRelu(5, WithName("head")))
	require.NoError(t, err)

	names := make([]string, 0, 4)
	for _, l := range net.Layers() {
		names = append(names, l.Name())
	}
	assert.Equal(t, []string{"input-1", "relu-1", "relu-2", "head"}, names)
}

func TestDuplicateExplicitNamesRejected(t *testing.T) {
	_, err := Join(NewInput(2), NewLinear(2, WithName("x")), NewLinear(2, WithName("x")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLayerConnection)
}

func TestConnectRejectsSelfLoopsAndCycles(t *testing.T) {
	a := NewIdentity(WithName("a"))
	b := NewIdentity(WithName("b"))
	c := NewIdentity(WithName("c"))

	net := NewNetwork()
	require.Error(t, net.Connect(a, a))

	require.NoError(t, net.Connect(a, b))
	require.NoError(t, net.Connect(b, c))

	err := net.Connect(c, a)
	require.Error(t, err)
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "c", cerr.From)
	assert.Equal(t, "a", cerr.To)
}

func TestFanInRequiresMergeLayer(t *testing.T) {
	net := NewNetwork()
	x := NewInput(2)
	y := NewInput(2)
	dense := NewLinear(2)

	require.NoError(t, net.Connect(x, dense))
	err := net.Connect(y, dense)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLayerConnection)

	merge := NewNetwork()
	sum := NewElementwise(OpAdd)
	require.NoError(t, merge.Connect(x, sum))
	require.NoError(t, merge.Connect(y, sum))
}

func TestConnectIsIdempotent(t *testing.T) {
	net := NewNetwork()
	a := NewInput(2)
	b := NewIdentity()

	require.NoError(t, net.Connect(a, b))
	require.NoError(t, net.Connect(a, b))
	assert.Len(t, net.preds[b], 1)
}

func TestLazyVariableCreation(t *testing.T) {
	relu := NewRelu(20)
	assert.Empty(t, relu.Parameters())

	net, err := Join(NewInput(10), relu)
	require.NoError(t, err)
	assert.Empty(t, relu.Parameters())
	assert.Equal(t, 0, net.CountParameters())

	require.NoError(t, net.Initialize())
	require.Len(t, relu.Parameters(), 2)
	assert.True(t, relu.Weight().Value().Shape().Equal(tensor.Shape{10, 20}))
	assert.True(t, relu.Bias().Value().Shape().Equal(tensor.Shape{20}))
	assert.Equal(t, 10*20+20, net.CountParameters())

	// Idempotent: a second Initialize must not resample.
	weight := relu.Weight()
	require.NoError(t, net.Initialize())
	assert.Same(t, weight, relu.Weight())
}

func TestCountParametersAndVariables(t *testing.T) {
	net, err := Join(NewInput(10), NewRelu(20), NewSoftmax(4))
	require.NoError(t, err)
	require.NoError(t, net.Initialize())

	assert.Equal(t, 10*20+20+20*4+4, net.CountParameters())

	vars := net.Variables()
	require.Len(t, vars, 4)
	for _, key := range []string{
		"layer:relu-1/weight",
		"layer:relu-1/bias",
		"layer:softmax-1/weight",
		"layer:softmax-1/bias",
	} {
		assert.Contains(t, vars, key)
	}
	assert.True(t, vars["layer:relu-1/weight"].Trainable())
}

func TestSharedLayerKeepsParameters(t *testing.T) {
	dense := NewLinear(4)

	net1, err := Join(NewInput(3), dense)
	require.NoError(t, err)
	require.NoError(t, net1.Initialize())
	weight := dense.Weight()

	net2, err := Join(NewInput(3), dense, NewSoftmax(2))
	require.NoError(t, err)
	require.NoError(t, net2.Initialize())
	assert.Same(t, weight, dense.Weight())
}

func TestNetworkOutput(t *testing.T) {
	weight := mustTensor(t, []float64{1, 0, 0, 1}, 2, 2)
	bias := mustTensor(t, []float64{1, -1}, 2)

	net, err := Join(
		NewInput(2),
		NewLinear(2,
			WithWeight(inits.FromTensor{Tensor: weight}),
			WithBias(inits.FromTensor{Tensor: bias}),
		),
	)
	require.NoError(t, err)

	out, err := net.Output(mustTensor(t, []float64{1, 2}, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1}, out.Data())
}

func TestOutputRejectsWrongShape(t *testing.T) {
	net, err := Join(NewInput(10), NewRelu(4))
	require.NoError(t, err)

	_, err = net.Output(mustTensor(t, make([]float64, 6), 2, 3))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOutputRejectsWrongArity(t *testing.T) {
	net, err := Join(NewInput(3), NewIdentity())
	require.NoError(t, err)

	_, err = net.Output()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParallelConcat(t *testing.T) {
	branches, err := Parallel(NewRelu(16), NewRelu(8))
	require.NoError(t, err)

	net, err := Join(NewInput(10), branches, NewConcatenate(-1))
	require.NoError(t, err)

	out, err := net.OutputShape()
	require.NoError(t, err)
	assert.True(t, out.Equal(tensor.Shape{tensor.Unknown, 24}))

	x, err := tensor.Ones(tensor.Shape{3, 10})
	require.NoError(t, err)
	res, err := net.Output(x)
	require.NoError(t, err)
	assert.True(t, res.Shape().Equal(tensor.Shape{3, 24}))
}

func TestResidualConnection(t *testing.T) {
	branches, err := Parallel(NewIdentity(), NewIdentity())
	require.NoError(t, err)

	net, err := Join(NewInput(3), branches, NewElementwise(OpAdd))
	require.NoError(t, err)

	out, err := net.Output(mustTensor(t, []float64{1, 2, 3}, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6}, out.Data())
}

func TestMultiInputNetwork(t *testing.T) {
	a := NewInput(3)
	b := NewInput(3)
	sum := NewElementwise(OpAdd)

	net := NewNetwork()
	require.NoError(t, net.Connect(a, sum))
	require.NoError(t, net.Connect(b, sum))

	out, err := net.Output(
		mustTensor(t, []float64{1, 2, 3}, 1, 3),
		mustTensor(t, []float64{10, 20, 30}, 1, 3),
	)
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 22, 33}, out.Data())
}

func TestJoinAcceptsLayerSlices(t *testing.T) {
	net, err := Join([]Layer{NewInput(10), NewRelu(5)}, NewSoftmax(2))
	require.NoError(t, err)

	out, err := net.OutputShape()
	require.NoError(t, err)
	assert.True(t, out.Equal(tensor.Shape{tensor.Unknown, 2}))
}

func TestJoinLayerSliceNamesCountAgainstNetwork(t *testing.T) {
	net, err := Join(NewInput(10), NewRelu(20), []Layer{NewRelu(5), NewSoftmax(2)})
	require.NoError(t, err)

	names := make([]string, 0, 4)
	for _, l := range net.Layers() {
		names = append(names, l.Name())
	}
	assert.Equal(t, []string{"input-1", "relu-1", "relu-2", "softmax-1"}, names)
}

func TestJoinRejectsUnsupportedElement(t *testing.T) {
	_, err := Join(NewInput(2), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLayerConnection)
}

func TestJoinNetworks(t *testing.T) {
	head, err := Join(NewInput(10), NewRelu(20))
	require.NoError(t, err)
	tail, err := Join(NewTanh(5), NewSoftmax(2))
	require.NoError(t, err)

	net, err := Join(head, tail)
	require.NoError(t, err)
	assert.Len(t, net.Layers(), 4)

	out, err := net.OutputShape()
	require.NoError(t, err)
	assert.True(t, out.Equal(tensor.Shape{tensor.Unknown, 2}))
}

func TestJoinNetworksRejectsNameCollision(t *testing.T) {
	head, err := Join(NewInput(10), NewRelu(20))
	require.NoError(t, err)
	tail, err := Join(NewRelu(5), NewSoftmax(2))
	require.NoError(t, err)

	_, err = Join(head, tail)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLayerConnection)
	assert.Contains(t, err.Error(), `"relu-1"`)

	// Assigned names survive the failed join, so both networks still
	// resolve their own layer and variable keys stay stable.
	hl, err := head.Layer("relu-1")
	require.NoError(t, err)
	assert.Equal(t, "relu-1", hl.Name())
	tl, err := tail.Layer("relu-1")
	require.NoError(t, err)
	assert.Equal(t, "relu-1", tl.Name())
	assert.NotSame(t, hl, tl)
}

func TestPredictRestoresTrainingMode(t *testing.T) {
	x := mustTensor(t, []float64{1, 2, 3, 4}, 1, 4)

	net, err := Join(NewInput(4), NewDropout(0.9))
	require.NoError(t, err)
	net.SetTraining(true)

	out, err := net.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, x.Data(), out.Data())
	assert.True(t, net.Training())
}

func TestLayerLookup(t *testing.T) {
	net, err := Join(NewInput(10), NewRelu(20))
	require.NoError(t, err)

	l, err := net.Layer("relu-1")
	require.NoError(t, err)
	assert.Equal(t, "relu-1", l.Name())

	_, err = net.Layer("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLayer))
}

func TestShapePropagationThroughUnknownDims(t *testing.T) {
	// No input layer: the dense layer still knows its own output width.
	net, err := Join(NewRelu(20), NewSoftmax(4))
	require.NoError(t, err)

	out, err := net.OutputShape()
	require.NoError(t, err)
	assert.True(t, out.Equal(tensor.Shape{tensor.Unknown, 4}))

	// Initialization needs the input width and must fail without it.
	err = net.Initialize()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLayerConnection)
}

func TestInitializeReportsUnknownFeatureDim(t *testing.T) {
	net, err := Join(
		NewInputShape(tensor.Shape{tensor.Unknown, tensor.Unknown}),
		NewLinear(4),
	)
	require.NoError(t, err)

	err = net.Initialize()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLayerConnection)
}
