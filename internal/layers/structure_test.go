package layers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkStringChain(t *testing.T) {
	net, err := Join(NewInput(10), NewRelu(20), NewSoftmax(4))
	require.NoError(t, err)
	assert.Equal(t, "Input(10) > Relu(20) > Softmax(4)", net.String())
}

func TestNetworkStringBranching(t *testing.T) {
	branches, err := Parallel(NewRelu(16), NewRelu(8))
	require.NoError(t, err)
	net, err := Join(NewInput(10), branches, NewConcatenate(-1))
	require.NoError(t, err)

	s := net.String()
	assert.True(t, strings.HasPrefix(s, "Network("), s)
	assert.Contains(t, s, "4 layers")
}

func TestNetworkStringEmpty(t *testing.T) {
	assert.Equal(t, "Network()", NewNetwork().String())
}

func TestStructureTable(t *testing.T) {
	net, err := Join(NewInput(10), NewRelu(20), NewSoftmax(4))
	require.NoError(t, err)
	require.NoError(t, net.Initialize())

	s, err := net.Structure()
	require.NoError(t, err)

	assert.Contains(t, s, "relu-1")
	assert.Contains(t, s, "Relu(20)")
	assert.Contains(t, s, "(?, 20)")
	assert.Contains(t, s, "Total parameters: 304")
}

func TestStructureBeforeInitialization(t *testing.T) {
	net, err := Join(NewInput(10), NewRelu(20))
	require.NoError(t, err)

	s, err := net.Structure()
	require.NoError(t, err)
	assert.Contains(t, s, "Total parameters: 0")
}

func TestDOT(t *testing.T) {
	net, err := Join(NewInput(10), NewRelu(20), NewSoftmax(4))
	require.NoError(t, err)

	s, err := net.DOT()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(s, "digraph network {"), s)
	assert.Contains(t, s, "input-1")
	assert.Contains(t, s, "relu-1")
	assert.Contains(t, s, "softmax-1")
	assert.Contains(t, s, "->")
	assert.Contains(t, s, "(?, 20)")
}
