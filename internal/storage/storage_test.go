package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ml/strata/internal/inits"
	"github.com/strata-ml/strata/internal/layers"
	"github.com/strata-ml/strata/internal/tensor"
)

func testNetwork(t *testing.T) *layers.Network {
	t.Helper()
	net, err := layers.Join(layers.NewInput(3), layers.NewRelu(2))
	require.NoError(t, err)
	return net
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.stw")

	src := testNetwork(t)
	require.NoError(t, src.Initialize())
	require.NoError(t, Save(src, path))

	dst := testNetwork(t)
	require.NoError(t, Load(dst, path))

	srcVars := src.Variables()
	dstVars := dst.Variables()
	require.Len(t, dstVars, len(srcVars))
	for key, v := range srcVars {
		loaded, ok := dstVars[key]
		require.True(t, ok, key)
		assert.Equal(t, v.Value().Data(), loaded.Value().Data(), key)
		assert.True(t, v.Value().Shape().Equal(loaded.Value().Shape()), key)
	}
}

func TestOpenReadsHeaderAndTensors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.stw")

	net := testNetwork(t)
	require.NoError(t, Save(net, path))

	f, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, FormatVersion, f.Header.FormatVersion)
	assert.NotEmpty(t, f.Header.ModelID)
	assert.Equal(t, "Input(3) > Relu(2)", f.Header.Network)
	assert.Equal(t, []string{"layer:relu-1/weight", "layer:relu-1/bias"}, f.Names())
	assert.Equal(t, 3*2+2, f.CountParameters())

	weight, ok := f.Tensor("layer:relu-1/weight")
	require.True(t, ok)
	assert.True(t, weight.Shape().Equal(tensor.Shape{3, 2}))
}

func TestWriteDecode(t *testing.T) {
	a, err := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float64{-1.5, 0.25}, tensor.Shape{2})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Write(&buf, []Entry{
		{Name: "layer:x/weight", Tensor: a},
		{Name: "layer:x/bias", Tensor: b},
	}, Header{ModelID: "test-model"})
	require.NoError(t, err)

	f, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "test-model", f.Header.ModelID)

	got, ok := f.Tensor("layer:x/weight")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3, 4}, got.Data())

	got, ok = f.Tensor("layer:x/bias")
	require.True(t, ok)
	assert.Equal(t, []float64{-1.5, 0.25}, got.Data())
}

func TestWriteRejectsDuplicateNames(t *testing.T) {
	a, err := tensor.Ones(tensor.Shape{2})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Write(&buf, []Entry{
		{Name: "layer:x/weight", Tensor: a},
		{Name: "layer:x/weight", Tensor: a},
	}, Header{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTensor)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.stw")
	require.NoError(t, Save(testNetwork(t), path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[0] = 'X'

	_, err = Decode(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestDecodeRejectsCorruptedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.stw")
	require.NoError(t, Save(testNetwork(t), path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-10] ^= 0xff

	_, err = Decode(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

// forgeFile assembles raw .stw bytes from an arbitrary header, with a
// valid checksum, bypassing the consistency checks Write enforces.
func forgeFile(t *testing.T, header Header, data []byte) []byte {
	t.Helper()
	header.FormatVersion = FormatVersion
	headerJSON, err := json.Marshal(header)
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.WriteString(MagicBytes)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(FormatVersion)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(headerJSON))))
	buf.Write(headerJSON)
	if pad := padding(prefixSize + int64(len(headerJSON))); pad > 0 {
		buf.Write(make([]byte, pad))
	}
	buf.Write(data)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, crc32.Checksum(buf.Bytes(), castagnoli)))
	return buf.Bytes()
}

func TestDecodeRejectsForgedTensorMeta(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
		size  int64
	}{
		{"overflowing element count", []int{3037000500, 3037000500}, 8},
		{"non-positive dimension", []int{-1, 2}, 8},
		{"size mismatch", []int{2}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := forgeFile(t, Header{Tensors: []TensorMeta{{
				Name:  "layer:relu-1/weight",
				DType: DTypeFloat64,
				Shape: tt.shape,
				Size:  tt.size,
			}}}, make([]byte, 8))

			_, err := Decode(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTensor)
		})
	}
}

func TestDecodeRejectsTruncatedFile(t *testing.T) {
	_, err := Decode([]byte("STW1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestLoadRejectsShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.stw")
	require.NoError(t, Save(testNetwork(t), path))

	other, err := layers.Join(layers.NewInput(3), layers.NewRelu(5))
	require.NoError(t, err)

	err = Load(other, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTensorMismatch)
}

func TestLoadRejectsMissingTensor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.stw")
	require.NoError(t, Save(testNetwork(t), path))

	bigger, err := layers.Join(layers.NewInput(3), layers.NewRelu(2), layers.NewSoftmax(4))
	require.NoError(t, err)

	err = Load(bigger, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTensorMismatch)
}

func TestLoadRejectsExtraTensor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.stw")
	bigger, err := layers.Join(layers.NewInput(3), layers.NewRelu(2), layers.NewSoftmax(4))
	require.NoError(t, err)
	require.NoError(t, Save(bigger, path))

	err = Load(testNetwork(t), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTensorMismatch)
}

func TestLoadPreservesPinnedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.stw")

	weight, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})
	require.NoError(t, err)
	src, err := layers.Join(
		layers.NewInput(3),
		layers.NewLinear(2, layers.WithWeight(inits.FromTensor{Tensor: weight}), layers.WithoutBias()),
	)
	require.NoError(t, err)
	require.NoError(t, Save(src, path))

	dst, err := layers.Join(layers.NewInput(3), layers.NewLinear(2, layers.WithoutBias()))
	require.NoError(t, err)
	require.NoError(t, Load(dst, path))

	loaded := dst.Variables()["layer:linear-1/weight"]
	require.NotNil(t, loaded)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, loaded.Value().Data())
}
