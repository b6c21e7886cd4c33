package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"math"
	"os"

	"github.com/strata-ml/strata/internal/layers"
	"github.com/strata-ml/strata/internal/tensor"
)

// File is a fully read and validated .stw file.
type File struct {
	Header Header

	tensors map[string]*tensor.Tensor
	order   []string
}

// Open reads a .stw file, verifies its checksum, and materializes every
// tensor.
func Open(path string) (*File, error) {
	//nolint:gosec // G304: the path is caller-provided on purpose
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return Decode(raw)
}

// Decode parses raw .stw bytes.
func Decode(raw []byte) (*File, error) {
	if len(raw) < prefixSize+ChecksumSize {
		return nil, fmt.Errorf("%w: file too small (%d bytes)", ErrInvalidMagic, len(raw))
	}
	if string(raw[:4]) != MagicBytes {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, raw[:4])
	}
	if version := binary.LittleEndian.Uint32(raw[4:8]); version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	stored := binary.LittleEndian.Uint32(raw[len(raw)-ChecksumSize:])
	if computed := crc32.Checksum(raw[:len(raw)-ChecksumSize], castagnoli); computed != stored {
		return nil, fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksumMismatch, stored, computed)
	}

	headerSize := binary.LittleEndian.Uint64(raw[8:prefixSize])
	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}
	headerEnd := prefixSize + int64(headerSize)
	dataStart := headerEnd + padding(headerEnd)
	dataEnd := int64(len(raw) - ChecksumSize)
	if dataStart > dataEnd {
		return nil, fmt.Errorf("%w: header extends past the data section", ErrHeaderTooLarge)
	}

	var header Header
	if err := json.Unmarshal(raw[prefixSize:headerEnd], &header); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	f := &File{
		Header:  header,
		tensors: make(map[string]*tensor.Tensor, len(header.Tensors)),
	}
	data := raw[dataStart:dataEnd]
	for _, meta := range header.Tensors {
		t, err := decodeTensor(meta, data)
		if err != nil {
			return nil, err
		}
		if _, ok := f.tensors[meta.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate tensor name %q", ErrInvalidTensor, meta.Name)
		}
		f.tensors[meta.Name] = t
		f.order = append(f.order, meta.Name)
	}
	return f, nil
}

func decodeTensor(meta TensorMeta, data []byte) (*tensor.Tensor, error) {
	if meta.DType != DTypeFloat64 {
		return nil, fmt.Errorf("%w: tensor %q has unsupported dtype %q", ErrInvalidTensor, meta.Name, meta.DType)
	}
	if meta.Offset < 0 || meta.Size < 0 {
		return nil, fmt.Errorf("%w: tensor %q has negative offset or size", ErrInvalidTensor, meta.Name)
	}
	if meta.Size > int64(len(data)) || meta.Offset > int64(len(data))-meta.Size {
		return nil, fmt.Errorf("%w: tensor %q extends beyond the data section", ErrInvalidTensor, meta.Name)
	}

	// Validate the element count against the record size before allocating
	// anything: the shape comes straight from the file, so the product has
	// to be computed without overflowing.
	shape := tensor.Shape(meta.Shape)
	elems := int64(1)
	for _, dim := range shape {
		if dim < 1 {
			return nil, fmt.Errorf("%w: tensor %q has invalid dimension %d", ErrInvalidTensor, meta.Name, dim)
		}
		if elems > math.MaxInt64/int64(dim) {
			return nil, fmt.Errorf("%w: tensor %q: shape %s element count overflows", ErrInvalidTensor, meta.Name, shape)
		}
		elems *= int64(dim)
	}
	if elems > math.MaxInt64/8 || elems*8 != meta.Size {
		return nil, fmt.Errorf("%w: tensor %q: shape %s needs %d elements, record has %d bytes",
			ErrInvalidTensor, meta.Name, shape, elems, meta.Size)
	}

	t, err := tensor.New(shape)
	if err != nil {
		return nil, fmt.Errorf("%w: tensor %q: %v", ErrInvalidTensor, meta.Name, err)
	}

	values := t.Data()
	for i := range values {
		bits := binary.LittleEndian.Uint64(data[meta.Offset+int64(i)*8:])
		values[i] = math.Float64frombits(bits)
	}
	return t, nil
}

// Tensor looks up a stored tensor by name.
func (f *File) Tensor(name string) (*tensor.Tensor, bool) {
	t, ok := f.tensors[name]
	return t, ok
}

// Names returns the stored tensor names in file order.
func (f *File) Names() []string {
	return f.order
}

// CountParameters sums the element counts of all stored tensors.
func (f *File) CountParameters() int {
	total := 0
	for _, t := range f.tensors {
		total += t.NumElements()
	}
	return total
}

// Load restores network variables from a .stw file. The network is
// initialized first, then every variable is matched by its graph-scoped
// name. Missing or extra stored tensors are an error, as are shape
// mismatches.
func Load(n *layers.Network, path string) error {
	f, err := Open(path)
	if err != nil {
		return err
	}
	if err := n.Initialize(); err != nil {
		return fmt.Errorf("initialize network: %w", err)
	}

	vars := n.Variables()
	for key, v := range vars {
		t, ok := f.Tensor(key)
		if !ok {
			return fmt.Errorf("%w: %q not found in file", ErrTensorMismatch, key)
		}
		if err := v.SetValue(t); err != nil {
			return fmt.Errorf("%w: %v", ErrTensorMismatch, err)
		}
	}
	for _, name := range f.Names() {
		if _, ok := vars[name]; !ok {
			return fmt.Errorf("%w: file tensor %q has no matching network variable", ErrTensorMismatch, name)
		}
	}
	return nil
}
