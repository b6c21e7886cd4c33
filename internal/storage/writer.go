package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/strata-ml/strata/internal/layers"
	"github.com/strata-ml/strata/internal/tensor"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

const strataVersion = "0.1.0"

// Entry pairs a tensor with the name it is stored under.
type Entry struct {
	Name   string
	Tensor *tensor.Tensor
}

// Save writes every variable of a network to path, initializing the
// network first if needed. Variables are stored under their graph-scoped
// names ("layer:<layer>/<param>") in topological order, so the file
// layout is deterministic for a given graph.
func Save(n *layers.Network, path string) error {
	if err := n.Initialize(); err != nil {
		return fmt.Errorf("initialize network: %w", err)
	}

	var entries []Entry
	for _, l := range n.Layers() {
		for _, v := range l.Parameters() {
			entries = append(entries, Entry{
				Name:   layers.VariableKey(l, v),
				Tensor: v.Value(),
			})
		}
	}

	header := Header{
		FormatVersion: FormatVersion,
		StrataVersion: strataVersion,
		ModelID:       uuid.NewString(),
		Network:       n.String(),
		CreatedAt:     time.Now().UTC(),
	}

	//nolint:gosec // G304: the path is caller-provided on purpose
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	if err := Write(f, entries, header); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write serializes entries to w in .stw format. The header's tensor
// list is filled in from the entries; other header fields are written as
// given.
func Write(w io.Writer, entries []Entry, header Header) error {
	header.FormatVersion = FormatVersion
	header.Tensors = make([]TensorMeta, 0, len(entries))

	seen := make(map[string]bool, len(entries))
	var offset int64
	for _, e := range entries {
		if e.Name == "" {
			return fmt.Errorf("%w: empty tensor name", ErrInvalidTensor)
		}
		if seen[e.Name] {
			return fmt.Errorf("%w: duplicate tensor name %q", ErrInvalidTensor, e.Name)
		}
		seen[e.Name] = true

		size := int64(e.Tensor.NumElements()) * 8
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   e.Name,
			DType:  DTypeFloat64,
			Shape:  []int(e.Tensor.Shape()),
			Offset: offset,
			Size:   size,
		})
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	crc := crc32.New(castagnoli)
	out := io.MultiWriter(w, crc)

	if _, err := out.Write([]byte(MagicBytes)); err != nil {
		return fmt.Errorf("write magic bytes: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, uint32(FormatVersion)); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("write header size: %w", err)
	}
	if _, err := out.Write(headerJSON); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if pad := padding(prefixSize + int64(len(headerJSON))); pad > 0 {
		if _, err := out.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("write padding: %w", err)
		}
	}

	for _, e := range entries {
		if err := writeTensorData(out, e.Tensor); err != nil {
			return fmt.Errorf("write tensor %q: %w", e.Name, err)
		}
	}

	if err := binary.Write(w, binary.LittleEndian, crc.Sum32()); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}
	return nil
}

func writeTensorData(w io.Writer, t *tensor.Tensor) error {
	data := t.Data()
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	_, err := w.Write(buf)
	return err
}
