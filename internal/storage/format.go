// Package storage persists network weights in the .stw binary format:
// a fixed prefix (magic, version, header size), a JSON header describing
// every tensor, 64-byte aligned raw tensor data, and a CRC-32C trailer
// over everything before it.
package storage

import (
	"time"
)

// Format constants.
const (
	MagicBytes      = "STW1"
	FormatVersion   = 1
	HeaderAlignment = 64       // tensor data section starts on a 64-byte boundary
	MaxHeaderSize   = 16 << 20 // 16 MiB is far beyond any realistic header
	ChecksumSize    = 4        // CRC-32C trailer
	prefixSize      = 16       // magic + version + header size
)

// DTypeFloat64 is the only element type the format currently stores.
const DTypeFloat64 = "float64"

// Header is the JSON header of a .stw file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	StrataVersion string            `json:"strata_version"`    // library version that wrote the file
	ModelID       string            `json:"model_id"`          // UUID assigned at save time
	Network       string            `json:"network,omitempty"` // human-readable network structure
	CreatedAt     time.Time         `json:"created_at"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TensorMeta describes one tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // graph-scoped name, e.g. "layer:relu-1/weight"
	DType  string `json:"dtype"`  // element type, e.g. "float64"
	Shape  []int  `json:"shape"`  // tensor shape
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // size in bytes
}

// padding returns the number of bytes needed to advance pos to the next
// alignment boundary.
func padding(pos int64) int64 {
	return (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
}
