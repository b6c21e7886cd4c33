package storage

import (
	"errors"
)

// Common errors.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidTensor      = errors.New("invalid tensor record")
	ErrTensorMismatch     = errors.New("stored tensors do not match the network")
)
