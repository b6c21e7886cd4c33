// Copyright 2026 Strata ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package storage provides the public API for saving and loading
// network weights in the .stw format.
//
//	err := storage.Save(network, "model.stw")
//	...
//	err = storage.Load(network, "model.stw")
package storage

import (
	"io"

	"github.com/strata-ml/strata/internal/layers"
	"github.com/strata-ml/strata/internal/storage"
)

// Header is the JSON header of a .stw file.
type Header = storage.Header

// TensorMeta describes one tensor in the data section.
type TensorMeta = storage.TensorMeta

// Entry pairs a tensor with the name it is stored under.
type Entry = storage.Entry

// File is a fully read and validated .stw file.
type File = storage.File

// Common errors.
var (
	ErrInvalidMagic       = storage.ErrInvalidMagic
	ErrUnsupportedVersion = storage.ErrUnsupportedVersion
	ErrChecksumMismatch   = storage.ErrChecksumMismatch
	ErrHeaderTooLarge     = storage.ErrHeaderTooLarge
	ErrInvalidTensor      = storage.ErrInvalidTensor
	ErrTensorMismatch     = storage.ErrTensorMismatch
)

// Save writes every variable of a network to path.
func Save(n *layers.Network, path string) error {
	return storage.Save(n, path)
}

// Load restores network variables from a .stw file.
func Load(n *layers.Network, path string) error {
	return storage.Load(n, path)
}

// Open reads a .stw file, verifies its checksum, and materializes every
// tensor.
func Open(path string) (*File, error) {
	return storage.Open(path)
}

// Decode parses raw .stw bytes.
func Decode(raw []byte) (*File, error) {
	return storage.Decode(raw)
}

// Write serializes entries to w in .stw format.
func Write(w io.Writer, entries []Entry, header Header) error {
	return storage.Write(w, entries, header)
}
