package layers

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrLayerConnection = errors.New("layers cannot be connected")
	ErrUnknownLayer    = errors.New("unknown layer")
	ErrInvalidInput    = errors.New("invalid network input")
)

// ConnectionError reports why two layers cannot be wired together.
type ConnectionError struct {
	From    string // Producing layer name ("" when not applicable)
	To      string // Consuming layer name
	Details string // What went wrong
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.From != "" {
		return fmt.Sprintf("cannot connect %q to %q: %s", e.From, e.To, e.Details)
	}
	return fmt.Sprintf("cannot connect into %q: %s", e.To, e.Details)
}

// Unwrap lets callers match against ErrLayerConnection.
func (e *ConnectionError) Unwrap() error {
	return ErrLayerConnection
}
