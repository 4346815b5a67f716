package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrFraming indicates Start/End markers are not found where expected,
	// even after a resync attempt.
	ErrFraming = errors.New("framing error")
	// ErrChecksum indicates the XOR checksum of a frame doesn't match.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrNoData indicates a read timed out without any data.
	ErrNoData = errors.New("no data")
)

// TransportError wraps I/O failures on the underlying byte stream.
type TransportError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError determines if err is caused by the transport.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
