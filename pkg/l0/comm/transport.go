package comm

import "io"

// Transport is the capability the link needs from the byte stream
// connected to the board.
type Transport interface {
	// Read reads buffered bytes. It must not block longer than a bounded
	// timeout and returns ErrNoData when nothing arrives in time.
	io.Reader
	io.Writer
	// Available returns the number of bytes ready for reading.
	Available() int
	// FlushInput discards all bytes received but not yet read.
	FlushInput() error
}

// Flusher discards the input queue of an underlying device.
type Flusher interface {
	Flush() error
}
