package comm

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Defaults for FIFO.
const (
	DefaultFIFOTimeout  = 100 * time.Millisecond
	DefaultFIFOCapacity = 1024
)

// FIFO implements Transport on top of an io.ReadWriter.
// Run pumps received bytes into a bounded ring buffer in the background,
// so the number of bytes available can be checked without blocking.
type FIFO struct {
	ReadWriter io.ReadWriter
	Timeout    time.Duration

	ring    ring
	dropped int
	err     error
	lock    sync.Mutex
	dataCh  chan struct{}

	writeLock sync.Mutex
}

// NewFIFO creates a FIFO.
func NewFIFO(rw io.ReadWriter) *FIFO {
	return NewFIFOWithCapacity(rw, DefaultFIFOCapacity)
}

// NewFIFOWithCapacity creates a FIFO buffering at most capacity bytes.
func NewFIFOWithCapacity(rw io.ReadWriter, capacity int) *FIFO {
	return &FIFO{
		ReadWriter: rw,
		Timeout:    DefaultFIFOTimeout,
		ring:       newRing(capacity),
		dataCh:     make(chan struct{}, 1),
	}
}

// Run pumps bytes from ReadWriter until ctx is done or a read fails.
// ReadWriter should support read timeouts so ctx is checked regularly.
func (f *FIFO) Run(ctx context.Context) error {
	buf := make([]byte, 64)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := f.ReadWriter.Read(buf)
		if n > 0 {
			f.push(buf[:n])
		}
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.lock.Lock()
			f.err = err
			f.lock.Unlock()
			f.notify()
			glog.Errorf("fifo read error: %v", err)
			return err
		}
	}
}

// Read implements io.Reader. It waits at most Timeout for data.
func (f *FIFO) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var timer <-chan time.Time
	for {
		f.lock.Lock()
		n := f.ring.read(p)
		err := f.err
		f.lock.Unlock()
		if n > 0 {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
		if timer == nil {
			timer = time.After(f.Timeout)
		}
		select {
		case <-f.dataCh:
		case <-timer:
			return 0, ErrNoData
		}
	}
}

// Write implements io.Writer.
func (f *FIFO) Write(p []byte) (int, error) {
	f.writeLock.Lock()
	defer f.writeLock.Unlock()
	return f.ReadWriter.Write(p)
}

// Available implements Transport.
func (f *FIFO) Available() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.ring.len()
}

// Dropped returns the number of bytes dropped because the buffer was full.
func (f *FIFO) Dropped() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.dropped
}

// FlushInput implements Transport. The device queue is also flushed if
// ReadWriter implements Flusher.
func (f *FIFO) FlushInput() error {
	f.lock.Lock()
	f.ring.reset()
	f.lock.Unlock()
	if flusher, ok := f.ReadWriter.(Flusher); ok {
		return flusher.Flush()
	}
	return nil
}

// Close implements io.Closer.
func (f *FIFO) Close() error {
	if closer, ok := f.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (f *FIFO) push(p []byte) {
	f.lock.Lock()
	written := f.ring.write(p)
	f.dropped += len(p) - written
	f.lock.Unlock()
	if written < len(p) {
		glog.V(2).Infof("fifo full, dropped %d bytes", len(p)-written)
	}
	f.notify()
}

func (f *FIFO) notify() {
	select {
	case f.dataCh <- struct{}{}:
	default:
	}
}

// ring is a fixed capacity circular byte buffer.
type ring struct {
	buf  []byte
	head int
	size int
}

func newRing(capacity int) ring {
	return ring{buf: make([]byte, capacity)}
}

func (r *ring) len() int {
	return r.size
}

func (r *ring) write(p []byte) int {
	n := 0
	for _, b := range p {
		if r.size == len(r.buf) {
			break
		}
		r.buf[(r.head+r.size)%len(r.buf)] = b
		r.size++
		n++
	}
	return n
}

func (r *ring) read(p []byte) int {
	n := 0
	for n < len(p) && r.size > 0 {
		p[n] = r.buf[r.head]
		r.head = (r.head + 1) % len(r.buf)
		r.size--
		n++
	}
	return n
}

func (r *ring) reset() {
	r.head, r.size = 0, 0
}
