package comm

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string { return "timeout" }
func (timeoutError) Timeout() bool { return true }

type testPort struct {
	inCh    chan []byte
	errCh   chan error
	out     bytes.Buffer
	flushes int
	lock    sync.Mutex
}

func newTestPort() *testPort {
	return &testPort{inCh: make(chan []byte, 16), errCh: make(chan error, 1)}
}

func (p *testPort) Read(b []byte) (int, error) {
	select {
	case data := <-p.inCh:
		return copy(b, data), nil
	case err := <-p.errCh:
		return 0, err
	case <-time.After(10 * time.Millisecond):
		return 0, timeoutError{}
	}
}

func (p *testPort) Write(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.out.Write(b)
}

func (p *testPort) Flush() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.flushes++
	return nil
}

func waitAvailable(t *testing.T, f *FIFO, n int) {
	deadline := time.Now().Add(time.Second)
	for f.Available() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expect %d bytes available, got %d", n, f.Available())
		}
		time.Sleep(time.Millisecond)
	}
}

func startFIFO(t *testing.T, f *FIFO) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- f.Run(ctx)
	}()
	return cancel, errCh
}

func TestFIFOReadTimeout(t *testing.T) {
	port := newTestPort()
	f := NewFIFO(port)
	f.Timeout = 20 * time.Millisecond
	cancel, errCh := startFIFO(t, f)
	defer cancel()

	buf := make([]byte, 4)
	n, err := f.Read(buf)
	require.Equal(t, ErrNoData, err)
	require.Zero(t, n)

	port.inCh <- []byte{1, 2, 3}
	waitAvailable(t, f, 3)
	n, err = f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf[:n])
	require.Zero(t, f.Available())

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestFIFOWakesBlockedReader(t *testing.T) {
	port := newTestPort()
	f := NewFIFO(port)
	f.Timeout = time.Second
	cancel, _ := startFIFO(t, f)
	defer cancel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		port.inCh <- []byte{Start}
	}()
	buf := make([]byte, 1)
	n, err := f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, Start, buf[0])
}

func TestFIFOOverflow(t *testing.T) {
	port := newTestPort()
	f := NewFIFOWithCapacity(port, 4)
	cancel, _ := startFIFO(t, f)
	defer cancel()

	port.inCh <- []byte{1, 2, 3, 4, 5, 6}
	waitAvailable(t, f, 4)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 4, f.Available())
	require.Equal(t, 2, f.Dropped())

	buf := make([]byte, 8)
	n, err := f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, buf[:n])

	port.inCh <- []byte{7, 8, 9}
	waitAvailable(t, f, 3)
	n, err = f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{7, 8, 9}, buf[:n])
}

func TestFIFOFlushInput(t *testing.T) {
	port := newTestPort()
	f := NewFIFO(port)
	cancel, _ := startFIFO(t, f)
	defer cancel()

	port.inCh <- bytes.Repeat([]byte{0x11}, 40)
	waitAvailable(t, f, 40)
	require.NoError(t, f.FlushInput())
	require.Zero(t, f.Available())
	require.Equal(t, 1, port.flushes)
}

func TestFIFOWrite(t *testing.T) {
	port := newTestPort()
	f := NewFIFO(port)
	frame := EncodeControlFrame(1500, 90)
	n, err := f.Write(frame.Bytes())
	require.NoError(t, err)
	require.Equal(t, ControlFrameSize, n)
	require.Equal(t, frame.Bytes(), port.out.Bytes())
}

func TestFIFOReadError(t *testing.T) {
	port := newTestPort()
	f := NewFIFO(port)
	cancel, errCh := startFIFO(t, f)
	defer cancel()

	failure := errors.New("device removed")
	port.errCh <- failure
	require.Equal(t, failure, <-errCh)
	_, err := f.Read(make([]byte, 1))
	require.Equal(t, failure, err)
}

func TestFIFODecode(t *testing.T) {
	port := newTestPort()
	f := NewFIFO(port)
	cancel, _ := startFIFO(t, f)
	defer cancel()

	fields := testSensorFields(7)
	frame := EncodeSensorFrame(fields)
	port.inCh <- frame.Bytes()[:5]
	port.inCh <- frame.Bytes()[5:]
	var d Decoder
	decoded, err := d.Decode(f)
	require.NoError(t, err)
	require.Equal(t, fields, decoded)
}
