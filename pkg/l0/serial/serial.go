// Package serial opens the board's serial device.
package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Defaults of Config.
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 100 * time.Millisecond
)

// Config specifies the serial device.
type Config struct {
	// Device path, e.g. /dev/ttyACM0.
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// Port is an opened serial port.
type Port struct {
	port *serial.Port
	name string
}

// Open opens the port.
func Open(conf Config) (*Port, error) {
	if conf.Device == "" {
		return nil, fmt.Errorf("serial device not specified")
	}
	if conf.Baud == 0 {
		conf.Baud = DefaultBaud
	}
	if conf.ReadTimeout == 0 {
		conf.ReadTimeout = DefaultReadTimeout
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        conf.Device,
		Baud:        conf.Baud,
		ReadTimeout: conf.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", conf.Device, err)
	}
	return &Port{port: port, name: conf.Device}, nil
}

// Name returns the device path.
func (p *Port) Name() string {
	return p.name
}

// Read implements io.Reader. An expired read timeout is reported as
// a timeout error instead of io.EOF.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if n == 0 && err == io.EOF {
		return 0, errTimeout
	}
	return n, err
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Flush discards data received but not read.
func (p *Port) Flush() error {
	return p.port.Flush()
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return p.port.Close()
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "serial read timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var errTimeout error = timeoutError{}
