package sim

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/boardlink/pkg/calib"
	"github.com/robotalks/boardlink/pkg/l0/comm"
)

// Defaults of Board.
const (
	DefaultFrameInterval = 20 * time.Millisecond
	DefaultReadTimeout   = 100 * time.Millisecond
)

// Board behaves like the sensor/actuator board on the other end of the
// serial line. It emits a sensor frame every Interval and applies the
// control frames written to it.
type Board struct {
	Interval    time.Duration
	ReadTimeout time.Duration
	Vehicle     *Vehicle
	// Obstacles are the distances in cm seen by each channel.
	Obstacles [calib.NumChannels]float64
	// Calibration is used to produce raw infrared values.
	Calibration calib.Config
	// CorruptEvery flips a bit in every n-th frame when positive.
	CorruptEvery int

	speedCode    uint16
	steeringCode uint16
	received     int
	rx           []byte
	out          []byte
	next         time.Time
	frames       int
	closed       bool
	closeCh      chan struct{}
	lock         sync.Mutex
}

// NewBoard creates a Board with the vehicle standing still.
func NewBoard() *Board {
	vehicle := NewVehicle()
	b := &Board{
		Interval:     DefaultFrameInterval,
		ReadTimeout:  DefaultReadTimeout,
		Vehicle:      vehicle,
		Calibration:  calib.DefaultConfig(),
		speedCode:    vehicle.NeutralSpeed,
		steeringCode: vehicle.SteeringCenter,
		closeCh:      make(chan struct{}),
	}
	for i := range b.Obstacles {
		b.Obstacles[i] = 500
	}
	return b
}

// Controls returns the last applied codes and the number of valid control
// frames received.
func (b *Board) Controls() (speedCode, steeringCode uint16, received int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.speedCode, b.steeringCode, b.received
}

// SetObstacle sets the distance in cm seen by a channel.
func (b *Board) SetObstacle(ch calib.Channel, cm float64) {
	b.lock.Lock()
	b.Obstacles[ch] = cm
	b.lock.Unlock()
}

// Write implements io.Writer and accepts control frames.
func (b *Board) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	b.rx = append(b.rx, p...)
	for len(b.rx) >= comm.ControlFrameSize {
		if b.rx[0] != comm.Start {
			b.rx = b.rx[1:]
			continue
		}
		var frame comm.ControlFrame
		copy(frame[:], b.rx)
		if frame[comm.ControlFrameSize-2] != comm.End || !comm.Verify(frame.Bytes()) {
			glog.V(3).Infof("sim: bad control frame % x", frame[:])
			b.rx = b.rx[1:]
			continue
		}
		b.rx = b.rx[comm.ControlFrameSize:]
		b.speedCode, b.steeringCode = frame.SpeedCode(), frame.SteeringCode()
		b.received++
	}
	return len(p), nil
}

// Read implements io.Reader. It returns a timeout error when no frame is
// due within ReadTimeout.
func (b *Board) Read(p []byte) (int, error) {
	deadline := time.Now().Add(b.ReadTimeout)
	for {
		b.lock.Lock()
		if b.closed {
			b.lock.Unlock()
			return 0, io.EOF
		}
		if len(b.out) > 0 {
			n := copy(p, b.out)
			b.out = b.out[n:]
			b.lock.Unlock()
			return n, nil
		}
		now := time.Now()
		if b.next.IsZero() {
			b.next = now
		}
		if !now.Before(b.next) {
			b.emit()
			b.next = b.next.Add(b.Interval)
			b.lock.Unlock()
			continue
		}
		wait := b.next.Sub(now)
		b.lock.Unlock()
		remain := deadline.Sub(now)
		if remain <= 0 {
			return 0, timeoutError{}
		}
		if wait > remain {
			wait = remain
		}
		select {
		case <-time.After(wait):
		case <-b.closeCh:
		}
	}
}

// Close implements io.Closer.
func (b *Board) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.closed {
		b.closed = true
		close(b.closeCh)
	}
	return nil
}

func (b *Board) emit() {
	b.Vehicle.Advance(b.Interval, b.speedCode, b.steeringCode)
	fields := comm.SensorFields{
		AbsDistance:   uint16(math.Mod(b.Vehicle.Traveled*100, math.MaxUint16+1)),
		AbsDirection:  b.Vehicle.Pose.Orientation.Compass(),
		IRFrontRight:  b.rawReading(calib.ChannelIRFrontRight),
		IRMiddleRight: b.rawReading(calib.ChannelIRMiddleRight),
		IRBack:        b.rawReading(calib.ChannelIRBack),
		USFront:       b.rawReading(calib.ChannelUSFront),
		USFrontRight:  b.rawReading(calib.ChannelUSFrontRight),
	}
	frame := comm.EncodeSensorFrame(fields)
	b.frames++
	if b.CorruptEvery > 0 && b.frames%b.CorruptEvery == 0 {
		frame[1] ^= 0x01
	}
	b.out = append(b.out, frame.Bytes()...)
}

// rawReading inverts the calibration of the channel.
func (b *Board) rawReading(ch calib.Channel) uint16 {
	cm := b.Obstacles[ch]
	conf := b.Calibration.Channel(ch)
	if conf.Kind == calib.Infrared {
		raw := conf.Numerator/(cm+conf.Bias) - conf.Offset
		if raw < 0 {
			raw = 0
		}
		return uint16(math.Round(raw))
	}
	if cm > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(math.Round(cm))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "sim: read timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
