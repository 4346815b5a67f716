package comm

import "encoding/binary"

// Frame markers.
const (
	Start byte = 0xAA
	End   byte = 0xFF
)

// Frame sizes.
const (
	ControlFrameSize = 7
	SensorFrameSize  = 17
)

// ControlFrame layout.
const (
	ctlPosStart    = 0
	ctlPosSpeed    = 1
	ctlPosSteering = 3
	ctlPosEnd      = 5
	ctlPosChecksum = 6
)

// SensorFrame layout.
const (
	sensorPosStart         = 0
	sensorPosAbsDistance   = 1
	sensorPosAbsDirection  = 3
	sensorPosIRFrontRight  = 5
	sensorPosIRMiddleRight = 7
	sensorPosIRBack        = 9
	sensorPosUSFront       = 11
	sensorPosUSFrontRight  = 13
	sensorPosEnd           = 15
	sensorPosChecksum      = 16
)

// ControlFrame is the frame sent to the board.
type ControlFrame [ControlFrameSize]byte

// EncodeControlFrame builds a ControlFrame with checksum.
func EncodeControlFrame(speedCode, steeringCode uint16) (f ControlFrame) {
	f[ctlPosStart] = Start
	binary.LittleEndian.PutUint16(f[ctlPosSpeed:], speedCode)
	binary.LittleEndian.PutUint16(f[ctlPosSteering:], steeringCode)
	f[ctlPosEnd] = End
	f[ctlPosChecksum] = Checksum(f[:ctlPosChecksum])
	return
}

// SpeedCode returns the encoded speed.
func (f *ControlFrame) SpeedCode() uint16 {
	return binary.LittleEndian.Uint16(f[ctlPosSpeed:])
}

// SteeringCode returns the encoded steering.
func (f *ControlFrame) SteeringCode() uint16 {
	return binary.LittleEndian.Uint16(f[ctlPosSteering:])
}

// Checksum returns the checksum byte.
func (f *ControlFrame) Checksum() byte {
	return f[ctlPosChecksum]
}

// Bytes returns the frame as a slice.
func (f *ControlFrame) Bytes() []byte {
	return f[:]
}

// SensorFields are the values carried by a SensorFrame, in wire order.
type SensorFields struct {
	AbsDistance   uint16
	AbsDirection  uint16
	IRFrontRight  uint16
	IRMiddleRight uint16
	IRBack        uint16
	USFront       uint16
	USFrontRight  uint16
}

// SensorFrame is the frame received from the board.
type SensorFrame [SensorFrameSize]byte

// EncodeSensorFrame builds a valid SensorFrame from fields.
func EncodeSensorFrame(fields SensorFields) (f SensorFrame) {
	f[sensorPosStart] = Start
	f.put(sensorPosAbsDistance, fields.AbsDistance)
	f.put(sensorPosAbsDirection, fields.AbsDirection)
	f.put(sensorPosIRFrontRight, fields.IRFrontRight)
	f.put(sensorPosIRMiddleRight, fields.IRMiddleRight)
	f.put(sensorPosIRBack, fields.IRBack)
	f.put(sensorPosUSFront, fields.USFront)
	f.put(sensorPosUSFrontRight, fields.USFrontRight)
	f[sensorPosEnd] = End
	f[sensorPosChecksum] = Checksum(f[:sensorPosChecksum])
	return
}

// Validate checks markers and checksum.
func (f *SensorFrame) Validate() error {
	if f[sensorPosStart] != Start || f[sensorPosEnd] != End {
		return ErrFraming
	}
	if !Verify(f[:]) {
		return ErrChecksum
	}
	return nil
}

// Fields parses the fields. It doesn't validate the frame.
func (f *SensorFrame) Fields() SensorFields {
	return SensorFields{
		AbsDistance:   f.get(sensorPosAbsDistance),
		AbsDirection:  f.get(sensorPosAbsDirection),
		IRFrontRight:  f.get(sensorPosIRFrontRight),
		IRMiddleRight: f.get(sensorPosIRMiddleRight),
		IRBack:        f.get(sensorPosIRBack),
		USFront:       f.get(sensorPosUSFront),
		USFrontRight:  f.get(sensorPosUSFrontRight),
	}
}

// Bytes returns the frame as a slice.
func (f *SensorFrame) Bytes() []byte {
	return f[:]
}

func (f *SensorFrame) get(pos int) uint16 {
	return binary.LittleEndian.Uint16(f[pos:])
}

func (f *SensorFrame) put(pos int, val uint16) {
	binary.LittleEndian.PutUint16(f[pos:], val)
}
