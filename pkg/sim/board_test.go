package sim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/boardlink/pkg/calib"
	"github.com/robotalks/boardlink/pkg/l0/comm"
)

func TestBoardControlFrames(t *testing.T) {
	b := NewBoard()
	frame := comm.EncodeControlFrame(1580, 100)
	corrupted := comm.EncodeControlFrame(1180, 50)
	corrupted[3] ^= 0x02

	n, err := b.Write(append([]byte{0x01, 0x02}, frame.Bytes()[:4]...))
	require.NoError(t, err)
	require.Equal(t, 6, n)
	_, _, received := b.Controls()
	require.Zero(t, received)

	_, err = b.Write(frame.Bytes()[4:])
	require.NoError(t, err)
	_, err = b.Write(corrupted.Bytes())
	require.NoError(t, err)
	speed, steering, received := b.Controls()
	require.Equal(t, uint16(1580), speed)
	require.Equal(t, uint16(100), steering)
	require.Equal(t, 1, received)
}

func TestBoardSensorFrames(t *testing.T) {
	b := NewBoard()
	b.Interval = time.Millisecond
	b.SetObstacle(calib.ChannelIRFrontRight, 30)
	b.SetObstacle(calib.ChannelUSFront, 80)

	var d comm.Decoder
	c := calib.New(calib.DefaultConfig())
	var readings calib.Readings
	for i := 0; i < 3; i++ {
		fields, err := d.Decode(b)
		require.NoError(t, err)
		readings = c.Calibrate(fields)
	}
	require.InDelta(t, 0.30, readings.Distances[calib.ChannelIRFrontRight], 0.01)
	require.InDelta(t, 0.80, readings.Distances[calib.ChannelUSFront], 1e-9)
	require.Equal(t, float64(calib.OutOfRange), readings.Distances[calib.ChannelIRBack])
	require.Equal(t, float64(calib.OutOfRange), readings.Distances[calib.ChannelUSFrontRight])
}

func TestBoardCorruption(t *testing.T) {
	b := NewBoard()
	b.Interval = time.Millisecond
	b.CorruptEvery = 2
	var d comm.Decoder
	_, err := d.Decode(b)
	require.NoError(t, err)
	_, err = d.Decode(b)
	require.Equal(t, comm.ErrChecksum, err)
	_, err = d.Decode(b)
	require.NoError(t, err)
}

func TestBoardClose(t *testing.T) {
	b := NewBoard()
	b.Interval = time.Hour
	buf := make([]byte, comm.SensorFrameSize)
	_, err := b.Read(buf)
	require.NoError(t, err)
	require.NoError(t, b.Close())
	_, err = b.Read(buf)
	require.Error(t, err)
	_, err = b.Write([]byte{comm.Start})
	require.Error(t, err)
}

func TestBoardReadTimeout(t *testing.T) {
	b := NewBoard()
	b.Interval = time.Hour
	b.ReadTimeout = 10 * time.Millisecond
	buf := make([]byte, 64)
	n, err := b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, comm.SensorFrameSize, n)
	_, err = b.Read(buf)
	require.Error(t, err)
	require.True(t, err.(interface{ Timeout() bool }).Timeout())
}

func TestVehicleAdvance(t *testing.T) {
	testCases := []struct {
		name     string
		speed    uint16
		steering uint16
		x, y     float64
		traveled float64
		turned   bool
	}{
		{"stopped", 1500, 90, 0, 0, 0, false},
		{"forward", 1600, 90, 1, 0, 1, false},
		{"reverse", 1400, 90, -1, 0, 1, false},
		{"turn left", 1600, 120, 0, 0, 1, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewVehicle()
			v.Advance(time.Second, tc.speed, tc.steering)
			require.InDelta(t, tc.traveled, v.Traveled, 1e-9)
			if tc.turned {
				require.True(t, v.Pose.Orientation.Radians() > 0)
				return
			}
			require.InDelta(t, tc.x, v.Pose.X, 1e-9)
			require.InDelta(t, tc.y, v.Pose.Y, 1e-9)
			require.Zero(t, v.Pose.Orientation.Radians())
		})
	}
}

func TestAngleCompass(t *testing.T) {
	require.Equal(t, uint16(0), Angle(0).Compass())
	require.Equal(t, uint16(90), AngleFromDegrees(90).Compass())
	require.Equal(t, uint16(270), AngleFromDegrees(-90).Compass())
	require.Equal(t, uint16(180), Angle(math.Pi).Compass())
	require.InDelta(t, -math.Pi/2, AngleFromDegrees(270).Radians(), 1e-9)
}
