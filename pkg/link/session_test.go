package link

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/boardlink/pkg/calib"
	fx "github.com/robotalks/boardlink/pkg/framework"
	"github.com/robotalks/boardlink/pkg/l0/comm"
	"github.com/robotalks/boardlink/pkg/l1/msgs"
)

type fakeTransport struct {
	in       bytes.Buffer
	writes   []comm.ControlFrame
	writeErr error
	flushes  int
	closed   bool
	lock     sync.Mutex
}

func (t *fakeTransport) Read(p []byte) (int, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.in.Len() == 0 {
		return 0, comm.ErrNoData
	}
	return t.in.Read(p)
}

func (t *fakeTransport) Write(p []byte) (int, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	var frame comm.ControlFrame
	copy(frame[:], p)
	t.writes = append(t.writes, frame)
	return len(p), nil
}

func (t *fakeTransport) Available() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.in.Len()
}

func (t *fakeTransport) FlushInput() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.flushes++
	t.in.Reset()
	return nil
}

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

func (t *fakeTransport) feed(frames ...comm.SensorFrame) {
	t.lock.Lock()
	defer t.lock.Unlock()
	for _, f := range frames {
		t.in.Write(f.Bytes())
	}
}

func (t *fakeTransport) sent() []comm.ControlFrame {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]comm.ControlFrame(nil), t.writes...)
}

func sensorFrame(path uint16) comm.SensorFrame {
	return comm.EncodeSensorFrame(comm.SensorFields{
		AbsDistance:   path,
		AbsDirection:  90,
		IRFrontRight:  100,
		IRMiddleRight: 100,
		IRBack:        100,
		USFront:       50,
		USFrontRight:  200,
	})
}

func TestSessionFirstCycleSendsNeutral(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(tr)
	readings, err := s.Step(nil)
	require.NoError(t, err)
	require.Nil(t, readings)
	sent := tr.sent()
	require.Len(t, sent, 1)
	require.Equal(t, uint16(1500), sent[0].SpeedCode())
	require.Equal(t, uint16(90), sent[0].SteeringCode())
	require.True(t, s.State().Transmitted)
}

func TestSessionDedup(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(tr)
	cmd := &msgs.ControlCommand{Speed: 20, SteeringAngle: rad(10)}
	for i := 0; i < 3; i++ {
		_, err := s.Step(cmd)
		require.NoError(t, err)
	}
	_, err := s.Step(nil)
	require.NoError(t, err)
	require.Len(t, tr.sent(), 1)

	// 20.4 encodes to the same codes.
	_, err = s.Step(&msgs.ControlCommand{Speed: 20.4, SteeringAngle: rad(10)})
	require.NoError(t, err)
	require.Len(t, tr.sent(), 1)

	_, err = s.Step(&msgs.ControlCommand{Speed: 21, SteeringAngle: rad(10)})
	require.NoError(t, err)
	sent := tr.sent()
	require.Len(t, sent, 2)
	require.Equal(t, uint16(1591), sent[1].SpeedCode())
	require.Equal(t, uint64(2), s.State().Stats.FramesSent)
}

func TestSessionWriteFailureRetries(t *testing.T) {
	tr := &fakeTransport{writeErr: errors.New("unplugged")}
	s := NewSession(tr)
	cmd := &msgs.ControlCommand{Speed: 5}
	_, err := s.Step(cmd)
	require.Error(t, err)
	require.True(t, comm.IsTransportError(err))
	require.False(t, s.State().Transmitted)

	tr.writeErr = nil
	_, err = s.Step(nil)
	require.NoError(t, err)
	sent := tr.sent()
	require.Len(t, sent, 1)
	require.Equal(t, uint16(1575), sent[0].SpeedCode())
	require.Equal(t, uint64(1), s.State().Stats.WriteErrors)
}

func TestSessionReceive(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(tr)
	partial := sensorFrame(250)
	tr.in.Write(partial.Bytes()[:10])
	readings, err := s.Step(nil)
	require.NoError(t, err)
	require.Nil(t, readings, "partial frame must not be read")

	tr.in.Reset()
	tr.feed(sensorFrame(250))
	readings, err = s.Step(nil)
	require.NoError(t, err)
	require.NotNil(t, readings)
	require.Equal(t, 2.5, readings.Vehicle.Path)
	require.InDelta(t, 1.5708, readings.Vehicle.Heading, 1e-4)
	// 2914/105-1 = 26.75cm, within the infrared limit.
	require.InDelta(t, 0.2675, readings.Distances[calib.ChannelIRFrontRight], 1e-3)
	require.Equal(t, 0.5, readings.Distances[calib.ChannelUSFront])
	require.Equal(t, float64(calib.OutOfRange), readings.Distances[calib.ChannelUSFrontRight])

	data := SensorBoardData(readings)
	require.Equal(t, data.Keys(), []uint32{0, 1, 2, 3, 4})
	require.Equal(t, 2.5, VehicleData(readings).AbsTraveledPath)
	require.Equal(t, uint64(1), s.State().Stats.FramesReceived)
	require.Equal(t, comm.SyncStateValidated, s.State().LastResult)
}

func TestSessionBadFrame(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(tr)
	frame := sensorFrame(1)
	frame[3] ^= 0x10
	tr.feed(frame)
	readings, err := s.Step(nil)
	require.Nil(t, readings)
	require.True(t, errors.Is(err, comm.ErrChecksum))
	state := s.State()
	require.Equal(t, uint64(1), state.Stats.ChecksumErrors)
	require.Equal(t, comm.SyncStateRejected, state.LastResult)
	require.Equal(t, "rejected", s.LinkStatus().SyncState)
}

func TestSessionBacklog(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(tr)
	tr.feed(sensorFrame(1), sensorFrame(2), sensorFrame(3))
	readings, err := s.Step(nil)
	require.NoError(t, err)
	require.NotNil(t, readings)
	require.Equal(t, 2*comm.SensorFrameSize, tr.Available())
	require.Equal(t, 0, tr.flushes)

	tr.feed(sensorFrame(4), sensorFrame(5))
	readings, err = s.Step(nil)
	require.NoError(t, err)
	require.Equal(t, 0.02, readings.Vehicle.Path)
	require.Equal(t, 1, tr.flushes)
	require.Equal(t, 0, tr.Available())
	require.Equal(t, uint64(1), s.State().Stats.Flushes)
}

func TestSessionSendOnlyWhenSynced(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(tr)
	s.SendOnlyWhenSynced = true
	a := &msgs.ControlCommand{Speed: 10}
	b := &msgs.ControlCommand{Speed: 30}

	_, err := s.Step(a)
	require.NoError(t, err)
	require.Len(t, tr.sent(), 1)

	bad := sensorFrame(1)
	bad[0] = 0x00
	tr.feed(bad)
	_, err = s.Step(a)
	require.Error(t, err)

	_, err = s.Step(b)
	require.NoError(t, err)
	require.Len(t, tr.sent(), 1, "held while not synced")

	tr.feed(sensorFrame(2))
	readings, err := s.Step(nil)
	require.NoError(t, err)
	require.NotNil(t, readings)
	require.Len(t, tr.sent(), 1)

	_, err = s.Step(nil)
	require.NoError(t, err)
	sent := tr.sent()
	require.Len(t, sent, 2)
	require.Equal(t, uint16(1600), sent[1].SpeedCode())
}

func TestSessionDegraded(t *testing.T) {
	s := NewSession(nil)
	require.True(t, s.Degraded())
	readings, err := s.Step(&msgs.ControlCommand{Speed: 10})
	require.NoError(t, err)
	require.Nil(t, readings)
	require.NoError(t, s.Close())
	status := s.LinkStatus()
	require.True(t, status.Degraded)
	require.Zero(t, status.FramesSent)
}

func TestSessionCloseSendsNeutral(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(tr)
	s.NeutralRepeat = 300
	_, err := s.Step(&msgs.ControlCommand{Speed: 40, SteeringAngle: rad(-10)})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	sent := tr.sent()
	require.Len(t, sent, 301)
	for _, f := range sent[1:] {
		require.Equal(t, uint16(1500), f.SpeedCode())
		require.Equal(t, uint16(90), f.SteeringCode())
	}
	require.True(t, tr.closed)

	require.True(t, s.Degraded())
	require.True(t, s.State().Degraded)
	_, err = s.Step(&msgs.ControlCommand{Speed: 10})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.Len(t, tr.sent(), 301, "no I/O after close")
}

type eventSink struct {
	events chan fx.Message
}

func (s *eventSink) SendEvent(ctx context.Context, msg fx.Message) error {
	select {
	case s.events <- msg:
	default:
	}
	return nil
}

func TestSessionInLoop(t *testing.T) {
	tr := &fakeTransport{}
	sink := &eventSink{events: make(chan fx.Message, 16)}
	s := NewSession(tr)
	s.Registrar = sink
	s.NeutralRepeat = 2

	loop := fx.NewLoop()
	loop.Interval = 5 * time.Millisecond
	loop.Add(s)
	loop.PostMessage(&msgs.ControlCommand{Speed: 10})
	tr.feed(sensorFrame(100))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	var gotVehicle, gotSensors bool
	timeout := time.After(time.Second)
	for !gotVehicle || !gotSensors {
		select {
		case msg := <-sink.events:
			switch msg.(type) {
			case *msgs.VehicleData:
				gotVehicle = true
			case *msgs.SensorBoardData:
				gotSensors = true
			}
		case <-timeout:
			t.Fatal("no events")
		}
	}

	cancel()
	require.Equal(t, context.Canceled, <-done)
	sent := tr.sent()
	require.True(t, len(sent) >= 3)
	require.Equal(t, uint16(1580), sent[0].SpeedCode())
	require.Equal(t, uint16(1500), sent[len(sent)-1].SpeedCode())
}
