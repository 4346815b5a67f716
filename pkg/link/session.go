// Package link runs the serial protocol between the L1 controller and the
// sensor/actuator board.
package link

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/boardlink/pkg/calib"
	fx "github.com/robotalks/boardlink/pkg/framework"
	"github.com/robotalks/boardlink/pkg/l0/comm"
	"github.com/robotalks/boardlink/pkg/l1"
	"github.com/robotalks/boardlink/pkg/l1/msgs"
)

// DefaultNeutralRepeat is the number of neutral frames written on Close.
const DefaultNeutralRepeat = 300

// BacklogLimit is the number of buffered bytes beyond which unread input
// is discarded.
const BacklogLimit = 2 * comm.SensorFrameSize

// Stats are the counters of a Session.
type Stats struct {
	FramesSent      uint64
	FramesReceived  uint64
	FramingErrors   uint64
	ChecksumErrors  uint64
	TransportErrors uint64
	WriteErrors     uint64
	Flushes         uint64
}

// State is a snapshot of a Session.
type State struct {
	Degraded bool
	// Transmitted is false until the first control frame is written.
	Transmitted  bool
	SpeedCode    uint16
	SteeringCode uint16
	SyncState    comm.SyncState
	LastResult   comm.SyncState
	Stats        Stats
}

// Session exchanges frames with the board once per control cycle.
// A Session without Transport, or after Close, is degraded and performs
// no I/O.
type Session struct {
	Transport  comm.Transport
	Encoding   Encoding
	Calibrator *calib.Calibrator
	Registrar  l1.Registrar
	// SendOnlyWhenSynced holds control frames while the last receive
	// attempt failed.
	SendOnlyWhenSynced bool
	NeutralRepeat      int

	decoder comm.Decoder
	cmd     msgs.ControlCommand
	pending *msgs.ControlCommand
	state   State
	synced  bool
	closed  bool
	lock    sync.Mutex
}

// NewSession creates a Session with default encoding and calibration.
func NewSession(transport comm.Transport) *Session {
	return &Session{
		Transport:     transport,
		Encoding:      DefaultEncoding(),
		Calibrator:    calib.New(calib.DefaultConfig()),
		NeutralRepeat: DefaultNeutralRepeat,
		synced:        true,
	}
}

// Degraded tells if the session runs without a board.
func (s *Session) Degraded() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.degraded()
}

func (s *Session) degraded() bool {
	return s.Transport == nil || s.closed
}

// Step runs one cycle. cmd may be nil to keep the last command.
// Readings are nil unless a valid frame is received in this cycle.
// The returned error is informational, the session stays usable.
func (s *Session) Step(cmd *msgs.ControlCommand) (*calib.Readings, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if cmd != nil {
		s.cmd = *cmd
	}
	if s.degraded() {
		return nil, nil
	}
	sendErr := s.send()
	readings, recvErr := s.receive()
	shedErr := s.shed()
	for _, err := range []error{sendErr, recvErr, shedErr} {
		if err != nil {
			return readings, err
		}
	}
	return readings, nil
}

func (s *Session) send() error {
	speed, steering := s.Encoding.Encode(s.cmd.Speed, s.cmd.SteeringAngle)
	if s.state.Transmitted && speed == s.state.SpeedCode && steering == s.state.SteeringCode {
		return nil
	}
	if s.SendOnlyWhenSynced && !s.synced {
		glog.V(3).Info("hold control frame, link not synced")
		return nil
	}
	frame := comm.EncodeControlFrame(speed, steering)
	if _, err := s.Transport.Write(frame.Bytes()); err != nil {
		s.state.Stats.WriteErrors++
		recordError(errKindWrite)
		return &comm.TransportError{Op: "write", Err: err}
	}
	s.state.Transmitted = true
	s.state.SpeedCode, s.state.SteeringCode = speed, steering
	s.state.Stats.FramesSent++
	recordFrameSent()
	glog.V(2).Infof("sent speed=%d steering=%d", speed, steering)
	return nil
}

func (s *Session) receive() (*calib.Readings, error) {
	if s.Transport.Available() < comm.SensorFrameSize {
		return nil, nil
	}
	fields, err := s.decoder.Decode(s.Transport)
	if err != nil {
		s.synced = false
		switch {
		case errors.Is(err, comm.ErrFraming):
			s.state.Stats.FramingErrors++
			recordError(errKindFraming)
		case errors.Is(err, comm.ErrChecksum):
			s.state.Stats.ChecksumErrors++
			recordError(errKindChecksum)
		default:
			s.state.Stats.TransportErrors++
			recordError(errKindTransport)
		}
		return nil, err
	}
	s.synced = true
	s.state.Stats.FramesReceived++
	recordFrameReceived()
	readings := s.Calibrator.Calibrate(fields)
	return &readings, nil
}

func (s *Session) shed() error {
	backlog := s.Transport.Available()
	if backlog <= BacklogLimit {
		return nil
	}
	s.state.Stats.Flushes++
	recordFlush()
	glog.V(1).Infof("input backlog %d bytes, flushing", backlog)
	if err := s.Transport.FlushInput(); err != nil {
		s.state.Stats.TransportErrors++
		recordError(errKindTransport)
		return &comm.TransportError{Op: "flush", Err: err}
	}
	return nil
}

// State returns a snapshot.
func (s *Session) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	state := s.state
	state.Degraded = s.degraded()
	state.SyncState = s.decoder.State()
	state.LastResult = s.decoder.LastResult()
	return state
}

// LinkStatus reports State as a message.
func (s *Session) LinkStatus() *msgs.LinkStatus {
	state := s.State()
	return &msgs.LinkStatus{
		Degraded:        state.Degraded,
		SyncState:       state.LastResult.String(),
		Transmitted:     state.Transmitted,
		SpeedCode:       uint32(state.SpeedCode),
		SteeringCode:    uint32(state.SteeringCode),
		FramesSent:      state.Stats.FramesSent,
		FramesReceived:  state.Stats.FramesReceived,
		FramingErrors:   state.Stats.FramingErrors,
		ChecksumErrors:  state.Stats.ChecksumErrors,
		TransportErrors: state.Stats.TransportErrors + state.Stats.WriteErrors,
		Flushes:         state.Stats.Flushes,
	}
}

// Close stops the vehicle by repeating the neutral frame and closes the
// transport.
func (s *Session) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.degraded() {
		return nil
	}
	s.closed = true
	var errs fx.AggregatedError
	frame := comm.EncodeControlFrame(s.Encoding.Neutral())
	for i := 0; i < s.NeutralRepeat; i++ {
		if _, err := s.Transport.Write(frame.Bytes()); err != nil {
			errs.Add(&comm.TransportError{Op: "write", Err: err})
			break
		}
	}
	if closer, ok := s.Transport.(io.Closer); ok {
		errs.Add(closer.Close())
	}
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (s *Session) AddToLoop(loop *fx.Loop) {
	if runnable, ok := s.Transport.(fx.Runnable); ok {
		loop.AddRunnable(fx.NamedRun("transport", runnable))
	}
	loop.AddController(fx.PrLvControl, fx.ControlFunc(s.handleCommands))
	loop.AddController(fx.PrLvAcuate, s)
}

// Run implements Runnable. It sends neutral frames when ctx is done.
func (s *Session) Run(ctx context.Context) error {
	<-ctx.Done()
	glog.Info("stopping vehicle")
	if err := s.Close(); err != nil {
		glog.Errorf("close link error: %v", err)
	}
	return ctx.Err()
}

// Control implements Controller.
func (s *Session) Control(cc fx.ControlContext) error {
	cmd := s.pending
	s.pending = nil
	readings, err := s.Step(cmd)
	if err != nil {
		if comm.IsTransportError(err) && !errors.Is(err, comm.ErrNoData) {
			glog.Warningf("link error: %v", err)
		} else {
			glog.V(1).Infof("frame dropped: %v", err)
		}
	}
	if readings == nil || s.Registrar == nil {
		return nil
	}
	var errs fx.AggregatedError
	errs.Add(s.Registrar.SendEvent(cc.Context(), VehicleData(readings)))
	errs.Add(s.Registrar.SendEvent(cc.Context(), SensorBoardData(readings)))
	return errs.Aggregate()
}

func (s *Session) handleCommands(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		switch msg := mctx.CurrentMessage().(type) {
		case *l1.CommandMsg:
			switch m := msg.Command.Msg().(type) {
			case *msgs.ControlCommand:
				mctx.MessageTaken()
				s.pending = m
				msg.Command.Done(msgs.NewCommandOK())
			case *msgs.LinkStatusQuery:
				mctx.MessageTaken()
				msg.Command.Done(s.LinkStatus())
			}
		case *msgs.ControlCommand:
			mctx.MessageTaken()
			s.pending = msg
		}
	}))
	return nil
}

// VehicleData converts readings to the odometry event.
func VehicleData(r *calib.Readings) *msgs.VehicleData {
	return &msgs.VehicleData{
		AbsTraveledPath: r.Vehicle.Path,
		Heading:         r.Vehicle.Heading,
	}
}

// SensorBoardData converts readings to the distance event.
func SensorBoardData(r *calib.Readings) *msgs.SensorBoardData {
	data := &msgs.SensorBoardData{Distances: make(map[uint32]float64, len(r.Distances))}
	for ch, val := range r.Distances {
		data.Distances[uint32(ch)] = val
	}
	return data
}
