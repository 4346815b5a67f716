// Package recorder persists the events published by an L1 controller and
// plays them back.
//
// A recording is a sequence of length prefixed packets. Each packet holds
// the time the event was sent as little-endian nanoseconds since the Unix
// epoch, followed by the encoded msgs.Typed.
package recorder

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/boardlink/pkg/framework"
	"github.com/robotalks/boardlink/pkg/l1/comm/stream"
	"github.com/robotalks/boardlink/pkg/l1/msgs"
)

const timestampSize = 8

// Recorder implements l1.Registrar by appending events to a file.
type Recorder struct {
	file    *os.File
	packets *stream.ReadWriter
	count   int
	lock    sync.Mutex
	now     func() time.Time
}

// Create creates or truncates the file at path.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording %s: %w", path, err)
	}
	return &Recorder{file: f, packets: stream.New(f), now: time.Now}, nil
}

// SendEvent implements Registrar.
func (r *Recorder) SendEvent(ctx context.Context, msg fx.Message) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	data, err := typed.Encode()
	if err != nil {
		return err
	}
	pkt := make([]byte, timestampSize+len(data))
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.file == nil {
		return os.ErrClosed
	}
	binary.LittleEndian.PutUint64(pkt, uint64(r.now().UnixNano()))
	copy(pkt[timestampSize:], data)
	if err := r.packets.WritePacket(pkt); err != nil {
		return err
	}
	r.count++
	return nil
}

// Count returns the number of recorded events.
func (r *Recorder) Count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.count
}

// Close implements io.Closer.
func (r *Recorder) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// AddToLoop implements LoopAdder.
func (r *Recorder) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(fx.NamedRun("recorder", r))
}

// Run implements Runnable. The file is closed when ctx is done.
func (r *Recorder) Run(ctx context.Context) error {
	<-ctx.Done()
	glog.Infof("recorded %d events", r.Count())
	if err := r.Close(); err != nil {
		return err
	}
	return ctx.Err()
}

// Entry is a recorded event.
type Entry struct {
	Time  time.Time
	Typed *msgs.Typed
	// Msg is nil if the type is unknown.
	Msg fx.Message
}

// Player reads a recording.
type Player struct {
	file    *os.File
	packets *stream.ReadWriter
}

// Open opens a recording for playback.
func Open(path string) (*Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Player{file: f, packets: stream.New(f)}, nil
}

// Next reads the next entry. It returns io.EOF at the end of recording.
func (p *Player) Next() (*Entry, error) {
	pkt, err := p.packets.ReadPacket()
	if err != nil {
		return nil, err
	}
	if len(pkt) < timestampSize {
		return nil, io.ErrUnexpectedEOF
	}
	typed, err := msgs.DecodeTyped(pkt[timestampSize:])
	if err != nil {
		return nil, err
	}
	entry := &Entry{
		Time:  time.Unix(0, int64(binary.LittleEndian.Uint64(pkt))),
		Typed: typed,
	}
	if msg, err := typed.Decode(); err == nil {
		entry.Msg = msg
	} else {
		glog.V(1).Infof("skip decoding type %x: %v", typed.TypeId, err)
	}
	return entry, nil
}

// Close implements io.Closer.
func (p *Player) Close() error {
	return p.file.Close()
}
