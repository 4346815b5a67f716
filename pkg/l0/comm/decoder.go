package comm

import (
	"io"

	"github.com/golang/glog"
)

// SyncState indicates the state of the receiving side.
type SyncState int

const (
	// SyncStateAwaiting means no frame is being received.
	SyncStateAwaiting SyncState = iota
	// SyncStateCaptured means a full frame is buffered and not yet validated.
	SyncStateCaptured
	// SyncStateValidated means the last frame passed validation.
	SyncStateValidated
	// SyncStateRejected means the last frame failed validation.
	SyncStateRejected
)

// String implements fmt.Stringer.
func (s SyncState) String() string {
	switch s {
	case SyncStateAwaiting:
		return "awaiting-sync"
	case SyncStateCaptured:
		return "frame-captured"
	case SyncStateValidated:
		return "validated"
	case SyncStateRejected:
		return "rejected"
	}
	return "unknown"
}

// Decoder reads SensorFrames from a byte stream and recovers from
// misalignment.
type Decoder struct {
	state   SyncState
	last    SyncState
	resyncs int
	frame   SensorFrame
}

// State gets the current state. Between calls to Decode it is always
// SyncStateAwaiting, use LastResult for the outcome of the previous frame.
func (d *Decoder) State() SyncState {
	return d.state
}

// LastResult returns SyncStateValidated or SyncStateRejected for the most
// recent frame, or SyncStateAwaiting if no frame has been decoded.
func (d *Decoder) LastResult() SyncState {
	return d.last
}

// Resyncs returns the number of resynchronizations performed.
func (d *Decoder) Resyncs() int {
	return d.resyncs
}

// Reset drops any partially received frame.
func (d *Decoder) Reset() {
	d.state = SyncStateAwaiting
	d.frame = SensorFrame{}
}

// Decode reads exactly one frame from r.
//
// If the first byte is not Start, the following bytes are skipped up to and
// including the next End marker. The byte after End is the checksum of that frame and is
// skipped too, the following byte is taken as the candidate Start. This
// doesn't guarantee alignment after a single corrupted byte, but makes
// progress on a continuous stream of frames.
func (d *Decoder) Decode(r io.Reader) (SensorFields, error) {
	defer d.Reset()
	var b [1]byte
	if err := readFull(r, b[:]); err != nil {
		return SensorFields{}, err
	}
	if b[0] != Start {
		d.resyncs++
		glog.V(3).Infof("resync: got 0x%02x, skip to end marker", b[0])
		// the unexpected byte itself never counts as End.
		for {
			if err := readFull(r, b[:]); err != nil {
				return SensorFields{}, err
			}
			if b[0] == End {
				break
			}
		}
		// checksum of the skipped frame.
		if err := readFull(r, b[:]); err != nil {
			return SensorFields{}, err
		}
		if err := readFull(r, b[:]); err != nil {
			return SensorFields{}, err
		}
	}
	d.frame[sensorPosStart] = b[0]
	if err := readFull(r, d.frame[sensorPosStart+1:]); err != nil {
		return SensorFields{}, err
	}
	d.state = SyncStateCaptured
	if err := d.frame.Validate(); err != nil {
		d.last = SyncStateRejected
		glog.V(3).Infof("frame rejected: %v % x", err, d.frame[:])
		return SensorFields{}, err
	}
	d.last = SyncStateValidated
	return d.frame.Fields(), nil
}

func readFull(r io.Reader, p []byte) error {
	if _, err := io.ReadFull(r, p); err != nil {
		return &TransportError{Op: "read", Err: err}
	}
	return nil
}
