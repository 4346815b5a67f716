package msgs

import (
	"sort"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/boardlink/pkg/framework"
)

// CommandOK is the generic reply indicating success for commands.
type CommandOK struct {
}

// NewCommandOK creates a CommandOK.
func NewCommandOK() *CommandOK {
	return &CommandOK{}
}

// NewMessage implements Message.
func (m *CommandOK) NewMessage() fx.Message { return &CommandOK{} }

// TypeID implements SerializableMessage.
func (m *CommandOK) TypeID() uint32 { return CommandOKTypeID }

// Serializable implements SerializableMessage.
func (m *CommandOK) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandOK) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandOK) Reset() { *m = CommandOK{} }

// String implements proto.Message.
func (m *CommandOK) String() string { return proto.CompactTextString(m) }

// CommandErr is the generic message representing command error.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	return NewCommandErrFromMsg(err.Error())
}

// NewCommandErrFromMsg creates a CommandErr.
func NewCommandErrFromMsg(message string) *CommandErr {
	return &CommandErr{Message: message}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() fx.Message { return &CommandErr{} }

// TypeID implements SerializableMessage.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Serializable implements SerializableMessage.
func (m *CommandErr) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandErr) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandErr) Reset() { *m = CommandErr{} }

// String implements proto.Message.
func (m *CommandErr) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// ControlCommand sets the desired motion of the vehicle.
type ControlCommand struct {
	// Speed is in board units. Negative means reverse.
	Speed float64 `protobuf:"fixed64,1,opt,name=speed,proto3" json:"speed,omitempty"`
	// SteeringAngle is in radians, positive turns left.
	SteeringAngle float64 `protobuf:"fixed64,2,opt,name=steering_angle,proto3" json:"steering_angle,omitempty"`
}

// NewMessage implements Message.
func (m *ControlCommand) NewMessage() fx.Message { return &ControlCommand{} }

// TypeID implements SerializableMessage.
func (m *ControlCommand) TypeID() uint32 { return ControlCommandTypeID }

// Serializable implements SerializableMessage.
func (m *ControlCommand) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ControlCommand) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ControlCommand) Reset() { *m = ControlCommand{} }

// String implements proto.Message.
func (m *ControlCommand) String() string { return proto.CompactTextString(m) }

// LinkStatusQuery queries the state of the board link.
type LinkStatusQuery struct {
}

// NewMessage implements Message.
func (m *LinkStatusQuery) NewMessage() fx.Message { return &LinkStatusQuery{} }

// TypeID implements SerializableMessage.
func (m *LinkStatusQuery) TypeID() uint32 { return LinkStatusQueryTypeID }

// Serializable implements SerializableMessage.
func (m *LinkStatusQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *LinkStatusQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LinkStatusQuery) Reset() { *m = LinkStatusQuery{} }

// String implements proto.Message.
func (m *LinkStatusQuery) String() string { return proto.CompactTextString(m) }

// LinkStatus is the reply of LinkStatusQuery.
type LinkStatus struct {
	Degraded        bool   `protobuf:"varint,1,opt,name=degraded,proto3" json:"degraded,omitempty"`
	SyncState       string `protobuf:"bytes,2,opt,name=sync_state,proto3" json:"sync_state,omitempty"`
	Transmitted     bool   `protobuf:"varint,3,opt,name=transmitted,proto3" json:"transmitted,omitempty"`
	SpeedCode       uint32 `protobuf:"varint,4,opt,name=speed_code,proto3" json:"speed_code,omitempty"`
	SteeringCode    uint32 `protobuf:"varint,5,opt,name=steering_code,proto3" json:"steering_code,omitempty"`
	FramesSent      uint64 `protobuf:"varint,6,opt,name=frames_sent,proto3" json:"frames_sent,omitempty"`
	FramesReceived  uint64 `protobuf:"varint,7,opt,name=frames_received,proto3" json:"frames_received,omitempty"`
	FramingErrors   uint64 `protobuf:"varint,8,opt,name=framing_errors,proto3" json:"framing_errors,omitempty"`
	ChecksumErrors  uint64 `protobuf:"varint,9,opt,name=checksum_errors,proto3" json:"checksum_errors,omitempty"`
	TransportErrors uint64 `protobuf:"varint,10,opt,name=transport_errors,proto3" json:"transport_errors,omitempty"`
	Flushes         uint64 `protobuf:"varint,11,opt,name=flushes,proto3" json:"flushes,omitempty"`
}

// NewMessage implements Message.
func (m *LinkStatus) NewMessage() fx.Message { return &LinkStatus{} }

// TypeID implements SerializableMessage.
func (m *LinkStatus) TypeID() uint32 { return LinkStatusTypeID }

// Serializable implements SerializableMessage.
func (m *LinkStatus) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *LinkStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LinkStatus) Reset() { *m = LinkStatus{} }

// String implements proto.Message.
func (m *LinkStatus) String() string { return proto.CompactTextString(m) }

// VehicleData is the odometry event.
type VehicleData struct {
	// AbsTraveledPath is in meters.
	AbsTraveledPath float64 `protobuf:"fixed64,1,opt,name=abs_traveled_path,proto3" json:"abs_traveled_path,omitempty"`
	// Heading is in radians.
	Heading float64 `protobuf:"fixed64,2,opt,name=heading,proto3" json:"heading,omitempty"`
}

// NewMessage implements Message.
func (m *VehicleData) NewMessage() fx.Message { return &VehicleData{} }

// TypeID implements SerializableMessage.
func (m *VehicleData) TypeID() uint32 { return VehicleDataTypeID }

// Serializable implements SerializableMessage.
func (m *VehicleData) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *VehicleData) ProtoMessage() {}

// Reset implements proto.Message.
func (m *VehicleData) Reset() { *m = VehicleData{} }

// String implements proto.Message.
func (m *VehicleData) String() string { return proto.CompactTextString(m) }

// SensorBoardData is the distance event. Distances are keyed by sensor
// index, in meters, -1 when nothing is in range.
type SensorBoardData struct {
	Distances map[uint32]float64 `protobuf:"bytes,1,rep,name=distances,proto3" json:"distances,omitempty" protobuf_key:"varint,1,opt,name=key,proto3" protobuf_val:"fixed64,2,opt,name=value,proto3"`
}

// NewMessage implements Message.
func (m *SensorBoardData) NewMessage() fx.Message { return &SensorBoardData{} }

// TypeID implements SerializableMessage.
func (m *SensorBoardData) TypeID() uint32 { return SensorBoardDataTypeID }

// Serializable implements SerializableMessage.
func (m *SensorBoardData) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SensorBoardData) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SensorBoardData) Reset() { *m = SensorBoardData{} }

// String implements proto.Message.
func (m *SensorBoardData) String() string { return proto.CompactTextString(m) }

// Keys returns sensor indices in ascending order.
func (m *SensorBoardData) Keys() []uint32 {
	keys := make([]uint32, 0, len(m.Distances))
	for k := range m.Distances {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupBoard   uint32 = 0x00010000
	GroupCustom  uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	CommandOKTypeID       uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID      uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	LinkStatusQueryTypeID uint32 = GroupBoard | 0x0000
	LinkStatusTypeID      uint32 = LinkStatusQueryTypeID | TypeIDMaskReply
	ControlCommandTypeID  uint32 = GroupBoard | 0x0001
	VehicleDataTypeID     uint32 = GroupBoard | TypeIDKindEvent | 0x0000
	SensorBoardDataTypeID uint32 = GroupBoard | TypeIDKindEvent | 0x0001
)
