package l1

import (
	"context"
	"strings"

	fx "github.com/robotalks/boardlink/pkg/framework"
)

// Registrar publishes an L1 controller to its consumers, e.g. an MQTT
// broker, websocket clients or a recording file. Commands received by a
// Registrar are posted to the loop as CommandMsg.
type Registrar interface {
	// SendEvent sends an event to L2.
	SendEvent(context.Context, fx.Message) error
}

// DefaultControllerType is the controller type of the board proxy.
const DefaultControllerType = "board"

// Command represents a received command to be processed.
type Command interface {
	Msg() fx.Message
	Done(fx.Message) error
}

// CommandMsg wraps a Command as a Message.
type CommandMsg struct {
	Command Command
}

// NewMessage implements Message.
func (m *CommandMsg) NewMessage() fx.Message { return &CommandMsg{} }

// ControllerRef is a reference to an L1 controller.
type ControllerRef struct {
	// Type is controller type, DefaultControllerType for board proxies.
	Type string
	// ID is unique ID of the vehicle.
	ID string
}

// ParseControllerRef parses "type/id".
func ParseControllerRef(name string) (ref ControllerRef, ok bool) {
	if pos := strings.Index(name, "/"); pos > 0 {
		ref.Type, ref.ID = name[:pos], name[pos+1:]
	}
	return ref, ref.IsValid() && !strings.Contains(ref.ID, "/")
}

// Name retrieves the name from ref.
func (r ControllerRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates ControllerRef is valid.
func (r ControllerRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// ControllerMeta provides metadata for L1 controller.
type ControllerMeta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// ControllerInfo provides information of an L1 controller.
type ControllerInfo struct {
	Ref  ControllerRef
	Meta ControllerMeta
}

// Connector is used by L2 components to connect to an L1 controller.
type Connector interface {
	// Discover enumerates registered controllers.
	Discover(context.Context) ([]ControllerInfo, error)
	// Connect connects to the specified controller.
	Connect(context.Context, ControllerRef) (ControllerConn, error)
}

// ControllerConn is the connection to a controller.
type ControllerConn interface {
	// DoCommand executes a command.
	DoCommand(fx.Message) CommandFuture
}

// Result represents result of a command.
type Result struct {
	Msg fx.Message
	Err error
}

// CommandFuture is the future of sent command.
type CommandFuture interface {
	ResultChan() <-chan Result
}

// Do sends a command and waits for its result or ctx.
func Do(ctx context.Context, conn ControllerConn, msg fx.Message) (fx.Message, error) {
	select {
	case r, ok := <-conn.DoCommand(msg).ResultChan():
		if !ok {
			return nil, context.Canceled
		}
		return r.Msg, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
