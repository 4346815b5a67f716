package framework

import (
	"context"
	"time"
)

// Runnable is a background task started alongside the loop.
type Runnable interface {
	Run(context.Context) error
}

// Named is implemented by runners that want errors prefixed
// with their name.
type Named interface {
	Name() string
}

// Message is anything exchanged through the loop: commands
// from clients, events from the board.
type Message interface {
	// NewMessage creates an empty message of the same type,
	// used when decoding.
	NewMessage() Message
}

// Controller is invoked once per iteration at the priority
// level it was added with.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// ControlContext is what a Controller sees during one iteration.
type ControlContext interface {
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	PriorityLevel() int
	// Messages are those posted before the iteration started,
	// plus what higher levels added.
	Messages() MessageStore

	LoopControl
}

// LoopControl is available to controllers and to runners started
// by the loop, see LoopCtlFrom.
type LoopControl interface {
	// PostMessage queues msg for the next iteration. Safe for
	// concurrent use.
	PostMessage(msg Message)
	// TriggerNext starts the next iteration right after the
	// current one instead of waiting for the ticker.
	TriggerNext()
}

// PriorityLevels is the number of priority levels. Lower levels
// run first.
const PriorityLevels int = 16

// Priority levels.
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvSense is for readers of sensors.
	PrLvSense = PrLvHigh
	// PrLvControl is for command handling.
	PrLvControl = PrLvNormal
	// PrLvAcuate is for writing to actuators, e.g. the link step.
	PrLvAcuate = PrLvLow
	// PrLvPublish runs last, after all events of the iteration
	// have been produced.
	PrLvPublish = PrLvIdle
)

// MessageStore holds the messages of one iteration.
type MessageStore interface {
	ProcessMessages(MessageProcessor)

	MessageAppender
}

// MessageAppender appends messages visible to lower priority
// levels of the same iteration.
type MessageAppender interface {
	AddMessages(msgs ...Message)
}

// MessageProcessor visits messages in a MessageStore.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext is passed to a MessageProcessor for
// each message.
type MessageProcessingContext interface {
	CurrentMessage() Message
	// MessageTaken removes the current message from the store.
	MessageTaken()
	// StopProcessing skips the remaining messages.
	StopProcessing()

	MessageAppender
}
