package comm

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/boardlink/pkg/framework"
	"github.com/robotalks/boardlink/pkg/l1"
	"github.com/robotalks/boardlink/pkg/l1/msgs"
)

// DefaultCommandExpiration is how long a command waits for its reply.
const DefaultCommandExpiration = 1 * time.Second

// ControllerConn implements l1.ControllerConn over a Pipe. Replies are
// matched to commands by sequence number, events are posted to the loop.
type ControllerConn struct {
	Expiration time.Duration

	pipe     Pipe
	seq      uint32
	inflight list.List
	bySeq    map[uint32]*pendingCommand
	lock     sync.Mutex
}

// Init initializes ControllerConn with defaults.
func (c *ControllerConn) Init(rw PacketReadWriter) {
	c.Expiration = DefaultCommandExpiration
	c.pipe.ReadWriter = rw
	c.pipe.Handler = msgs.HandleTypedMsgFunc(c.handleTypedMsg)
	c.bySeq = make(map[uint32]*pendingCommand)
}

// DoCommand implements ControllerConn.
func (c *ControllerConn) DoCommand(msg fx.Message) l1.CommandFuture {
	c.lock.Lock()
	defer c.lock.Unlock()
	// sequence 0 is reserved for events.
	if c.seq++; c.seq == 0 {
		c.seq++
	}
	cmd := &pendingCommand{
		seq:      c.seq,
		deadline: time.Now().Add(c.Expiration),
		result:   make(chan l1.Result, 1),
	}
	if err := c.pipe.SendCommandMsg(msg, cmd.seq); err != nil {
		cmd.complete(l1.Result{Err: err})
		return cmd
	}
	cmd.elem = c.inflight.PushBack(cmd)
	c.bySeq[cmd.seq] = cmd
	return cmd
}

// Pending returns the number of commands waiting for replies.
func (c *ControllerConn) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.inflight.Len()
}

// AddToLoop implements LoopAdder.
func (c *ControllerConn) AddToLoop(l *fx.Loop) {
	l.Add(&c.pipe)
	l.AddController(fx.PrLvPublish, fx.ControlFunc(c.expire))
}

func (c *ControllerConn) handleTypedMsg(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		loopCtl := fx.LoopCtlFrom(ctx)
		loopCtl.PostMessage(msg)
		loopCtl.TriggerNext()
		return nil
	}
	if !typed.IsReply() {
		glog.V(2).Infof("ignore command type %x from controller", typed.TypeId)
		return nil
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	cmd := c.bySeq[typed.Sequence]
	if cmd == nil {
		glog.V(2).Infof("reply seq %d has no pending command", typed.Sequence)
		return nil
	}
	c.inflight.Remove(cmd.elem)
	delete(c.bySeq, cmd.seq)
	result := l1.Result{Msg: msg}
	if cmdErr, ok := msg.(*msgs.CommandErr); ok {
		result.Err = cmdErr
	}
	cmd.complete(result)
	return nil
}

// expire fails the commands past their deadline. The list is ordered by
// deadline as Expiration doesn't change after Init.
func (c *ControllerConn) expire(cc fx.ControlContext) error {
	now := time.Now()
	c.lock.Lock()
	defer c.lock.Unlock()
	for elem := c.inflight.Front(); elem != nil; elem = c.inflight.Front() {
		cmd := elem.Value.(*pendingCommand)
		if cmd.deadline.After(now) {
			break
		}
		c.inflight.Remove(elem)
		delete(c.bySeq, cmd.seq)
		cmd.complete(l1.Result{Err: context.DeadlineExceeded})
	}
	return nil
}

type pendingCommand struct {
	seq      uint32
	deadline time.Time
	elem     *list.Element
	result   chan l1.Result
}

func (c *pendingCommand) complete(r l1.Result) {
	c.result <- r
	close(c.result)
}

func (c *pendingCommand) ResultChan() <-chan l1.Result {
	return c.result
}
