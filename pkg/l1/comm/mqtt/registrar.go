package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/boardlink/pkg/framework"
	"github.com/robotalks/boardlink/pkg/l1"
	"github.com/robotalks/boardlink/pkg/l1/comm"
)

// Registrar implements l1.Registrar using MQTT.
type Registrar struct {
	Queue *Queue
	Info  l1.ControllerInfo

	metaJSON  string
	registrar comm.Registrar
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info l1.ControllerInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+info.Ref.Name()+"/meta", nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("boardlink:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: string(meta),
	}
	r.Queue.OnConnect = func(*Queue) { r.onConnected() }
	r.registrar.Init(NewPacketReadWriter(r.Queue).ForController(info.Ref))
	return r, nil
}

// SendEvent implements Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.registrar.SendEvent(ctx, msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.registrar)
	loop.AddRunnable(r)
}

// ConnectRetryInterval is the wait between failed initial connects.
const ConnectRetryInterval = 5 * time.Second

// Run implements Runnable. It keeps trying to connect until the broker is
// reachable, paho reconnects by itself afterwards. The retained meta is
// cleared on exit so the controller disappears from discovery.
func (r *Registrar) Run(ctx context.Context) error {
	for {
		err := r.Queue.ConnectWait(ConnectRetryInterval)
		if err == nil {
			break
		}
		glog.Warningf("mqtt connect: %v, retry in %v", err, ConnectRetryInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ConnectRetryInterval):
		}
	}
	<-ctx.Done()
	if token := r.Queue.PubWith(r.Info.Ref.Name()+"/meta", nil, 1, true); !token.WaitTimeout(time.Second) {
		glog.Warning("clear meta timeout")
	}
	r.Queue.Close()
	return nil
}

func (r *Registrar) onConnected() {
	r.Queue.PubWith(r.Info.Ref.Name()+"/meta", []byte(r.metaJSON), 1, true)
}
