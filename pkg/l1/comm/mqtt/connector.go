package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/boardlink/pkg/l1"
	"github.com/robotalks/boardlink/pkg/l1/comm"
)

// Defaults of Connector.
const (
	DefaultDiscoverTimeout = 500 * time.Millisecond
	DefaultConnectTimeout  = 5 * time.Second
)

// Connector finds and connects controllers through the retained meta
// topics published by Registrar.
type Connector struct {
	DiscoverTimeout time.Duration
	// ConnectTimeout applies when ctx has no deadline.
	ConnectTimeout time.Duration

	options     *paho.ClientOptions
	topicPrefix string
}

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		ConnectTimeout:  DefaultConnectTimeout,
		options:         opts,
		topicPrefix:     topicPrefix,
	}, nil
}

func (c *Connector) connectTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return DefaultConnectTimeout
}

// Discover collects the controllers announced within DiscoverTimeout.
// Each controller is reported once, with its latest meta.
func (c *Connector) Discover(ctx context.Context) ([]l1.ControllerInfo, error) {
	q := NewQueue(c.options, c.topicPrefix)
	if err := q.ConnectWait(c.connectTimeout(ctx)); err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	defer q.Close()

	infoCh := make(chan l1.ControllerInfo, 16)
	q.Sub("+/+/meta", Handler(func(topic string, payload []byte) {
		if info, ok := parseMeta(topic, payload); ok {
			select {
			case infoCh <- info:
			default:
				glog.Warningf("discover: drop meta of %s", info.Ref.Name())
			}
		}
	}))

	dur := c.DiscoverTimeout
	if dur <= 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	var found []l1.ControllerInfo
	index := make(map[string]int)
	for {
		select {
		case info := <-infoCh:
			name := info.Ref.Name()
			if i, ok := index[name]; ok {
				found[i] = info
				continue
			}
			index[name] = len(found)
			found = append(found, info)
		case <-timeout:
			return found, nil
		case <-ctx.Done():
			return found, ctx.Err()
		}
	}
}

// parseMeta parses the retained meta on TYPE/ID/meta. An empty payload
// means the controller has gone.
func parseMeta(topic string, payload []byte) (info l1.ControllerInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[2] != "meta" || len(payload) == 0 {
		return
	}
	info.Ref = l1.ControllerRef{Type: items[0], ID: items[1]}
	if !info.Ref.IsValid() {
		return
	}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.V(1).Infof("invalid meta of %s: %v", info.Ref.Name(), err)
	}
	return info, true
}

// Connect opens a connection to the controller ref. It doesn't check the
// controller is alive.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	conn := &ControllerConn{
		Queue: NewQueue(c.options, c.topicPrefix),
	}
	conn.Init(NewPacketReadWriter(conn.Queue).ForConnector(ref))
	if err := conn.Queue.ConnectWait(c.connectTimeout(ctx)); err != nil {
		return nil, fmt.Errorf("connect %s: %w", ref.Name(), err)
	}
	return conn, nil
}

// ControllerConn is a comm.ControllerConn over MQTT. Close disconnects
// from the broker.
type ControllerConn struct {
	comm.ControllerConn
	Queue *Queue
}

// Close implements io.Closer.
func (c *ControllerConn) Close() error {
	return c.Queue.Close()
}
