package websocket

import (
	"context"
	"net"
	"net/http"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/boardlink/pkg/framework"
	"github.com/robotalks/boardlink/pkg/l1/comm"
)

// DefaultPath is the URL path accepting websocket connections.
const DefaultPath = "/l1"

// Server accepts websocket clients. Each client receives all events and
// may send commands. It implements l1.Registrar.
type Server struct {
	Addr string
	Path string

	clients  comm.RegistrarMux
	listener net.Listener
	ready    chan struct{}
}

// NewServer creates a Server listening on addr.
func NewServer(addr string) *Server {
	return &Server{Addr: addr, Path: DefaultPath, ready: make(chan struct{})}
}

// SendEvent implements Registrar.
func (s *Server) SendEvent(ctx context.Context, msg fx.Message) error {
	return s.clients.SendEvent(ctx, msg)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	return s.clients.Len()
}

// ListenAddr returns the bound address once the server is running.
func (s *Server) ListenAddr() net.Addr {
	<-s.ready
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// AddToLoop implements LoopAdder.
func (s *Server) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(fx.NamedRun("websocket", s))
}

// Run implements Runnable. ctx must be derived from the loop.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		close(s.ready)
		return err
	}
	s.listener = ln
	close(s.ready)
	glog.Infof("websocket listening on %s%s", ln.Addr(), s.Path)

	mux := http.NewServeMux()
	mux.Handle(s.Path, websocket.Handler(func(conn *websocket.Conn) {
		s.serve(ctx, conn)
	}))
	server := &http.Server{Handler: mux}
	return fx.RunWithContextCancel(ctx, func() {
		server.Close()
	}, func() error {
		return server.Serve(ln)
	})
}

func (s *Server) serve(ctx context.Context, conn *websocket.Conn) {
	reg := &comm.Registrar{}
	reg.Init(New(conn))
	s.clients.Add(reg)
	defer s.clients.Remove(reg)
	glog.Infof("websocket client %s connected", conn.Request().RemoteAddr)
	err := reg.Run(ctx)
	glog.Infof("websocket client %s disconnected: %v", conn.Request().RemoteAddr, err)
}
