package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/boardlink/pkg/framework"
	"github.com/robotalks/boardlink/pkg/l1/msgs"
)

func TestServerEvents(t *testing.T) {
	server := NewServer("127.0.0.1:0")
	loop := fx.NewLoop()
	loop.Add(server)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	addr := server.ListenAddr()
	require.NotNil(t, addr)
	conn, err := websocket.Dial("ws://"+addr.String()+DefaultPath, "", "http://localhost/")
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for server.Clients() == 0 {
		require.True(t, time.Now().Before(deadline), "client not registered")
		time.Sleep(5 * time.Millisecond)
	}

	require.NoError(t, server.SendEvent(ctx, &msgs.VehicleData{AbsTraveledPath: 1.5}))
	pkt, err := New(conn).ReadPacket()
	require.NoError(t, err)
	typed, err := msgs.DecodeTyped(pkt)
	require.NoError(t, err)
	msg, err := typed.Decode()
	require.NoError(t, err)
	require.Equal(t, 1.5, msg.(*msgs.VehicleData).AbsTraveledPath)
}
