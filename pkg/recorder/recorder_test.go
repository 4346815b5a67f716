package recorder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/boardlink/pkg/framework"
	"github.com/robotalks/boardlink/pkg/l1/msgs"
)

func TestRecordAndPlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.rec")
	rec, err := Create(path)
	require.NoError(t, err)
	start := time.Unix(1700000000, 0)
	tick := 0
	rec.now = func() time.Time {
		tick++
		return start.Add(time.Duration(tick) * time.Millisecond)
	}

	ctx := context.Background()
	require.NoError(t, rec.SendEvent(ctx, &msgs.VehicleData{AbsTraveledPath: 1.5, Heading: 90}))
	require.NoError(t, rec.SendEvent(ctx, &msgs.SensorBoardData{Distances: map[uint32]float64{0: 0.2, 3: -1}}))
	require.Equal(t, msgs.ErrNotSerializable, rec.SendEvent(ctx, &plainMsg{}))
	require.Equal(t, 2, rec.Count())
	require.NoError(t, rec.Close())
	require.Equal(t, os.ErrClosed, rec.SendEvent(ctx, &msgs.VehicleData{}))

	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	entry, err := p.Next()
	require.NoError(t, err)
	require.True(t, entry.Time.Equal(start.Add(time.Millisecond)))
	require.Equal(t, 1.5, entry.Msg.(*msgs.VehicleData).AbsTraveledPath)

	entry, err = p.Next()
	require.NoError(t, err)
	require.True(t, entry.Typed.IsEvent())
	require.Equal(t, -1.0, entry.Msg.(*msgs.SensorBoardData).Distances[3])

	_, err = p.Next()
	require.Equal(t, io.EOF, err)
}

func TestPlayTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.rec")
	require.NoError(t, os.WriteFile(path, []byte{4, 0, 0, 0, 1, 2, 3, 4}, 0644))
	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()
	_, err = p.Next()
	require.Equal(t, io.ErrUnexpectedEOF, err)
}

type plainMsg struct{}

func (m *plainMsg) NewMessage() fx.Message { return &plainMsg{} }
