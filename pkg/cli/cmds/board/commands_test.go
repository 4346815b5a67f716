package board

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDrive(t *testing.T) {
	msg, err := ParseDrive([]string{"20"})
	require.NoError(t, err)
	require.Equal(t, 20.0, msg.Speed)
	require.Zero(t, msg.SteeringAngle)

	msg, err = ParseDrive([]string{"-5", "90"})
	require.NoError(t, err)
	require.Equal(t, -5.0, msg.Speed)
	require.InDelta(t, math.Pi/2, msg.SteeringAngle, 1e-12)

	for _, args := range [][]string{nil, {"fast"}, {"1", "left"}} {
		_, err = ParseDrive(args)
		require.Error(t, err)
	}
}
