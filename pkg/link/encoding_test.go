package link

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}

func TestSpeedCode(t *testing.T) {
	enc := DefaultEncoding()
	tests := []struct {
		name     string
		speed    float64
		steering float64
		code     uint16
	}{
		{"reverse", -3, 0, 1180},
		{"small reverse", -0.2, 0, 1180},
		{"stop", 0, 0, 1500},
		{"truncated to stop", 0.5, 0, 1500},
		{"forward", 20, 0, 1590},
		{"forward fraction", 10.7, 0, 1580},
		{"cornering left", 20, rad(22), 1565},
		{"cornering right", 20, rad(-22), 1565},
		{"at cornering angle", 20, rad(21), 1590},
		{"stop while cornering", 0, rad(30), 1500},
		{"reverse while cornering", -5, rad(30), 1180},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.code, enc.SpeedCode(test.speed, test.steering))
		})
	}
}

func TestSteeringCode(t *testing.T) {
	enc := DefaultEncoding()
	tests := []struct {
		name string
		deg  float64
		code uint16
	}{
		{"center", 0, 90},
		{"left", 10, 100},
		{"right", -10, 80},
		{"rounded", 10.6, 101},
		{"just below left saturation", 24.9, 115},
		{"left saturation", 25, 130},
		{"beyond left", 60, 130},
		{"just above right saturation", -25.9, 64},
		{"right saturation", -26, 50},
		{"beyond right", -90, 50},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.code, enc.SteeringCode(rad(test.deg)))
		})
	}
}

func TestEncodingNeutral(t *testing.T) {
	enc := DefaultEncoding()
	speed, steering := enc.Neutral()
	require.Equal(t, uint16(1500), speed)
	require.Equal(t, uint16(90), steering)
	s, st := enc.Encode(0, 0)
	require.Equal(t, speed, s)
	require.Equal(t, steering, st)
}

func TestEncodingValidate(t *testing.T) {
	enc := DefaultEncoding()
	require.NoError(t, enc.Validate())

	bad := enc
	bad.RightSaturation = 5
	require.Error(t, bad.Validate())

	bad = enc
	bad.MaxSteering = 0
	require.Error(t, bad.Validate())

	bad = enc
	bad.SteeringCenter = 10
	require.Error(t, bad.Validate())
}
