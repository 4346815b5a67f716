package calib

import (
	"math"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/boardlink/pkg/l0/comm"
)

func TestDistance(t *testing.T) {
	testCases := []struct {
		name   string
		ch     Channel
		raws   []uint16
		expect float64
	}{
		{"ir zero is far", ChannelIRFrontRight, []uint16{0}, OutOfRange},
		{"ir close", ChannelIRBack, []uint16{67}, 2914.0/72/100 - 0.01},
		{"ir limit", ChannelIRMiddleRight, []uint16{1000}, 2914.0/1005/100 - 0.01},
		{"us in range", ChannelUSFront, []uint16{80}, 0.8},
		{"us at limit", ChannelUSFrontRight, []uint16{120}, 1.2},
		{"us beyond limit", ChannelUSFront, []uint16{121}, OutOfRange},
		{"us spike filtered", ChannelUSFront, []uint16{50, 50, 50, 500, 50}, 0.5},
		{"us spike persists", ChannelUSFront, []uint16{50, 500, 500, 500}, OutOfRange},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := New(DefaultConfig())
			var val float64
			for _, raw := range tc.raws {
				val = c.Distance(tc.ch, raw)
			}
			require.InDelta(t, tc.expect, val, 1e-9)
		})
	}
}

func TestDistanceChannelsIndependent(t *testing.T) {
	c := New(DefaultConfig())
	require.InDelta(t, 0.3, c.Distance(ChannelUSFront, 30), 1e-9)
	require.InDelta(t, 1.0, c.Distance(ChannelUSFrontRight, 100), 1e-9)
	require.InDelta(t, 0.3, c.Distance(ChannelUSFront, 30), 1e-9)
}

func TestCalibrate(t *testing.T) {
	c := New(DefaultConfig())
	r := c.Calibrate(comm.SensorFields{
		AbsDistance:   1234,
		AbsDirection:  180,
		IRFrontRight:  0,
		IRMiddleRight: 67,
		IRBack:        200,
		USFront:       80,
		USFrontRight:  130,
	})
	require.InDelta(t, 12.34, r.Vehicle.Path, 1e-9)
	require.InDelta(t, math.Pi, r.Vehicle.Heading, 1e-9)
	require.Equal(t, float64(OutOfRange), r.Distances[ChannelIRFrontRight])
	require.InDelta(t, (2914.0/205-1)/100, r.Distances[ChannelIRBack], 1e-9)
	require.InDelta(t, 0.3947, r.Distances[ChannelIRMiddleRight], 1e-4)
	require.InDelta(t, 0.8, r.Distances[ChannelUSFront], 1e-9)
	require.Equal(t, float64(OutOfRange), r.Distances[ChannelUSFrontRight])

	c.Reset()
	r = c.Calibrate(comm.SensorFields{USFront: 20})
	require.InDelta(t, 0.2, r.Distances[ChannelUSFront], 1e-9)
}

func TestConfigTOML(t *testing.T) {
	conf := DefaultConfig()
	_, err := toml.Decode(`
[us_front]
kind = "ultrasonic"
limit_cm = 200

[ir_back]
limit_cm = 60
bias = 0
`, &conf)
	require.NoError(t, err)
	require.NoError(t, conf.Validate())
	require.Equal(t, float64(200), conf.USFront.LimitCm)
	require.Equal(t, float64(60), conf.IRBack.LimitCm)
	require.Equal(t, float64(0), conf.IRBack.Bias)
	require.Equal(t, float64(DefaultIRNumerator), conf.IRBack.Numerator)

	c := New(conf)
	require.InDelta(t, 1.5, c.Distance(ChannelUSFront, 150), 1e-9)
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero limit", func(c *Config) { c.USFront.LimitCm = 0 }},
		{"negative limit", func(c *Config) { c.IRBack.LimitCm = -1 }},
		{"zero offset", func(c *Config) { c.IRFrontRight.Offset = 0 }},
		{"zero numerator", func(c *Config) { c.IRMiddleRight.Numerator = 0 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := DefaultConfig()
			tc.modify(&conf)
			require.Error(t, conf.Validate())
		})
	}
	conf := DefaultConfig()
	require.NoError(t, conf.Validate())
}

func TestKindText(t *testing.T) {
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("US")))
	require.Equal(t, Ultrasonic, k)
	require.Error(t, k.UnmarshalText([]byte("lidar")))
	text, err := Infrared.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "infrared", string(text))
}
