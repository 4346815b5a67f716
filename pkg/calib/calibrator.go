// Package calib converts raw board readings into physical units.
package calib

import (
	"fmt"
	"math"

	"github.com/golang/glog"

	"github.com/robotalks/boardlink/pkg/filter"
	"github.com/robotalks/boardlink/pkg/l0/comm"
)

// OutOfRange is reported when an obstacle is beyond the channel limit.
const OutOfRange = -1

// Channel identifies a distance sensor.
type Channel int

// Channels in the order distances are published.
const (
	ChannelIRFrontRight Channel = iota
	ChannelIRBack
	ChannelIRMiddleRight
	ChannelUSFront
	ChannelUSFrontRight
	NumChannels
)

var channelNames = [NumChannels]string{
	"ir-front-right",
	"ir-back",
	"ir-middle-right",
	"us-front",
	"us-front-right",
}

// String implements fmt.Stringer.
func (c Channel) String() string {
	if c >= 0 && c < NumChannels {
		return channelNames[c]
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Raw picks the raw value of the channel from fields.
func (c Channel) Raw(fields *comm.SensorFields) uint16 {
	switch c {
	case ChannelIRFrontRight:
		return fields.IRFrontRight
	case ChannelIRBack:
		return fields.IRBack
	case ChannelIRMiddleRight:
		return fields.IRMiddleRight
	case ChannelUSFront:
		return fields.USFront
	case ChannelUSFrontRight:
		return fields.USFrontRight
	}
	return 0
}

// Vehicle is the odometry of the vehicle.
type Vehicle struct {
	// Path is the travelled distance in meters.
	Path float64
	// Heading is the absolute direction in radians.
	Heading float64
}

// Readings are the calibrated values from one sensor frame.
type Readings struct {
	Vehicle   Vehicle
	Distances [NumChannels]float64
}

// Calibrator keeps a median filter per channel.
type Calibrator struct {
	config  Config
	filters [NumChannels]filter.RunningMedian
}

// New creates a Calibrator.
func New(config Config) *Calibrator {
	return &Calibrator{config: config}
}

// Config returns the calibration in use.
func (c *Calibrator) Config() Config {
	return c.config
}

// Calibrate feeds one frame through the filters.
func (c *Calibrator) Calibrate(fields comm.SensorFields) Readings {
	r := Readings{Vehicle: c.Vehicle(fields)}
	for ch := Channel(0); ch < NumChannels; ch++ {
		r.Distances[ch] = c.Distance(ch, ch.Raw(&fields))
	}
	return r
}

// Distance converts a raw reading of a channel to meters, or OutOfRange.
func (c *Calibrator) Distance(ch Channel, raw uint16) float64 {
	conf := c.config.Channel(ch)
	f := &c.filters[ch]
	switch conf.Kind {
	case Infrared:
		f.Add(conf.Numerator/(float64(raw)+conf.Offset) - conf.Bias)
	default:
		f.Add(float64(raw))
	}
	median := f.Median()
	if median > conf.LimitCm {
		glog.V(4).Infof("%s: %v cm out of range", ch, median)
		return OutOfRange
	}
	return median / 100
}

// Vehicle converts odometry fields.
func (c *Calibrator) Vehicle(fields comm.SensorFields) Vehicle {
	return Vehicle{
		Path:    float64(fields.AbsDistance) / 100,
		Heading: float64(fields.AbsDirection) * math.Pi / 180,
	}
}

// Reset clears all filters.
func (c *Calibrator) Reset() {
	for i := range c.filters {
		c.filters[i].Reset()
	}
}
