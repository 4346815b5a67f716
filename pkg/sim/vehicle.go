package sim

import (
	"math"
	"time"
)

// Vehicle is a kinematic bicycle model driven by board codes.
type Vehicle struct {
	// Wheelbase in meters.
	Wheelbase float64
	// SpeedScale converts speed code offset from neutral to m/s.
	SpeedScale     float64
	NeutralSpeed   uint16
	SteeringCenter uint16

	Pose Pose2D
	// Traveled is the accumulated path length in meters.
	Traveled float64
}

// NewVehicle creates a Vehicle matching the stock board.
func NewVehicle() *Vehicle {
	return &Vehicle{
		Wheelbase:      0.26,
		SpeedScale:     0.01,
		NeutralSpeed:   1500,
		SteeringCenter: 90,
	}
}

// Speed converts a speed code to m/s.
func (v *Vehicle) Speed(speedCode uint16) float64 {
	return (float64(speedCode) - float64(v.NeutralSpeed)) * v.SpeedScale
}

// Advance moves the vehicle for d with the given codes.
func (v *Vehicle) Advance(d time.Duration, speedCode, steeringCode uint16) {
	speed := v.Speed(speedCode)
	if speed == 0 {
		return
	}
	dist := speed * d.Seconds()
	steering := (float64(steeringCode) - float64(v.SteeringCenter)) * math.Pi / 180
	v.Pose.Pos2D.OffsetBy(v.Pose.Orientation.Project(dist))
	v.Pose.Orientation = v.Pose.Orientation.AddRadians(dist * math.Tan(steering) / v.Wheelbase)
	v.Traveled += math.Abs(dist)
}
