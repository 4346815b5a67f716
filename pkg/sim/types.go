// Package sim simulates the sensor/actuator board and the vehicle it
// drives, so the link can run without hardware.
package sim

// Pos2D defines the position in 2D, in meters.
type Pos2D struct {
	X, Y float64
}

// OffsetBy moves the position in-place.
func (p *Pos2D) OffsetBy(p1 Pos2D) *Pos2D {
	p.X += p1.X
	p.Y += p1.Y
	return p
}

// Pose2D defines the pose in 2D.
type Pose2D struct {
	Pos2D
	Orientation Angle
}

// Angle is in radians, normalized to (-Pi, Pi].
type Angle float64
