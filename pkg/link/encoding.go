package link

import (
	"fmt"
	"math"
)

// Encoding maps a control command to board codes.
// Speed codes are servo pulse widths in microseconds, steering codes are
// servo angles in degrees.
type Encoding struct {
	NeutralSpeed    uint16  `toml:"neutral_speed"`
	ReverseSpeed    uint16  `toml:"reverse_speed"`
	ForwardBase     uint16  `toml:"forward_base"`
	CorneringSpeed  uint16  `toml:"cornering_speed"`
	CorneringAngle  float64 `toml:"cornering_angle"`
	SteeringCenter  int     `toml:"steering_center"`
	LeftSaturation  float64 `toml:"left_saturation"`
	RightSaturation float64 `toml:"right_saturation"`
	MaxSteering     float64 `toml:"max_steering"`
}

// DefaultEncoding returns the encoding of the stock board.
func DefaultEncoding() Encoding {
	return Encoding{
		NeutralSpeed:    1500,
		ReverseSpeed:    1180,
		ForwardBase:     1570,
		CorneringSpeed:  1565,
		CorneringAngle:  21,
		SteeringCenter:  90,
		LeftSaturation:  25,
		RightSaturation: -26,
		MaxSteering:     40,
	}
}

// Validate checks the encoding is usable.
func (e *Encoding) Validate() error {
	if e.LeftSaturation <= 0 || e.RightSaturation >= 0 {
		return fmt.Errorf("saturation angles must be on both sides of center")
	}
	if e.MaxSteering <= 0 {
		return fmt.Errorf("max_steering must be positive")
	}
	if e.SteeringCenter-int(e.MaxSteering) < 0 || e.SteeringCenter+int(e.MaxSteering) > math.MaxUint16 {
		return fmt.Errorf("steering_center %d out of range", e.SteeringCenter)
	}
	return nil
}

// Neutral returns the codes that stop the vehicle with wheels straight.
func (e *Encoding) Neutral() (speedCode, steeringCode uint16) {
	return e.NeutralSpeed, uint16(e.SteeringCenter)
}

// SpeedCode encodes speed. Forward speed is limited in sharp turns.
func (e *Encoding) SpeedCode(speed, steeringRad float64) uint16 {
	switch {
	case speed < 0:
		return e.ReverseSpeed
	case math.Trunc(speed) == 0:
		return e.NeutralSpeed
	case math.Abs(degrees(steeringRad)) > e.CorneringAngle:
		return e.CorneringSpeed
	}
	return clampCode(float64(e.ForwardBase) + speed)
}

// SteeringCode encodes a steering angle in radians. Requests beyond the
// saturation angles are driven to the physical maximum.
func (e *Encoding) SteeringCode(steeringRad float64) uint16 {
	deg := degrees(steeringRad)
	if deg >= e.LeftSaturation {
		deg = e.MaxSteering
	} else if deg <= e.RightSaturation {
		deg = -e.MaxSteering
	}
	return clampCode(float64(e.SteeringCenter) + math.Round(deg))
}

// Encode returns both codes.
func (e *Encoding) Encode(speed, steeringRad float64) (speedCode, steeringCode uint16) {
	return e.SpeedCode(speed, steeringRad), e.SteeringCode(steeringRad)
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func clampCode(v float64) uint16 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(v)
}
