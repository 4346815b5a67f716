package calib

import (
	"fmt"
	"strings"
)

// Kind is the type of ranging sensor.
type Kind int

// Sensor kinds.
const (
	Infrared Kind = iota
	Ultrasonic
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Infrared:
		return "infrared"
	case Ultrasonic:
		return "ultrasonic"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "infrared", "ir":
		*k = Infrared
	case "ultrasonic", "us":
		*k = Ultrasonic
	default:
		return fmt.Errorf("unknown sensor kind %q", string(text))
	}
	return nil
}

// ChannelConfig defines how raw readings of a channel are converted.
// For Infrared, cm = Numerator/(raw+Offset) - Bias; Ultrasonic raw values
// are already in cm.
type ChannelConfig struct {
	Kind      Kind    `toml:"kind"`
	LimitCm   float64 `toml:"limit_cm"`
	Numerator float64 `toml:"numerator"`
	Offset    float64 `toml:"offset"`
	Bias      float64 `toml:"bias"`
}

// Validate checks the channel parameters.
func (c *ChannelConfig) Validate() error {
	if c.LimitCm <= 0 {
		return fmt.Errorf("limit_cm must be positive, got %v", c.LimitCm)
	}
	if c.Kind == Infrared {
		if c.Numerator <= 0 {
			return fmt.Errorf("numerator must be positive, got %v", c.Numerator)
		}
		if c.Offset <= 0 {
			return fmt.Errorf("offset must be positive, got %v", c.Offset)
		}
	}
	return nil
}

// Config is the calibration of all channels.
type Config struct {
	IRFrontRight  ChannelConfig `toml:"ir_front_right"`
	IRBack        ChannelConfig `toml:"ir_back"`
	IRMiddleRight ChannelConfig `toml:"ir_middle_right"`
	USFront       ChannelConfig `toml:"us_front"`
	USFrontRight  ChannelConfig `toml:"us_front_right"`
}

// Default infrared and ultrasonic parameters.
const (
	DefaultIRNumerator = 2914
	DefaultIROffset    = 5
	DefaultIRBias      = 1
	DefaultIRLimitCm   = 40
	DefaultUSLimitCm   = 120
)

// InfraredDefaults returns the default infrared channel.
func InfraredDefaults() ChannelConfig {
	return ChannelConfig{
		Kind:      Infrared,
		LimitCm:   DefaultIRLimitCm,
		Numerator: DefaultIRNumerator,
		Offset:    DefaultIROffset,
		Bias:      DefaultIRBias,
	}
}

// UltrasonicDefaults returns the default ultrasonic channel.
func UltrasonicDefaults() ChannelConfig {
	return ChannelConfig{Kind: Ultrasonic, LimitCm: DefaultUSLimitCm}
}

// DefaultConfig returns the calibration of the stock board.
func DefaultConfig() Config {
	return Config{
		IRFrontRight:  InfraredDefaults(),
		IRBack:        InfraredDefaults(),
		IRMiddleRight: InfraredDefaults(),
		USFront:       UltrasonicDefaults(),
		USFrontRight:  UltrasonicDefaults(),
	}
}

// Channel gets the config of a channel.
func (c *Config) Channel(ch Channel) *ChannelConfig {
	switch ch {
	case ChannelIRFrontRight:
		return &c.IRFrontRight
	case ChannelIRBack:
		return &c.IRBack
	case ChannelIRMiddleRight:
		return &c.IRMiddleRight
	case ChannelUSFront:
		return &c.USFront
	case ChannelUSFrontRight:
		return &c.USFrontRight
	}
	return nil
}

// Validate validates all channels.
func (c *Config) Validate() error {
	for ch := Channel(0); ch < NumChannels; ch++ {
		if err := c.Channel(ch).Validate(); err != nil {
			return fmt.Errorf("channel %s: %w", ch, err)
		}
	}
	return nil
}
