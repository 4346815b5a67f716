package link

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"

	"github.com/robotalks/boardlink/pkg/calib"
	"github.com/robotalks/boardlink/pkg/l0/comm"
	"github.com/robotalks/boardlink/pkg/l0/serial"
	"github.com/robotalks/boardlink/pkg/l1"
	"github.com/robotalks/boardlink/pkg/sim"
)

// SimDevice selects the simulated board instead of a serial device.
const SimDevice = "sim"

// Config defines the serial link and how frames are interpreted.
type Config struct {
	Device      string        `toml:"device"`
	Baud        int           `toml:"baud"`
	ReadTimeout time.Duration `toml:"read_timeout"`
	// ConfigFile is a TOML file overriding the rest of Config.
	ConfigFile         string       `toml:"-"`
	SendOnlyWhenSynced bool         `toml:"send_only_when_synced"`
	NeutralRepeat      int          `toml:"neutral_repeat"`
	Encoding           Encoding     `toml:"encoding"`
	Calibration        calib.Config `toml:"calibration"`
}

var defaultConfig = Config{
	Device:        "/dev/ttyACM0",
	Baud:          serial.DefaultBaud,
	ReadTimeout:   serial.DefaultReadTimeout,
	NeutralRepeat: DefaultNeutralRepeat,
	Encoding:      DefaultEncoding(),
	Calibration:   calib.DefaultConfig(),
}

func init() {
	if val := os.Getenv("BOARDLINK_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	if val := os.Getenv("BOARDLINK_CONFIG"); val != "" {
		defaultConfig.ConfigFile = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Serial device of the board, "+SimDevice+" to simulate")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Serial read timeout")
	flag.StringVar(&defaultConfig.ConfigFile, "config", defaultConfig.ConfigFile, "TOML file with encoding and calibration")
	flag.BoolVar(&defaultConfig.SendOnlyWhenSynced, "send-only-when-synced", defaultConfig.SendOnlyWhenSynced, "Hold control frames after a bad sensor frame")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile merges the TOML file into c. Keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load loads ConfigFile if set and validates the result.
func (c *Config) Load() error {
	if c.ConfigFile != "" {
		if err := c.LoadFile(c.ConfigFile); err != nil {
			return err
		}
	}
	return c.Validate()
}

// MustLoad loads config and fails on error.
func (c *Config) MustLoad() *Config {
	if err := c.Load(); err != nil {
		log.Fatalln(err)
	}
	return c
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.NeutralRepeat < 0 {
		return fmt.Errorf("neutral_repeat must not be negative")
	}
	if err := c.Encoding.Validate(); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	if err := c.Calibration.Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	return nil
}

// OpenDevice opens the device as a byte stream.
func (c *Config) OpenDevice() (io.ReadWriteCloser, error) {
	if c.Device == SimDevice {
		board := sim.NewBoard()
		board.Calibration = c.Calibration
		return board, nil
	}
	return serial.Open(serial.Config{
		Device:      c.Device,
		Baud:        c.Baud,
		ReadTimeout: c.ReadTimeout,
	})
}

// NewSession opens the device and creates a Session publishing to reg.
// If the device can't be opened, the session is degraded.
func (c *Config) NewSession(reg l1.Registrar) *Session {
	var transport comm.Transport
	if dev, err := c.OpenDevice(); err != nil {
		glog.Errorf("%v, running without board", err)
	} else {
		transport = comm.NewFIFO(dev)
	}
	recordDegraded(transport == nil)
	s := NewSession(transport)
	s.Encoding = c.Encoding
	s.Calibrator = calib.New(c.Calibration)
	s.SendOnlyWhenSynced = c.SendOnlyWhenSynced
	s.NeutralRepeat = c.NeutralRepeat
	s.Registrar = reg
	return s
}
