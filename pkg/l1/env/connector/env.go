package connector

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/robotalks/boardlink/pkg/l1"
	"github.com/robotalks/boardlink/pkg/l1/comm/mqtt"
)

// Config selects the registry and optionally the board to connect.
type Config struct {
	// Ref is the board to connect. Only Type is used for discovery.
	Ref l1.ControllerRef
	// RegistryURL is where boards announce themselves,
	// e.g. mqtt://host:port/topic-prefix
	RegistryURL    string
	ConnectTimeout time.Duration
}

var defaultConfig = Config{
	Ref:            l1.ControllerRef{Type: l1.DefaultControllerType},
	RegistryURL:    "mqtt://localhost:1883/boardlink/",
	ConnectTimeout: mqtt.DefaultConnectTimeout,
}

func init() {
	if val := os.Getenv("BOARDLINK_BOARD"); val != "" {
		if ref, ok := l1.ParseControllerRef(val); ok {
			defaultConfig.Ref = ref
		}
	}
	if val := os.Getenv("BOARDLINK_MQTT_URL"); val != "" {
		defaultConfig.RegistryURL = val
	}
}

// refValue is a flag.Value accepting TYPE/ID.
type refValue struct {
	ref *l1.ControllerRef
}

func (v refValue) String() string {
	if v.ref == nil || !v.ref.IsValid() {
		return ""
	}
	return v.ref.Name()
}

func (v refValue) Set(s string) error {
	ref, ok := l1.ParseControllerRef(s)
	if !ok {
		return fmt.Errorf("expect TYPE/ID, got %q", s)
	}
	*v.ref = ref
	return nil
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.Var(refValue{ref: &defaultConfig.Ref}, "board", "Board to connect as TYPE/ID, discovered if not set")
	flag.StringVar(&defaultConfig.RegistryURL, "mqtt", defaultConfig.RegistryURL, "MQTT broker URL")
	flag.DurationVar(&defaultConfig.ConnectTimeout, "connect-timeout", defaultConfig.ConnectTimeout, "Timeout connecting the broker")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a Connector for RegistryURL.
func (c *Config) NewConnector() (l1.Connector, error) {
	parsedURL, err := url.Parse(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %w", err)
	}
	switch parsedURL.Scheme {
	case "mqtt", "tcp", "ssl", "ws", "wss":
		connector, err := mqtt.NewConnector(c.RegistryURL)
		if err != nil {
			return nil, err
		}
		if c.ConnectTimeout > 0 {
			connector.ConnectTimeout = c.ConnectTimeout
		}
		return connector, nil
	default:
		return nil, fmt.Errorf("unknown registry URL scheme: %q", parsedURL.Scheme)
	}
}
