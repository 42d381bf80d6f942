// Package config holds the settings the core event loop needs beyond the
// plain CLI flags: the pacing interval, queue capacities, and the
// congestion-signal high-water mark. These can be supplied by an optional
// YAML file and are always layered under explicit flag overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the fully resolved configuration for one endpoint run.
type Settings struct {
	// Interface is the tun/tap name to open ("-i").
	Interface string `yaml:"interface"`

	// Server selects server role (bind/listen/accept) when true; client
	// role (connect to PeerAddr) when false.
	Server bool `yaml:"server"`

	// PeerAddr is the server's IP to dial, client role only ("-c").
	PeerAddr string `yaml:"peer_addr"`

	// Port is the carrier TCP port, both roles ("-p").
	Port int `yaml:"port"`

	// Tap selects tap mode over the default tun mode ("-a"). ACK
	// spoofing is undefined in tap mode.
	Tap bool `yaml:"tap"`

	// Debug enables rate-limited packet tracing ("-d").
	Debug bool `yaml:"debug"`

	// PacingInterval is the minimum spacing between successive writes on
	// either side. Default 50ms (20 packets/s).
	PacingInterval time.Duration `yaml:"pacing_interval"`

	// QueueCapacity is the shared capacity of Qtap and Qsock. Default 100.
	QueueCapacity int `yaml:"queue_capacity"`

	// HighWater is the Qtap fullness threshold that arms the
	// congestion-signal state machine. Default 20.
	HighWater int `yaml:"high_water"`
}

// Defaults returns the baseline settings: 50ms pacing, capacity 100,
// high-water 20, port 55555, tun mode.
func Defaults() Settings {
	return Settings{
		Port:           55555,
		PacingInterval: 50 * time.Millisecond,
		QueueCapacity:  100,
		HighWater:      20,
	}
}

// Load reads a YAML settings file and overlays it onto Defaults(). A
// missing path is not an error: callers pass "" when no -config flag was
// given, and Load then just returns the defaults.
func Load(path string) (Settings, error) {
	s := Defaults()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return s, nil
}

// Validate checks the invariants cmd/acktun relies on before starting the
// event loop: exactly one of Server/PeerAddr-as-client must be selected,
// an interface name must be present, and the numeric settings must be
// positive.
func (s Settings) Validate() error {
	if s.Interface == "" {
		return fmt.Errorf("config: -i <ifname> is required")
	}
	if s.Server == (s.PeerAddr != "") {
		return fmt.Errorf("config: exactly one of -s or -c <ip> is required")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", s.Port)
	}
	if s.PacingInterval <= 0 {
		return fmt.Errorf("config: pacing interval must be positive")
	}
	if s.QueueCapacity < 1 {
		return fmt.Errorf("config: queue capacity must be at least 1")
	}
	if s.HighWater < 0 || s.HighWater >= s.QueueCapacity {
		return fmt.Errorf("config: high-water %d must be in [0, %d)", s.HighWater, s.QueueCapacity)
	}
	return nil
}
