package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Simulation SimulationConfig `yaml:"simulation"`
	Events     EventsConfig     `yaml:"events"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Watch      WatchConfig      `yaml:"watch"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
	// Topology is the name of the saved topology loaded at startup
	Topology string `yaml:"topology,omitempty"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SimulationConfig tunes the propagation engine and the boot clock
type SimulationConfig struct {
	MaxPowerPasses int      `yaml:"max_power_passes"`
	BootDelay      Duration `yaml:"boot_delay"`
	BootJitter     Duration `yaml:"boot_jitter"`
	ClockTick      Duration `yaml:"clock_tick"` // wall time between virtual clock advances
	Seed           string   `yaml:"seed"`       // rng stream name for boot jitter
}

// EventsConfig enables the AMQP change-event sink
type EventsConfig struct {
	AMQPURL string `yaml:"amqp_url,omitempty"`
	Queue   string `yaml:"queue,omitempty"`
}

// Enabled reports whether an AMQP broker is configured
func (e EventsConfig) Enabled() bool {
	return e.AMQPURL != ""
}

// MetricsConfig enables the InfluxDB metrics sink
type MetricsConfig struct {
	InfluxURL   string `yaml:"influx_url,omitempty"`
	Database    string `yaml:"database,omitempty"`
	Measurement string `yaml:"measurement,omitempty"`
}

// Enabled reports whether an InfluxDB endpoint is configured
func (m MetricsConfig) Enabled() bool {
	return m.InfluxURL != ""
}

// WatchConfig names a topology file that is loaded and reloaded on change
type WatchConfig struct {
	File     string   `yaml:"file,omitempty"`
	Debounce Duration `yaml:"debounce"`
}

// LogConfig selects the logger
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
