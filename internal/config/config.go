// Package config provides configuration management for storenet.
//
// The config file holds process settings only: listener, database location,
// simulation tuning and optional sinks. Topologies live in the database.
//
// Config file locations (priority order):
//  1. $STORENET_CONFIG
//  2. ./storenet.yaml
//  3. $XDG_CONFIG_HOME/storenet/config.yaml
//  4. ~/.config/storenet/config.yaml
//  5. /etc/storenet/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr           = ":3000"
	DefaultDatabasePath   = "./storenet.db"
	DefaultMaxPowerPasses = 5
	DefaultBootDelay      = 30 * time.Second
	DefaultBootJitter     = 5 * time.Second
	DefaultClockTick      = time.Second
	DefaultSeed           = "storenet-boot"
	DefaultQueue          = "storenet.events"
	DefaultMeasurement    = "storenet_pipeline"
	DefaultWatchDebounce  = 250 * time.Millisecond
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the settings used when no config file exists
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(15 * time.Second)
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = Duration(60 * time.Second)
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}

	sim := &c.Simulation
	if sim.MaxPowerPasses == 0 {
		sim.MaxPowerPasses = DefaultMaxPowerPasses
	}
	if sim.BootDelay == 0 {
		sim.BootDelay = Duration(DefaultBootDelay)
	}
	if sim.BootJitter == 0 {
		sim.BootJitter = Duration(DefaultBootJitter)
	}
	if sim.ClockTick == 0 {
		sim.ClockTick = Duration(DefaultClockTick)
	}
	if sim.Seed == "" {
		sim.Seed = DefaultSeed
	}

	if c.Events.Enabled() && c.Events.Queue == "" {
		c.Events.Queue = DefaultQueue
	}
	if c.Metrics.Enabled() {
		if c.Metrics.Database == "" {
			c.Metrics.Database = "storenet"
		}
		if c.Metrics.Measurement == "" {
			c.Metrics.Measurement = DefaultMeasurement
		}
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = Duration(DefaultWatchDebounce)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects settings the simulator cannot run with
func (c *Config) Validate() error {
	if c.Simulation.MaxPowerPasses < 1 {
		return fmt.Errorf("simulation.max_power_passes must be at least 1, got %d", c.Simulation.MaxPowerPasses)
	}
	if c.Simulation.BootDelay < 0 || c.Simulation.BootJitter < 0 || c.Simulation.ClockTick < 0 {
		return fmt.Errorf("simulation durations must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// NewLogger builds the process logger from the log section
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	sim := c.Simulation
	summary := fmt.Sprintf("Listen: %s, Database: %s\n", c.Server.Addr, c.Database.Path)
	summary += fmt.Sprintf("Power passes: %d, Boot: %s ± %s, Tick: %s\n",
		sim.MaxPowerPasses, sim.BootDelay.Duration(), sim.BootJitter.Duration(), sim.ClockTick.Duration())

	sinks := "none"
	switch {
	case c.Events.Enabled() && c.Metrics.Enabled():
		sinks = "amqp, influx"
	case c.Events.Enabled():
		sinks = "amqp"
	case c.Metrics.Enabled():
		sinks = "influx"
	}
	summary += fmt.Sprintf("Sinks: %s", sinks)
	if c.Watch.File != "" {
		summary += fmt.Sprintf(", Watching: %s", c.Watch.File)
	}
	return summary
}
