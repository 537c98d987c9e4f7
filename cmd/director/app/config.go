package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/glide-recovery/internal/config"
	"github.com/roman-kulish/glide-recovery/internal/director"
	"github.com/roman-kulish/glide-recovery/internal/recovery"
	"github.com/roman-kulish/glide-recovery/internal/storage"
)

const (
	NavigationUDP     NavigationType = "udp"
	NavigationNMEA    NavigationType = "nmea"
	NavigationProcess NavigationType = "process"

	RecoverySqlite   RecoveryType = "sqlite"
	RecoveryPostgres RecoveryType = "postgres"
	RecoveryStatic   RecoveryType = "static"
)

type NavigationType string

type RecoveryType string

// Config represents the main application configuration
type Config struct {
	Settings   config.LogSettings `yaml:"settings"`
	Director   director.Config    `yaml:"director"`
	Navigation NavigationConfig   `yaml:"navigation"`
	Actuator   ActuatorConfig     `yaml:"actuator"`
	Recovery   RecoveryConfig     `yaml:"recovery"`
	Tick       TickConfig         `yaml:"tick"`
	Recorder   RecorderConfig     `yaml:"recorder"`
	Metrics    MetricsConfig      `yaml:"metrics"`
}

// NavigationConfig selects the navigation feed
type NavigationConfig struct {
	Type    NavigationType  `yaml:"type"`
	Listen  string          `yaml:"listen"`  // udp: local address, e.g. ":5600"
	Device  string          `yaml:"device"`  // nmea: serial device or file
	Command string          `yaml:"command"` // process: executable printing NMEA sentences
	Args    []string        `yaml:"args"`
	MaxAge  config.Duration `yaml:"maxAge"` // Samples older than this are not served
}

// ActuatorConfig holds the rudder servo controller address
type ActuatorConfig struct {
	Address string `yaml:"address"`
	Armed   bool   `yaml:"armed"` // Enable the director on start
}

// RecoveryConfig selects the recovery location store
type RecoveryConfig struct {
	Type      RecoveryType            `yaml:"type"`
	Path      string                  `yaml:"path"` // sqlite database
	Postgres  storage.PostgresConfig  `yaml:"postgres"`
	Locations []recovery.LocationSpec `yaml:"locations"` // static list
	RateLimit float64                 `yaml:"rateLimit"` // Lookups per second, zero disables throttling
	Retry     *recovery.RetryConfig   `yaml:"retry"`
}

// TickConfig sets the refresh period
type TickConfig struct {
	Period config.Duration `yaml:"period"`
}

// RecorderConfig configures flight recording
type RecorderConfig struct {
	Enabled      bool            `yaml:"enabled"`
	Path         string          `yaml:"path"`
	MaxBatchSize int             `yaml:"maxBatchSize"`
	FlushEvery   config.Duration `yaml:"flushEvery"`
}

// MetricsConfig configures the HTTP server for /metrics and /status
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// DefaultConfig returns a configuration with the default tunables.
func DefaultConfig() *Config {
	return &Config{
		Director: director.DefaultConfig(),
		Navigation: NavigationConfig{
			Type:   NavigationUDP,
			Listen: ":5600",
			MaxAge: config.NewDuration(2 * time.Second),
		},
		Actuator: ActuatorConfig{Address: "127.0.0.1:5601"},
		Recovery: RecoveryConfig{Type: RecoverySqlite, Path: "recovery.db"},
		Tick:     TickConfig{Period: config.NewDuration(100 * time.Millisecond)},
		Recorder: RecorderConfig{
			MaxBatchSize: maxBatchSize,
			FlushEvery:   config.NewDuration(time.Second),
		},
	}
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := c.Director.Validate(); err != nil {
		return err
	}

	switch c.Navigation.Type {
	case NavigationUDP:
		if c.Navigation.Listen == "" {
			return config.NewConfigError("navigation: listen address is required")
		}
	case NavigationNMEA:
		if c.Navigation.Device == "" {
			return config.NewConfigError("navigation: device is required")
		}
	case NavigationProcess:
		if c.Navigation.Command == "" {
			return config.NewConfigError("navigation: command is required")
		}
	default:
		return config.Errorf("navigation: unknown type '%s'", c.Navigation.Type)
	}

	if c.Actuator.Address == "" {
		return config.NewConfigError("actuator: address is required")
	}

	switch c.Recovery.Type {
	case RecoverySqlite:
		if c.Recovery.Path == "" {
			return config.NewConfigError("recovery: path is required")
		}
	case RecoveryPostgres:
		if c.Recovery.Postgres.DSN == "" {
			return config.NewConfigError("recovery: postgres dsn is required")
		}
	case RecoveryStatic:
		if len(c.Recovery.Locations) == 0 {
			return config.NewConfigError("recovery: at least one location is required")
		}
	default:
		return config.Errorf("recovery: unknown type '%s'", c.Recovery.Type)
	}
	if c.Recovery.RateLimit < 0 {
		return config.Errorf("recovery: rate limit must not be negative: %g", c.Recovery.RateLimit)
	}

	if err := c.Tick.Period.Validate(); err != nil {
		return fmt.Errorf("tick: %w", err)
	}

	if c.Recorder.Enabled {
		if c.Recorder.Path == "" {
			return config.NewConfigError("recorder: path is required")
		}
		if c.Recorder.MaxBatchSize < 1 {
			return config.Errorf("recorder: max batch size must be at least 1: %d", c.Recorder.MaxBatchSize)
		}
		if err := c.Recorder.FlushEvery.Validate(); err != nil {
			return fmt.Errorf("recorder: %w", err)
		}
	}

	return nil
}

// StaticLocations parses the static recovery list.
func (c *RecoveryConfig) StaticLocations() ([]recovery.Location, error) {
	return recovery.ParseLocations(c.Locations)
}
