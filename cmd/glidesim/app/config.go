package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/glide-recovery/internal/config"
	"github.com/roman-kulish/glide-recovery/internal/director"
	"github.com/roman-kulish/glide-recovery/internal/glider"
	"github.com/roman-kulish/glide-recovery/internal/recovery"
)

// Config is the simulation configuration
type Config struct {
	Settings   config.LogSettings `yaml:"settings"`
	Glider     glider.Config      `yaml:"glider"`
	Director   director.Config    `yaml:"director"`
	Recovery   RecoveryConfig     `yaml:"recovery"`
	Simulation SimulationConfig   `yaml:"simulation"`
	Recorder   RecorderConfig     `yaml:"recorder"`
}

// RecoveryConfig selects the recovery locations. A database path takes
// precedence over the static list.
type RecoveryConfig struct {
	Path      string                  `yaml:"path"`
	Locations []recovery.LocationSpec `yaml:"locations"`
}

// SimulationConfig sets the simulated clock
type SimulationConfig struct {
	StartTime *time.Time      `yaml:"startTime"` // Defaults to the current time
	Step      config.Duration `yaml:"step"`
	Duration  config.Duration `yaml:"duration"`
	Armed     bool            `yaml:"armed"` // Enable the director on start
}

// RecorderConfig configures flight recording. An empty path disables it.
type RecorderConfig struct {
	Path      string `yaml:"path"`
	BatchSize int    `yaml:"batchSize"`
}

// DefaultConfig returns a configuration with the default tunables.
func DefaultConfig() *Config {
	return &Config{
		Glider:   glider.DefaultConfig(),
		Director: director.DefaultConfig(),
		Simulation: SimulationConfig{
			Step:     config.NewDuration(100 * time.Millisecond),
			Duration: config.NewDuration(30 * time.Minute),
			Armed:    true,
		},
		Recorder: RecorderConfig{BatchSize: 500},
	}
}

// LoadConfig reads a YAML configuration file over the defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	c := DefaultConfig()
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Steps returns the number of simulation steps.
func (c *SimulationConfig) Steps() int {
	return int(c.Duration.Std() / c.Step.Std())
}

func (c *Config) Validate() error {
	if err := c.Glider.Validate(); err != nil {
		return err
	}
	if err := c.Director.Validate(); err != nil {
		return err
	}

	switch {
	case c.Simulation.Step.Std() <= 0:
		return config.Errorf("simulation: step must be positive: %s", c.Simulation.Step)
	case c.Simulation.Duration.Std() < c.Simulation.Step.Std():
		return config.Errorf("simulation: duration %s is shorter than one step", c.Simulation.Duration)
	case c.Recovery.Path == "" && len(c.Recovery.Locations) == 0:
		return config.Errorf("recovery: either a database path or a static list is required")
	case c.Recorder.Path != "" && c.Recorder.BatchSize <= 0:
		return config.Errorf("recorder: batch size must be positive: %d", c.Recorder.BatchSize)
	}
	return nil
}
