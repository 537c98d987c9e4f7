package director

import (
	"time"

	"github.com/roman-kulish/glide-recovery/internal/config"
)

// Config holds the director tunables.
type Config struct {
	// Smoothing buffer lengths, in samples.
	RateOfTurnSamples    int `yaml:"rateOfTurnSamples" json:"rateOfTurnSamples"`
	VerticalSpeedSamples int `yaml:"verticalSpeedSamples" json:"verticalSpeedSamples"`
	GroundSpeedSamples   int `yaml:"groundSpeedSamples" json:"groundSpeedSamples"`

	SeekLeg  config.Duration `yaml:"seekLeg" json:"seekLeg"`   // Box pattern leg time
	SeekTurn float64         `yaml:"seekTurn" json:"seekTurn"` // Heading change between legs, degrees

	CircleMargin    float64 `yaml:"circleMargin" json:"circleMargin"`       // Hysteresis before leaving circle mode, nm
	CircleRadiusMin float64 `yaml:"circleRadiusMin" json:"circleRadiusMin"` // Circling radius at or below CircleSpeedMin, nm
	CircleRadiusMax float64 `yaml:"circleRadiusMax" json:"circleRadiusMax"` // Circling radius at or above CircleSpeedMax, nm
	CircleSpeedMin  float64 `yaml:"circleSpeedMin" json:"circleSpeedMin"`   // kt
	CircleSpeedMax  float64 `yaml:"circleSpeedMax" json:"circleSpeedMax"`   // kt

	AbandonAltitude float64 `yaml:"abandonAltitude" json:"abandonAltitude"` // Minimum height above the recovery location to abandon it, ft
	MaxProjection   float64 `yaml:"maxProjection" json:"maxProjection"`     // Glide projection ceiling, nm
	MinSinkRate     float64 `yaml:"minSinkRate" json:"minSinkRate"`         // Sink rate assumed when descending slower, ft/min

	BankLimit  float64 `yaml:"bankLimit" json:"bankLimit"`   // Bank angle above which the demanded turn rate tapers, degrees
	PitchLimit float64 `yaml:"pitchLimit" json:"pitchLimit"` // Pitch angle above which the rudder is neutralized, degrees
}

// DefaultConfig returns the standard tunables.
func DefaultConfig() Config {
	return Config{
		RateOfTurnSamples:    3,
		VerticalSpeedSamples: 10,
		GroundSpeedSamples:   10,

		SeekLeg:  config.NewDuration(120 * time.Second),
		SeekTurn: 90,

		CircleMargin:    1.0,
		CircleRadiusMin: 1.6,
		CircleRadiusMax: 10,
		CircleSpeedMin:  50,
		CircleSpeedMax:  300,

		AbandonAltitude: 5000,
		MaxProjection:   3000,
		MinSinkRate:     60,

		BankLimit:  30,
		PitchLimit: 20,
	}
}

// Validate checks the tunables for values that would break the control laws.
func (c *Config) Validate() error {
	switch {
	case c.RateOfTurnSamples < 1:
		return config.Errorf("director.Config: rate of turn samples must be at least 1: %d", c.RateOfTurnSamples)
	case c.VerticalSpeedSamples < 1:
		return config.Errorf("director.Config: vertical speed samples must be at least 1: %d", c.VerticalSpeedSamples)
	case c.GroundSpeedSamples < 1:
		return config.Errorf("director.Config: ground speed samples must be at least 1: %d", c.GroundSpeedSamples)
	case c.SeekLeg.Milliseconds() < 1:
		return config.Errorf("director.Config: seek leg must be at least 1ms: %s", c.SeekLeg)
	case c.CircleMargin < 0:
		return config.Errorf("director.Config: circle margin must not be negative: %g", c.CircleMargin)
	case c.CircleRadiusMin <= 0 || c.CircleRadiusMax < c.CircleRadiusMin:
		return config.Errorf("director.Config: invalid circle radius range: %g..%g", c.CircleRadiusMin, c.CircleRadiusMax)
	case c.CircleSpeedMin < 0 || c.CircleSpeedMax <= c.CircleSpeedMin:
		return config.Errorf("director.Config: invalid circle speed range: %g..%g", c.CircleSpeedMin, c.CircleSpeedMax)
	case c.MaxProjection <= 0:
		return config.Errorf("director.Config: max projection must be positive: %g", c.MaxProjection)
	case c.MinSinkRate <= 0:
		return config.Errorf("director.Config: min sink rate must be positive: %g", c.MinSinkRate)
	case c.BankLimit <= 0 || c.BankLimit >= 90:
		return config.Errorf("director.Config: bank limit must be between 0 and 90: %g", c.BankLimit)
	case c.PitchLimit <= 0 || c.PitchLimit >= 90:
		return config.Errorf("director.Config: pitch limit must be between 0 and 90: %g", c.PitchLimit)
	}

	return nil
}
