package glider

import (
	"math"
	"sync"
	"time"

	"github.com/roman-kulish/glide-recovery/internal/config"
	"github.com/roman-kulish/glide-recovery/internal/geo"
	"github.com/roman-kulish/glide-recovery/internal/telemetry"
)

const (
	feetPerNM     = 6076.12
	metersPerKnot = 0.514444
	gravity       = 9.80665 // m/s²
)

// Wind is a steady wind. Direction is where the wind blows from.
type Wind struct {
	Direction float64 `yaml:"direction" json:"direction"` // degrees true
	Speed     float64 `yaml:"speed" json:"speed"`         // kt
}

// Config describes the simulated glider and its initial state.
type Config struct {
	Start           geo.Position    `yaml:"start" json:"start"`
	Altitude        float64         `yaml:"altitude" json:"altitude"` // ft
	Heading         float64         `yaml:"heading" json:"heading"`   // degrees true
	Airspeed        float64         `yaml:"airspeed" json:"airspeed"` // kt
	GlideRatio      float64         `yaml:"glideRatio" json:"glideRatio"`
	MaxRateOfTurn   float64         `yaml:"maxRateOfTurn" json:"maxRateOfTurn"` // deg/s at full rudder
	TurnLag         config.Duration `yaml:"turnLag" json:"turnLag"`             // Time constant of the turn rate response
	GroundElevation float64         `yaml:"groundElevation" json:"groundElevation"`
	Wind            Wind            `yaml:"wind" json:"wind"`
}

// DefaultConfig returns a light-aircraft glide at 9,000 ft.
func DefaultConfig() Config {
	return Config{
		Altitude:      9000,
		Airspeed:      70,
		GlideRatio:    9,
		MaxRateOfTurn: 3,
		TurnLag:       config.NewDuration(2 * time.Second),
	}
}

// Validate checks the model parameters.
func (c *Config) Validate() error {
	switch {
	case c.Airspeed <= 0:
		return config.Errorf("glider.Config: airspeed must be positive: %g", c.Airspeed)
	case c.GlideRatio <= 0:
		return config.Errorf("glider.Config: glide ratio must be positive: %g", c.GlideRatio)
	case c.MaxRateOfTurn <= 0:
		return config.Errorf("glider.Config: max rate of turn must be positive: %g", c.MaxRateOfTurn)
	case c.TurnLag.Std() < 0:
		return config.Errorf("glider.Config: turn lag must not be negative: %s", c.TurnLag)
	case c.Wind.Speed < 0:
		return config.Errorf("glider.Config: wind speed must not be negative: %g", c.Wind.Speed)
	case c.Start.Latitude < -90 || c.Start.Latitude > 90 || c.Start.Longitude < -180 || c.Start.Longitude > 180:
		return config.Errorf("glider.Config: start position out of range: %s", c.Start)
	}
	return nil
}

// Glider is a point-mass glider flying at constant airspeed. The rudder
// commands the rate of turn through a first-order lag. It serves navigation
// samples and accepts rudder commands, so it can stand in for both the
// navigation source and the actuator.
type Glider struct {
	mu sync.Mutex

	cfg     Config
	elapsed time.Duration
	start   time.Time

	pos      geo.Position
	altitude float64
	heading  float64
	rate     float64 // deg/s

	track       float64
	groundSpeed float64

	rudder  float64
	enabled bool
	landed  bool
}

// New creates a glider at the configured initial state. Sample timestamps
// count from start.
func New(cfg Config, start time.Time) (*Glider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Glider{
		cfg:      cfg,
		start:    start,
		pos:      cfg.Start,
		altitude: cfg.Altitude,
		heading:  geo.NormalizeHeading(cfg.Heading),
	}
	g.updateGroundVector()
	return g, nil
}

// SetRudder implements the director actuator. Commands are ignored while the
// glider is not under director authority.
func (g *Glider) SetRudder(deflection float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.enabled {
		g.rudder = math.Max(-1, math.Min(1, deflection))
	}
}

func (g *Glider) Enable() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.enabled = true
}

// Disable releases authority and centers the rudder.
func (g *Glider) Disable() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.enabled = false
	g.rudder = 0
}

// Step advances the model by dt.
func (g *Glider) Step(dt time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if dt <= 0 {
		return
	}
	g.elapsed += dt
	if g.landed {
		return
	}

	seconds := dt.Seconds()

	// First-order lag toward the commanded rate.
	commanded := g.rudder * g.cfg.MaxRateOfTurn
	if lag := g.cfg.TurnLag.Std().Seconds(); lag > 0 {
		g.rate += (commanded - g.rate) * (1 - math.Exp(-seconds/lag))
	} else {
		g.rate = commanded
	}
	g.heading = geo.NormalizeHeading(g.heading + g.rate*seconds)

	g.updateGroundVector()
	g.pos = geo.Destination(g.pos, g.track, g.groundSpeed*seconds/3600)

	g.altitude -= g.SinkRate() / 60 * seconds
	if g.altitude <= g.cfg.GroundElevation {
		g.altitude = g.cfg.GroundElevation
		g.landed = true
	}
}

func (g *Glider) updateGroundVector() {
	hdg := geo.DegToRad(g.heading)
	north := g.cfg.Airspeed * math.Cos(hdg)
	east := g.cfg.Airspeed * math.Sin(hdg)

	// Wind blows toward the reciprocal of its direction.
	wind := geo.DegToRad(g.cfg.Wind.Direction)
	north -= g.cfg.Wind.Speed * math.Cos(wind)
	east -= g.cfg.Wind.Speed * math.Sin(wind)

	g.groundSpeed = math.Hypot(north, east)
	if g.groundSpeed > 0 {
		g.track = geo.NormalizeHeading(geo.RadToDeg(math.Atan2(east, north)))
	}
}

// SinkRate returns the still-air sink rate in ft/min.
func (g *Glider) SinkRate() float64 {
	return g.cfg.Airspeed * feetPerNM / 60 / g.cfg.GlideRatio
}

// Sample implements telemetry.Provider. Every field is populated.
func (g *Glider) Sample() (*telemetry.Sample, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Coordinated turn bank angle, positive right wing down.
	omega := geo.DegToRad(g.rate)
	roll := geo.RadToDeg(math.Atan(g.cfg.Airspeed * metersPerKnot * omega / gravity))
	pitch := 0.0
	if !g.landed {
		pitch = -geo.RadToDeg(math.Atan(1 / g.cfg.GlideRatio))
	}

	return &telemetry.Sample{
		Timestamp:       g.start.Add(g.elapsed),
		Latitude:        telemetry.Float(g.pos.Latitude),
		Longitude:       telemetry.Float(g.pos.Longitude),
		Altitude:        telemetry.Float(g.altitude),
		GroundTrack:     telemetry.Float(g.track),
		GroundSpeed:     telemetry.Float(g.groundSpeed),
		MagneticHeading: telemetry.Float(g.heading),
		Pitch:           telemetry.Float(pitch),
		Roll:            telemetry.Float(roll),
		Yaw:             telemetry.Float(g.heading),
	}, true
}

// Position returns the current position.
func (g *Glider) Position() geo.Position {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.pos
}

// Altitude returns the current altitude in feet.
func (g *Glider) Altitude() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.altitude
}

// Landed reports whether the glider has reached the ground.
func (g *Glider) Landed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.landed
}

// Elapsed returns the simulated flight time.
func (g *Glider) Elapsed() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.elapsed
}
