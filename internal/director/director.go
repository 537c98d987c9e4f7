package director

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/glide-recovery/internal/averaging"
	"github.com/roman-kulish/glide-recovery/internal/geo"
	"github.com/roman-kulish/glide-recovery/internal/recovery"
	"github.com/roman-kulish/glide-recovery/internal/telemetry"
)

// ErrInvalidArgument is returned when the director is constructed with a missing collaborator.
var ErrInvalidArgument = errors.New("invalid argument")

// Actuator is the rudder actuator. Deflection is always in [-1, 1]. Enable and
// Disable arm and disarm the actuator authority.
type Actuator interface {
	SetRudder(deflection float64)
	Enable()
	Disable()
}

// WithLogger sets the logger for the director
func WithLogger(logger *slog.Logger) func(d *Director) {
	return func(d *Director) {
		d.logger = logger
	}
}

// WithConfig replaces the default tunables
func WithConfig(cfg Config) func(d *Director) {
	return func(d *Director) {
		d.config = cfg
	}
}

// state is owned by Refresh and never shared.
type state struct {
	last        *telemetry.Sample
	initialized bool

	mode        Mode
	projected   float64 // nm
	target      float64 // target heading, degrees
	origin      geo.Position
	recovery    recovery.Location
	course      float64 // bearing to the recovery location at track entry
	seekElapsed uint32  // ms

	// ms since the field was last present in a raw sample
	trackAge    uint32
	altitudeAge uint32

	rateOfTurn    *averaging.Buffer // deg/s
	verticalSpeed *averaging.Buffer // ft/min
	groundSpeed   *averaging.Buffer // kt

	distance   float64 // nm to the recovery location
	bearing    float64
	targetRate float64
	rudder     float64

	lookupFailing bool
}

// Director is the glide-recovery flight director. Refresh must be called from
// a single goroutine.
type Director struct {
	actuator Actuator
	nav      telemetry.Provider
	lookup   recovery.Lookup

	config  Config
	enabled atomic.Bool
	state   state

	logger *slog.Logger
}

// New creates a flight director in seek mode.
func New(actuator Actuator, nav telemetry.Provider, lookup recovery.Lookup, options ...func(d *Director)) (*Director, error) {
	switch {
	case actuator == nil:
		return nil, fmt.Errorf("%w: nil actuator", ErrInvalidArgument)
	case nav == nil:
		return nil, fmt.Errorf("%w: nil navigation provider", ErrInvalidArgument)
	case lookup == nil:
		return nil, fmt.Errorf("%w: nil recovery lookup", ErrInvalidArgument)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	d := Director{
		actuator: actuator,
		nav:      nav,
		lookup:   lookup,
		config:   DefaultConfig(),
		logger:   logger,
	}

	for _, option := range options {
		option(&d)
	}

	if err := d.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid director config: %w", err)
	}

	var err error
	if d.state.rateOfTurn, err = averaging.NewBuffer(d.config.RateOfTurnSamples); err != nil {
		return nil, fmt.Errorf("error creating rate of turn buffer: %w", err)
	}
	if d.state.verticalSpeed, err = averaging.NewBuffer(d.config.VerticalSpeedSamples); err != nil {
		return nil, fmt.Errorf("error creating vertical speed buffer: %w", err)
	}
	if d.state.groundSpeed, err = averaging.NewBuffer(d.config.GroundSpeedSamples); err != nil {
		return nil, fmt.Errorf("error creating ground speed buffer: %w", err)
	}

	d.state.mode = ModeSeek
	d.state.recovery.ID = recovery.InvalidID

	return &d, nil
}

// Enable arms the actuator authority. Guidance state is not affected.
func (d *Director) Enable() {
	if d.enabled.CompareAndSwap(false, true) {
		d.actuator.Enable()
		d.logger.Info("director engaged")
	}
}

// Disable disarms the actuator authority. Guidance state is not affected.
func (d *Director) Disable() {
	if d.enabled.CompareAndSwap(true, false) {
		d.actuator.Disable()
		d.logger.Info("director disengaged")
	}
}

// Enabled reports whether the actuator authority is armed.
func (d *Director) Enabled() bool {
	return d.enabled.Load()
}

// Config returns the tunables in use.
func (d *Director) Config() Config {
	return d.config
}

// Refresh runs one guidance cycle. elapsedMs is the time since the previous
// call. Nothing happens when elapsedMs is zero or the navigation provider has
// no sample; a failing lookup degrades to the seek pattern.
func (d *Director) Refresh(ctx context.Context, elapsedMs uint32) {
	if elapsedMs < 1 {
		return
	}

	raw, ok := d.nav.Sample()
	if !ok || raw == nil {
		return
	}

	s := &d.state
	prev := s.last
	cur := raw.Merge(prev)

	s.trackAge += elapsedMs
	s.altitudeAge += elapsedMs
	trackSeconds := float64(s.trackAge) / 1000
	altitudeSeconds := float64(s.altitudeAge) / 1000
	if raw.GroundTrack != nil {
		s.trackAge = 0
	}
	if raw.Altitude != nil {
		s.altitudeAge = 0
	}

	if !cur.HasPosition() || cur.Altitude == nil || cur.GroundTrack == nil || cur.GroundSpeed == nil {
		s.last = cur // keep partial fields until the sample is complete
		return
	}

	// Derived rates need the field in both this and the previous sample and
	// span the time since the field was last seen.
	if prev != nil {
		if raw.GroundTrack != nil && prev.GroundTrack != nil {
			s.rateOfTurn.Push(geo.HeadingDelta(*cur.GroundTrack, *prev.GroundTrack) / trackSeconds)
		}
		if raw.Altitude != nil && prev.Altitude != nil {
			s.verticalSpeed.Push((*cur.Altitude - *prev.Altitude) / altitudeSeconds * 60)
		}
	}
	if raw.GroundSpeed != nil {
		s.groundSpeed.Push(*cur.GroundSpeed)
	}

	s.last = cur

	pos := cur.Position()
	track := *cur.GroundTrack

	if !s.initialized {
		s.initialized = true
		s.target = geo.NormalizeHeading(track)
	}

	d.updateProjection(*cur.Altitude)

	if s.mode != ModeSeek {
		s.distance, s.bearing = geo.DistanceAndBearing(pos, s.recovery.Position)

		if agl := *cur.Altitude - s.recovery.Elevation; s.distance > s.projected && agl > d.config.AbandonAltitude {
			d.logger.Info("recovery location out of reach, entering seek mode",
				slog.String("recovery", s.recovery.Ident),
				slog.String("distance", formatNM(s.distance)),
				slog.String("projected", formatNM(s.projected)),
				slog.String("agl", formatFeet(agl)),
			)

			d.enterSeek(track)
			d.updateProjection(*cur.Altitude)
		}
	}

	switch s.mode {
	case ModeSeek:
		d.seek(ctx, pos, track, elapsedMs)
	case ModeTrack:
		d.track(pos)
	case ModeCircle:
		d.circle(pos)
	}

	d.steer(raw, track)
}

// updateProjection recomputes the glide projection over the active recovery
// location, or over the current altitude when none is set.
func (d *Director) updateProjection(altitude float64) {
	s := &d.state

	agl := altitude
	if s.recovery.Valid() {
		agl -= s.recovery.Elevation
	}

	s.projected = ProjectedDistance(agl, s.verticalSpeed.Average(), s.groundSpeed.Average(), d.config)
}

func (d *Director) enterSeek(track float64) {
	s := &d.state

	s.mode = ModeSeek
	s.recovery = recovery.Location{ID: recovery.InvalidID}
	s.seekElapsed = 0
	s.target = geo.NormalizeHeading(track)
	s.distance, s.bearing = 0, 0
}

func (d *Director) enterTrack(pos geo.Position, reason string) {
	s := &d.state

	s.mode = ModeTrack
	s.origin = pos
	s.course = s.bearing
	s.target = s.course
	s.seekElapsed = 0

	d.logger.Info("entering track mode",
		slog.String("reason", reason),
		slog.String("recovery", s.recovery.Ident),
		slog.String("course", formatHeading(s.course)),
		slog.String("distance", formatNM(s.distance)),
		slog.String("projected", formatNM(s.projected)),
	)
}

func (d *Director) seek(ctx context.Context, pos geo.Position, track float64, elapsedMs uint32) {
	s := &d.state

	loc, err := d.lookup.FindNearest(ctx, pos, track, s.projected)
	if err != nil {
		if !s.lookupFailing {
			s.lookupFailing = true
			d.logger.Warn("recovery lookup failed, continuing search pattern", slog.String("error", err.Error()))
		}
		loc = nil
	} else if s.lookupFailing {
		s.lookupFailing = false
		d.logger.Info("recovery lookup recovered")
	}

	if loc.Valid() {
		s.recovery = *loc
		s.distance, s.bearing = geo.DistanceAndBearing(pos, loc.Position)
		d.enterTrack(pos, "recovery location found")
		return
	}

	s.seekElapsed += elapsedMs
	for leg := d.config.SeekLeg.Milliseconds(); s.seekElapsed >= leg; s.seekElapsed -= leg {
		s.target = geo.NormalizeHeading(s.target + d.config.SeekTurn)
	}
}

func (d *Director) track(pos geo.Position) {
	s := &d.state

	if md := CircleRadius(s.groundSpeed.Average(), d.config); s.distance <= md {
		s.mode = ModeCircle
		s.target = s.bearing

		d.logger.Info("entering circle mode",
			slog.String("recovery", s.recovery.Ident),
			slog.String("radius", formatNM(md)),
			slog.String("distance", formatNM(s.distance)),
		)
		return
	}

	x := geo.CrossTrackError(s.origin, s.recovery.Position, pos)
	a := InterceptAngle(x, s.groundSpeed.Average())
	s.target = geo.NormalizeHeading(s.course - a)
}

func (d *Director) circle(pos geo.Position) {
	s := &d.state

	if md := CircleRadius(s.groundSpeed.Average(), d.config); s.distance > md+d.config.CircleMargin {
		d.enterTrack(pos, "drifted outside circle")
		return
	}

	s.target = s.bearing
}

// steer runs the rate of turn and rudder control laws. Attitude limits apply
// only when the attitude field is present in this cycle's sample.
func (d *Director) steer(raw *telemetry.Sample, track float64) {
	s := &d.state

	rt := TargetRateOfTurn(HeadingError(s.target, track))
	if raw.Roll != nil {
		rt = LimitBank(rt, *raw.Roll, d.config.BankLimit)
	}

	ar := RudderDeflection(rt - s.rateOfTurn.Average())
	if raw.Pitch != nil && math.Abs(*raw.Pitch) > d.config.PitchLimit {
		ar = 0
	}

	s.targetRate = rt
	s.rudder = ar

	d.actuator.SetRudder(ar)
}

// Status is a value snapshot of the director state.
type Status struct {
	Timestamp        time.Time          `json:"timestamp"`
	Enabled          bool               `json:"enabled"`
	Initialized      bool               `json:"initialized"` // A complete sample has been processed
	Mode             Mode               `json:"mode"`
	Position         geo.Position       `json:"position"`
	Altitude         float64            `json:"altitude"`
	GroundTrack      float64            `json:"groundTrack"`
	ProjectedDist    float64            `json:"projectedDistance"`
	TargetHeading    float64            `json:"targetHeading"`
	Recovery         *recovery.Location `json:"recovery,omitempty"`
	RecoveryDistance float64            `json:"recoveryDistance"`
	RecoveryBearing  float64            `json:"recoveryBearing"`
	Course           float64            `json:"course"`
	RateOfTurn       float64            `json:"rateOfTurn"`
	TargetRateOfTurn float64            `json:"targetRateOfTurn"`
	VerticalSpeed    float64            `json:"verticalSpeed"`
	GroundSpeed      float64            `json:"groundSpeed"`
	Rudder           float64            `json:"rudder"`
}

// Status returns a snapshot of the director state. It must be called from the
// goroutine that calls Refresh.
func (d *Director) Status() Status {
	s := &d.state

	st := Status{
		Enabled:          d.enabled.Load(),
		Initialized:      s.initialized,
		Mode:             s.mode,
		ProjectedDist:    s.projected,
		TargetHeading:    s.target,
		RecoveryDistance: s.distance,
		RecoveryBearing:  s.bearing,
		Course:           s.course,
		RateOfTurn:       s.rateOfTurn.Average(),
		TargetRateOfTurn: s.targetRate,
		VerticalSpeed:    s.verticalSpeed.Average(),
		GroundSpeed:      s.groundSpeed.Average(),
		Rudder:           s.rudder,
	}

	if s.last != nil {
		st.Timestamp = s.last.Timestamp
		st.Position = s.last.Position()
		if s.last.Altitude != nil {
			st.Altitude = *s.last.Altitude
		}
		if s.last.GroundTrack != nil {
			st.GroundTrack = *s.last.GroundTrack
		}
	}

	if s.recovery.Valid() {
		loc := s.recovery
		st.Recovery = &loc
	}

	return st
}

func formatNM(v float64) string {
	return humanize.FormatFloat("#,###.#", v) + " nm"
}

func formatFeet(v float64) string {
	return humanize.Comma(int64(math.Round(v))) + " ft"
}

func formatHeading(v float64) string {
	return fmt.Sprintf("%03.0f", v)
}
