package telemetry

import (
	"time"

	"github.com/roman-kulish/glide-recovery/internal/geo"
)

// Provider is a navigation sample source. Sample must not block: it returns
// the most recent snapshot, or false when no sample is available this cycle.
type Provider interface {
	Sample() (*Sample, bool)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func() (*Sample, bool)

func (f ProviderFunc) Sample() (*Sample, bool) {
	return f()
}

// Sample is a single navigation sample. Fields that were not populated during
// this cycle are nil.
type Sample struct {
	Timestamp       time.Time `json:"timestamp"`                 // Timestamp of the measurement
	Latitude        *float64  `json:"latitude,omitempty"`        // GPS latitude in degrees
	Longitude       *float64  `json:"longitude,omitempty"`       // GPS longitude in degrees
	Altitude        *float64  `json:"altitude,omitempty"`        // Altitude in feet
	GroundTrack     *float64  `json:"groundTrack,omitempty"`     // True course over ground in degrees
	GroundSpeed     *float64  `json:"groundSpeed,omitempty"`     // Ground speed in knots
	MagneticHeading *float64  `json:"magneticHeading,omitempty"` // Magnetic heading in degrees
	Pitch           *float64  `json:"pitch,omitempty"`           // Pitch angle in degrees
	Roll            *float64  `json:"roll,omitempty"`            // Roll angle in degrees, positive right wing down
	Yaw             *float64  `json:"yaw,omitempty"`             // Yaw angle in degrees
}

// Float returns a pointer to v. It is a convenience for building samples.
func Float(v float64) *float64 {
	return &v
}

// HasPosition reports whether both latitude and longitude are present.
func (s *Sample) HasPosition() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Empty reports whether no field is populated.
func (s *Sample) Empty() bool {
	return s.Latitude == nil && s.Longitude == nil && s.Altitude == nil &&
		s.GroundTrack == nil && s.GroundSpeed == nil && s.MagneticHeading == nil &&
		s.Pitch == nil && s.Roll == nil && s.Yaw == nil
}

// Position returns the sample position. The zero position is returned when
// either coordinate is missing.
func (s *Sample) Position() geo.Position {
	if !s.HasPosition() {
		return geo.Position{}
	}
	return geo.Position{Latitude: *s.Latitude, Longitude: *s.Longitude}
}

// Clone returns a deep copy of the sample.
func (s *Sample) Clone() *Sample {
	if s == nil {
		return nil
	}

	c := Sample{Timestamp: s.Timestamp}
	for _, f := range []struct {
		dst **float64
		src *float64
	}{
		{&c.Latitude, s.Latitude},
		{&c.Longitude, s.Longitude},
		{&c.Altitude, s.Altitude},
		{&c.GroundTrack, s.GroundTrack},
		{&c.GroundSpeed, s.GroundSpeed},
		{&c.MagneticHeading, s.MagneticHeading},
		{&c.Pitch, s.Pitch},
		{&c.Roll, s.Roll},
		{&c.Yaw, s.Yaw},
	} {
		if f.src != nil {
			*f.dst = Float(*f.src)
		}
	}

	return &c
}

// Merge returns a copy of s where every missing field is filled from prev.
// Latitude and longitude are merged as a pair. prev may be nil.
func (s *Sample) Merge(prev *Sample) *Sample {
	m := s.Clone()
	if prev == nil {
		return m
	}

	if !m.HasPosition() && prev.HasPosition() {
		m.Latitude, m.Longitude = Float(*prev.Latitude), Float(*prev.Longitude)
	}
	for _, f := range []struct {
		dst **float64
		src *float64
	}{
		{&m.Altitude, prev.Altitude},
		{&m.GroundTrack, prev.GroundTrack},
		{&m.GroundSpeed, prev.GroundSpeed},
		{&m.MagneticHeading, prev.MagneticHeading},
		{&m.Pitch, prev.Pitch},
		{&m.Roll, prev.Roll},
		{&m.Yaw, prev.Yaw},
	} {
		if *f.dst == nil && f.src != nil {
			*f.dst = Float(*f.src)
		}
	}

	if m.Timestamp.IsZero() {
		m.Timestamp = prev.Timestamp
	}

	return m
}
