package transport

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roman-kulish/glide-recovery/internal/telemetry"
)

// NavigationPacket is a msgpack-encoded navigation datagram. Fields the sender
// did not measure are omitted.
type NavigationPacket struct {
	Seq             uint32   `msgpack:"seq"`
	Timestamp       int64    `msgpack:"ts,omitempty"` // Unix milliseconds
	Latitude        *float64 `msgpack:"lat,omitempty"`
	Longitude       *float64 `msgpack:"lon,omitempty"`
	Altitude        *float64 `msgpack:"alt,omitempty"` // ft
	GroundTrack     *float64 `msgpack:"trk,omitempty"`
	GroundSpeed     *float64 `msgpack:"gs,omitempty"` // kt
	MagneticHeading *float64 `msgpack:"hdg,omitempty"`
	Pitch           *float64 `msgpack:"pitch,omitempty"`
	Roll            *float64 `msgpack:"roll,omitempty"`
	Yaw             *float64 `msgpack:"yaw,omitempty"`
}

// NewNavigationPacket builds a datagram from a sample.
func NewNavigationPacket(seq uint32, s *telemetry.Sample) *NavigationPacket {
	p := &NavigationPacket{
		Seq:             seq,
		Latitude:        s.Latitude,
		Longitude:       s.Longitude,
		Altitude:        s.Altitude,
		GroundTrack:     s.GroundTrack,
		GroundSpeed:     s.GroundSpeed,
		MagneticHeading: s.MagneticHeading,
		Pitch:           s.Pitch,
		Roll:            s.Roll,
		Yaw:             s.Yaw,
	}
	if !s.Timestamp.IsZero() {
		p.Timestamp = s.Timestamp.UnixMilli()
	}
	return p
}

// Sample converts the datagram into a navigation sample.
func (p *NavigationPacket) Sample() *telemetry.Sample {
	s := &telemetry.Sample{
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		Altitude:        p.Altitude,
		GroundTrack:     p.GroundTrack,
		GroundSpeed:     p.GroundSpeed,
		MagneticHeading: p.MagneticHeading,
		Pitch:           p.Pitch,
		Roll:            p.Roll,
		Yaw:             p.Yaw,
	}
	if p.Timestamp != 0 {
		s.Timestamp = time.UnixMilli(p.Timestamp).UTC()
	}
	return s
}

// RudderPacket is a msgpack-encoded rudder command. Receivers must ignore the
// deflection while Armed is false.
type RudderPacket struct {
	Seq        uint32  `msgpack:"seq"`
	Deflection float64 `msgpack:"rudder"` // [-1, 1], positive right
	Armed      bool    `msgpack:"armed"`
}

// Marshal encodes a packet.
func Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decodes a packet.
func Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// seqAfter reports whether a follows b, allowing for wraparound.
func seqAfter(a, b uint32) bool {
	return int32(a-b) > 0
}
