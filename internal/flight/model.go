package flight

import (
	"time"

	"github.com/roman-kulish/glide-recovery/internal/director"
	"github.com/roman-kulish/glide-recovery/internal/geo"
)

// Session represents a single recorded flight.
// Each session captures metadata about when and how the flight was recorded.
type Session struct {
	ID        int64     `json:"ID"`                      // Unique identifier for the session
	StartTime time.Time `json:"startTime"`               // When the recording began
	Source    string    `json:"source"`                  // Navigation source (e.g., "udp", "nmea", "glidesim")
	Config    *string   `json:"config,string,omitempty"` // Optional director configuration in JSON format
}

// Record is the director state captured after a single refresh cycle.
type Record struct {
	Timestamp         time.Time     `json:"timestamp"`
	Position          geo.Position  `json:"position"`
	Altitude          float64       `json:"altitude"`          // ft
	GroundTrack       float64       `json:"groundTrack"`       // degrees
	GroundSpeed       float64       `json:"groundSpeed"`       // kt, averaged
	VerticalSpeed     float64       `json:"verticalSpeed"`     // ft/min, averaged
	Mode              director.Mode `json:"mode"`              // Guidance mode after the cycle
	ProjectedDistance float64       `json:"projectedDistance"` // nm
	TargetHeading     float64       `json:"targetHeading"`     // degrees
	RecoveryID        *int64        `json:"recoveryID,omitempty"`
	RecoveryDistance  float64       `json:"recoveryDistance"` // nm, zero without a recovery location
	RateOfTurn        float64       `json:"rateOfTurn"`       // deg/s, averaged
	TargetRateOfTurn  float64       `json:"targetRateOfTurn"` // deg/s
	Rudder            float64       `json:"rudder"`           // [-1, 1]
}

// NewRecord captures a director status snapshot.
func NewRecord(st director.Status) Record {
	r := Record{
		Timestamp:         st.Timestamp,
		Position:          st.Position,
		Altitude:          st.Altitude,
		GroundTrack:       st.GroundTrack,
		GroundSpeed:       st.GroundSpeed,
		VerticalSpeed:     st.VerticalSpeed,
		Mode:              st.Mode,
		ProjectedDistance: st.ProjectedDist,
		TargetHeading:     st.TargetHeading,
		RateOfTurn:        st.RateOfTurn,
		TargetRateOfTurn:  st.TargetRateOfTurn,
		Rudder:            st.Rudder,
	}

	if st.Recovery != nil {
		id := st.Recovery.ID
		r.RecoveryID = &id
		r.RecoveryDistance = st.RecoveryDistance
	}

	return r
}

// Leg is a run of consecutive records flown in the same mode.
type Leg struct {
	Mode    director.Mode `json:"mode"`
	Start   time.Time     `json:"start"`             // Timestamp of the first record
	End     time.Time     `json:"end"`               // Timestamp of the last record
	Records []Record      `json:"records,omitempty"` // Ordered by timestamp
}

// Duration returns the time covered by the leg.
func (l *Leg) Duration() time.Duration {
	return l.End.Sub(l.Start)
}
