package recovery

import (
	"context"
	"fmt"
	"math"

	"github.com/roman-kulish/glide-recovery/internal/geo"
)

const (
	// InvalidID marks a location that is not set.
	InvalidID int64 = -1

	// MaxIdentLength is the maximum length of a location identifier.
	MaxIdentLength = 8

	// ConeHalfAngle is the half angle in degrees of the heading-relative search cone.
	ConeHalfAngle = 45.0
)

// Location is a designated safe landing site.
type Location struct {
	ID        int64        `json:"id"`
	Ident     string       `json:"ident"`
	Position  geo.Position `json:"position"`
	Elevation float64      `json:"elevation"` // Ground elevation in feet
}

// Valid reports whether the location is set.
func (l *Location) Valid() bool {
	return l != nil && l.ID != InvalidID
}

// Validate checks the identifier length and coordinate ranges.
func (l *Location) Validate() error {
	if len(l.Ident) > MaxIdentLength {
		return fmt.Errorf("ident %q exceeds %d characters", l.Ident, MaxIdentLength)
	}
	if l.Position.Latitude < -90 || l.Position.Latitude > 90 ||
		l.Position.Longitude < -180 || l.Position.Longitude > 180 {
		return fmt.Errorf("position out of range: %s", l.Position)
	}
	return nil
}

func (l *Location) String() string {
	if !l.Valid() {
		return "none"
	}
	return fmt.Sprintf("%s (%s)", l.Ident, l.Position)
}

// Lookup finds the nearest reachable recovery location. Implementations must
// only return locations within maxDistance nautical miles of pos and within
// ConeHalfAngle degrees of heading. A nil location with a nil error means no
// location was found.
type Lookup interface {
	FindNearest(ctx context.Context, pos geo.Position, heading, maxDistance float64) (*Location, error)
}

// LookupFunc adapts a plain function to the Lookup interface.
type LookupFunc func(ctx context.Context, pos geo.Position, heading, maxDistance float64) (*Location, error)

func (f LookupFunc) FindNearest(ctx context.Context, pos geo.Position, heading, maxDistance float64) (*Location, error) {
	return f(ctx, pos, heading, maxDistance)
}

// Eligible returns the distance to loc and whether it lies inside the search
// cone and within maxDistance.
func Eligible(pos geo.Position, heading, maxDistance float64, loc *Location) (float64, bool) {
	distance, bearing := geo.DistanceAndBearing(pos, loc.Position)
	if distance > maxDistance {
		return distance, false
	}
	if distance == 0 {
		return 0, true // directly overhead
	}
	return distance, math.Abs(geo.HeadingDelta(bearing, heading)) <= ConeHalfAngle
}

// LatitudeBand returns the latitude range that can contain locations within
// maxDistance of pos. Stores use it as a coarse prefilter.
func LatitudeBand(pos geo.Position, maxDistance float64) (float64, float64) {
	d := geo.RadToDeg(maxDistance / geo.EarthRadiusNM)
	return math.Max(pos.Latitude-d, -90), math.Min(pos.Latitude+d, 90)
}

// Nearest returns the closest eligible location among candidates, or nil.
func Nearest(pos geo.Position, heading, maxDistance float64, candidates []Location) *Location {
	var (
		best     *Location
		bestDist = math.Inf(1)
	)

	for i := range candidates {
		d, ok := Eligible(pos, heading, maxDistance, &candidates[i])
		if ok && d < bestDist {
			best, bestDist = &candidates[i], d
		}
	}

	if best == nil {
		return nil
	}

	found := *best
	return &found
}
