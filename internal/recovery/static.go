package recovery

import (
	"context"
	"fmt"

	"github.com/roman-kulish/glide-recovery/internal/geo"
)

// StaticLookup searches an in-memory list of recovery locations.
type StaticLookup struct {
	locations []Location
}

// NewStaticLookup validates and copies the given locations.
func NewStaticLookup(locations []Location) (*StaticLookup, error) {
	l := StaticLookup{locations: make([]Location, 0, len(locations))}

	for i, loc := range locations {
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("location %d: %w", i, err)
		}
		if loc.ID == 0 || loc.ID == InvalidID {
			loc.ID = int64(i + 1)
		}
		l.locations = append(l.locations, loc)
	}

	return &l, nil
}

// FindNearest implements Lookup.
func (l *StaticLookup) FindNearest(ctx context.Context, pos geo.Position, heading, maxDistance float64) (*Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Nearest(pos, heading, maxDistance, l.locations), nil
}

// Len returns the number of locations.
func (l *StaticLookup) Len() int {
	return len(l.locations)
}

// LocationSpec is a recovery location as written in configuration and
// import files. Coordinates are decimal degrees or degrees-minutes-seconds.
type LocationSpec struct {
	Ident     string  `yaml:"ident"`
	Latitude  string  `yaml:"latitude"`
	Longitude string  `yaml:"longitude"`
	Elevation float64 `yaml:"elevation"`
}

// Location parses the coordinates. The returned location has no ID.
func (s *LocationSpec) Location() (Location, error) {
	lat, err := geo.ParseCoordinate(s.Latitude)
	if err != nil {
		return Location{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := geo.ParseCoordinate(s.Longitude)
	if err != nil {
		return Location{}, fmt.Errorf("longitude: %w", err)
	}

	return Location{
		ID:        InvalidID,
		Ident:     s.Ident,
		Position:  geo.Position{Latitude: lat, Longitude: lon},
		Elevation: s.Elevation,
	}, nil
}

// ParseLocations parses a list of location specs.
func ParseLocations(specs []LocationSpec) ([]Location, error) {
	locations := make([]Location, 0, len(specs))
	for i := range specs {
		loc, err := specs[i].Location()
		if err != nil {
			return nil, fmt.Errorf("location %d: %w", i, err)
		}
		locations = append(locations, loc)
	}
	return locations, nil
}
