package app

import (
	"math"
	"time"

	"github.com/roman-kulish/glide-recovery/internal/director"
	"github.com/roman-kulish/glide-recovery/internal/flight"
	"github.com/roman-kulish/glide-recovery/internal/geo"
	"github.com/roman-kulish/glide-recovery/internal/recovery"
)

// minSpan keeps the plot area finite for stationary tracks, in degrees.
const minSpan = 0.01

// TrackData accumulates legs read from a session and the recovery
// locations to draw next to them.
type TrackData struct {
	Session *flight.Session
	Legs    []flight.Leg
	Sites   []recovery.Location

	TimestampStart time.Time
	TimestampEnd   time.Time

	MinLatitude, MaxLatitude   float64
	MinLongitude, MaxLongitude float64
	MinAltitude, MaxAltitude   float64

	Records  int
	Distance float64 // nm over ground

	last *geo.Position
}

func NewTrackData(session *flight.Session) *TrackData {
	return &TrackData{
		Session:      session,
		MinLatitude:  math.Inf(1),
		MaxLatitude:  math.Inf(-1),
		MinLongitude: math.Inf(1),
		MaxLongitude: math.Inf(-1),
		MinAltitude:  math.Inf(1),
		MaxAltitude:  math.Inf(-1),
	}
}

// Update appends a leg and extends the track bounds and statistics.
func (t *TrackData) Update(leg *flight.Leg) {
	if leg == nil || len(leg.Records) == 0 {
		return
	}

	if t.Records == 0 {
		t.TimestampStart = leg.Start
	}
	t.TimestampEnd = leg.End

	for i := range leg.Records {
		r := &leg.Records[i]

		t.MinLatitude = math.Min(t.MinLatitude, r.Position.Latitude)
		t.MaxLatitude = math.Max(t.MaxLatitude, r.Position.Latitude)
		t.MinLongitude = math.Min(t.MinLongitude, r.Position.Longitude)
		t.MaxLongitude = math.Max(t.MaxLongitude, r.Position.Longitude)
		t.MinAltitude = math.Min(t.MinAltitude, r.Altitude)
		t.MaxAltitude = math.Max(t.MaxAltitude, r.Altitude)

		if t.last != nil {
			d, _ := geo.DistanceAndBearing(*t.last, r.Position)
			t.Distance += d
		}
		pos := r.Position
		t.last = &pos
	}

	t.Records += len(leg.Records)
	t.Legs = append(t.Legs, *leg)
}

func (t *TrackData) Empty() bool {
	return t.Records == 0
}

// AltitudeLost returns the height difference between the first and last record.
func (t *TrackData) AltitudeLost() float64 {
	if t.Empty() {
		return 0
	}
	first := t.Legs[0].Records[0]
	lastLeg := t.Legs[len(t.Legs)-1]
	return first.Altitude - lastLeg.Records[len(lastLeg.Records)-1].Altitude
}

// ModeTime sums leg durations per mode.
func (t *TrackData) ModeTime() map[director.Mode]time.Duration {
	times := make(map[director.Mode]time.Duration, 3)
	for i := range t.Legs {
		times[t.Legs[i].Mode] += t.Legs[i].Duration()
	}
	return times
}

// AddSites keeps the locations within margin nautical miles of the track
// bounds and extends the bounds to contain them. It returns the number of
// locations kept.
func (t *TrackData) AddSites(locations []recovery.Location, margin float64) int {
	if t.Empty() {
		return 0
	}

	dLat := margin / 60
	midLat := geo.DegToRad((t.MinLatitude + t.MaxLatitude) / 2)
	dLon := dLat / math.Max(math.Cos(midLat), 0.01)

	minLat, maxLat := t.MinLatitude-dLat, t.MaxLatitude+dLat
	minLon, maxLon := t.MinLongitude-dLon, t.MaxLongitude+dLon

	for _, loc := range locations {
		p := loc.Position
		if p.Latitude < minLat || p.Latitude > maxLat || p.Longitude < minLon || p.Longitude > maxLon {
			continue
		}

		t.Sites = append(t.Sites, loc)
		t.MinLatitude = math.Min(t.MinLatitude, p.Latitude)
		t.MaxLatitude = math.Max(t.MaxLatitude, p.Latitude)
		t.MinLongitude = math.Min(t.MinLongitude, p.Longitude)
		t.MaxLongitude = math.Max(t.MaxLongitude, p.Longitude)
	}

	return len(t.Sites)
}

// Projection maps positions onto a plot area with an equirectangular
// projection centred on the middle latitude of the track.
type Projection struct {
	Width, Height int
	PixelsPerDeg  float64

	minLat, maxLat float64
	minLon         float64
	lonScale       float64
}

// NewProjection fits the track bounds into a plot area whose longest side
// is size pixels.
func NewProjection(t *TrackData, size int) *Projection {
	minLat, maxLat := t.MinLatitude, t.MaxLatitude
	minLon, maxLon := t.MinLongitude, t.MaxLongitude

	if span := maxLat - minLat; span < minSpan {
		minLat -= (minSpan - span) / 2
		maxLat += (minSpan - span) / 2
	}
	if span := maxLon - minLon; span < minSpan {
		minLon -= (minSpan - span) / 2
		maxLon += (minSpan - span) / 2
	}

	lonScale := math.Max(math.Cos(geo.DegToRad((minLat+maxLat)/2)), 0.01)
	spanX := (maxLon - minLon) * lonScale
	spanY := maxLat - minLat
	ppd := float64(size) / math.Max(spanX, spanY)

	return &Projection{
		Width:        max(int(math.Round(spanX*ppd)), 1),
		Height:       max(int(math.Round(spanY*ppd)), 1),
		PixelsPerDeg: ppd,
		minLat:       minLat,
		maxLat:       maxLat,
		minLon:       minLon,
		lonScale:     lonScale,
	}
}

// Point returns the plot coordinates of a position, origin top left.
func (p *Projection) Point(pos geo.Position) (float64, float64) {
	x := (pos.Longitude - p.minLon) * p.lonScale * p.PixelsPerDeg
	y := (p.maxLat - pos.Latitude) * p.PixelsPerDeg
	return x, y
}

// NMPerPixel returns the ground distance covered by one pixel.
func (p *Projection) NMPerPixel() float64 {
	return 60 / p.PixelsPerDeg
}
