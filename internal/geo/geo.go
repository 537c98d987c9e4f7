package geo

import (
	"fmt"
	"math"
)

// EarthRadiusNM is the mean spherical Earth radius in nautical miles.
const EarthRadiusNM = 3440.277

// Position is a point on the Earth's surface in decimal degrees.
type Position struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" msgpack:"lat"`
	Longitude float64 `json:"longitude" yaml:"longitude" msgpack:"lon"`
}

func (p Position) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Latitude, p.Longitude)
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// angularDistanceAndBearing returns the central angle between two points and
// the initial bearing in the range (-PI, PI], both in radians.
func angularDistanceAndBearing(p1, p2 Position) (float64, float64) {
	lat1, lon1 := DegToRad(p1.Latitude), DegToRad(p1.Longitude)
	lat2, lon2 := DegToRad(p2.Latitude), DegToRad(p2.Longitude)

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	return d, math.Atan2(y, x)
}

// DistanceAndBearing returns the great-circle (haversine) distance in nautical
// miles and the initial bearing in degrees, normalized to [0, 360).
func DistanceAndBearing(from, to Position) (distance, bearing float64) {
	d, t := angularDistanceAndBearing(from, to)
	return d * EarthRadiusNM, NormalizeHeading(RadToDeg(t))
}

// Destination projects a point distance nautical miles from origin along the
// given initial heading. The result is clamped, not wrapped: latitude to
// [-90, 90] and longitude to [-180, 180].
func Destination(origin Position, heading, distance float64) Position {
	if distance == 0 {
		return origin
	}

	lat := DegToRad(origin.Latitude)
	lon := DegToRad(origin.Longitude)
	h := DegToRad(heading)
	dr := distance / EarthRadiusNM

	dLat := math.Asin(math.Sin(lat)*math.Cos(dr) + math.Cos(lat)*math.Sin(dr)*math.Cos(h))
	dLon := lon + math.Atan2(math.Sin(h)*math.Sin(dr)*math.Cos(lat), math.Cos(dr)-math.Sin(lat)*math.Sin(dLat))

	return Position{
		Latitude:  clamp(RadToDeg(dLat), -90, 90),
		Longitude: clamp(RadToDeg(dLon), -180, 180),
	}
}

// CrossTrackError returns the signed distance in nautical miles of pos from
// the great-circle path origin -> dest. Positive is right of course, negative
// is left of course.
func CrossTrackError(origin, dest, pos Position) float64 {
	_, t12 := angularDistanceAndBearing(origin, dest)
	d13, t13 := angularDistanceAndBearing(origin, pos)

	return math.Asin(math.Sin(d13)*math.Sin(t13-t12)) * EarthRadiusNM
}

// NormalizeHeading reduces h to [0, 360).
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h -= 360
	}
	return h
}

// HeadingDelta returns the shortest signed turn from current to target in
// degrees, in the range (-180, 180]. Positive is a right (clockwise) turn.
func HeadingDelta(target, current float64) float64 {
	d := math.Mod(target-current, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
