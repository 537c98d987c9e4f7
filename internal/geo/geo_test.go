package geo

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-9

func TestDistanceAndBearing(t *testing.T) {
	testCases := []struct {
		name     string
		from, to Position
		distance float64
		bearing  float64
		distTol  float64
	}{
		{
			name:     "one degree of latitude north",
			from:     Position{0, 0},
			to:       Position{1, 0},
			distance: EarthRadiusNM * math.Pi / 180,
			bearing:  0,
			distTol:  1e-6,
		},
		{
			name:     "one degree of longitude east on equator",
			from:     Position{0, 0},
			to:       Position{0, 1},
			distance: EarthRadiusNM * math.Pi / 180,
			bearing:  90,
			distTol:  1e-6,
		},
		{
			name:     "due south",
			from:     Position{10, 20},
			to:       Position{5, 20},
			distance: EarthRadiusNM * 5 * math.Pi / 180,
			bearing:  180,
			distTol:  1e-6,
		},
		{
			name:     "due west on equator",
			from:     Position{0, 10},
			to:       Position{0, 9},
			distance: EarthRadiusNM * math.Pi / 180,
			bearing:  270,
			distTol:  1e-6,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, b := DistanceAndBearing(tc.from, tc.to)
			if math.Abs(d-tc.distance) > tc.distTol {
				t.Errorf("Expected distance %f, got %f", tc.distance, d)
			}
			if math.Abs(b-tc.bearing) > 1e-6 {
				t.Errorf("Expected bearing %f, got %f", tc.bearing, b)
			}
		})
	}
}

func TestDistanceAndBearing_SamePoint(t *testing.T) {
	for _, p := range []Position{{0, 0}, {47.4502, -122.3088}, {-33.9461, 151.1772}, {89.9, 179.9}} {
		d, b := DistanceAndBearing(p, p)
		if d != 0 {
			t.Errorf("Expected zero distance for %v, got %g", p, d)
		}
		if b < 0 || b >= 360 {
			t.Errorf("Expected bearing in [0, 360) for %v, got %f", p, b)
		}
	}
}

func TestDestination_ZeroDistance(t *testing.T) {
	for _, p := range []Position{{0, 0}, {47.4502, -122.3088}, {-33.9461, 151.1772}, {-90, -180}, {90, 180}} {
		for _, h := range []float64{0, 45, 137.5, 270, 359.9} {
			if got := Destination(p, h, 0); got != p {
				t.Errorf("Destination(%v, %f, 0): expected %v, got %v", p, h, p, got)
			}
		}
	}
}

func TestDestination_RoundTrip(t *testing.T) {
	origin := Position{37.6213, -122.379}

	for _, h := range []float64{0, 30, 90, 181, 275.5} {
		for _, dist := range []float64{1, 25, 250} {
			dest := Destination(origin, h, dist)
			d, b := DistanceAndBearing(origin, dest)
			if math.Abs(d-dist) > 1e-6 {
				t.Errorf("heading %f distance %f: round trip distance %f", h, dist, d)
			}
			if math.Abs(HeadingDelta(b, h)) > 1e-6 {
				t.Errorf("heading %f distance %f: round trip bearing %f", h, dist, b)
			}
		}
	}
}

func TestDestination_Clamps(t *testing.T) {
	// A long projection west of the antimeridian is clamped rather than wrapped.
	p := Destination(Position{0, -179}, 270, 600)
	if p.Longitude != -180 {
		t.Errorf("Expected longitude clamped to -180, got %f", p.Longitude)
	}

	p = Destination(Position{0, 179}, 90, 600)
	if p.Longitude != 180 {
		t.Errorf("Expected longitude clamped to 180, got %f", p.Longitude)
	}
}

func TestCrossTrackError(t *testing.T) {
	origin := Position{0, 0}
	dest := Position{0, 10}

	t.Run("on path", func(t *testing.T) {
		for _, lon := range []float64{0, 2.5, 5, 9.9} {
			if x := CrossTrackError(origin, dest, Position{0, lon}); math.Abs(x) > tolerance {
				t.Errorf("Expected zero cross-track error at lon %f, got %g", lon, x)
			}
		}
	})

	t.Run("on oblique path", func(t *testing.T) {
		o := Position{40, -100}
		d := Destination(o, 63, 400)
		mid := Destination(o, 63, 150)
		if x := CrossTrackError(o, d, mid); math.Abs(x) > 1e-6 {
			t.Errorf("Expected zero cross-track error, got %g", x)
		}
	})

	t.Run("right of course", func(t *testing.T) {
		// Flying east, south is to the right.
		x := CrossTrackError(origin, dest, Position{-0.5, 5})
		if x <= 0 {
			t.Errorf("Expected positive cross-track error, got %f", x)
		}
		if math.Abs(x-30) > 0.1 {
			t.Errorf("Expected about 30 nm, got %f", x)
		}
	})

	t.Run("left of course", func(t *testing.T) {
		x := CrossTrackError(origin, dest, Position{0.5, 5})
		if x >= 0 {
			t.Errorf("Expected negative cross-track error, got %f", x)
		}
	})
}

func TestNormalizeHeading(t *testing.T) {
	testCases := []struct {
		in, want float64
	}{
		{0, 0},
		{359.5, 359.5},
		{360, 0},
		{450, 90},
		{-90, 270},
		{-720, 0},
		{-0.25, 359.75},
	}

	for _, tc := range testCases {
		got := NormalizeHeading(tc.in)
		if got < 0 || got >= 360 {
			t.Errorf("NormalizeHeading(%f) = %f out of range", tc.in, got)
		}
		if math.Abs(got-tc.want) > tolerance {
			t.Errorf("NormalizeHeading(%f): expected %f, got %f", tc.in, tc.want, got)
		}
	}
}

func TestHeadingDelta(t *testing.T) {
	testCases := []struct {
		name            string
		target, current float64
		want            float64
	}{
		{"right turn", 90, 0, 90},
		{"left turn", 0, 90, -90},
		{"across north right", 10, 350, 20},
		{"across north left", 350, 10, -20},
		{"reciprocal is positive", 180, 0, 180},
		{"reciprocal reversed is positive", 0, 180, 180},
		{"same", 123, 123, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HeadingDelta(tc.target, tc.current); math.Abs(got-tc.want) > tolerance {
				t.Errorf("Expected %f, got %f", tc.want, got)
			}
		})
	}
}

func TestHeadingDelta_Range(t *testing.T) {
	// Pairs summing to multiples of 360 and arbitrary pairs must wrap into (-180, 180].
	for target := -720.0; target <= 720; target += 7.5 {
		for _, sum := range []float64{0, 360, 720, -360} {
			current := sum - target
			d := HeadingDelta(target, current)
			if d <= -180 || d > 180 {
				t.Fatalf("HeadingDelta(%f, %f) = %f out of range", target, current, d)
			}
		}
	}
}

func TestParseCoordinate(t *testing.T) {
	testCases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"-33.9461", -33.9461, false},
		{"151.1772", 151.1772, false},
		{"33-56-46.00S", -(33 + 56.0/60 + 46.0/3600), false},
		{"151-10-38.00E", 151 + 10.0/60 + 38.0/3600, false},
		{"122 18 31.7W", -(122 + 18.0/60 + 31.7/3600), false},
		{"47:27:00N", 47.45, false},
		{"", 0, true},
		{"abcN", 0, true},
		{"10-75-00N", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCoordinate(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidCoordinate) {
					t.Errorf("Expected ErrInvalidCoordinate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(got-tc.want) > tolerance {
				t.Errorf("Expected %f, got %f", tc.want, got)
			}
		})
	}
}
