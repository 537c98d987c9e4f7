package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/roman-kulish/glide-recovery/internal/geo"
)

var origin = geo.Position{Latitude: 0, Longitude: 0}

func testLocations() []Location {
	return []Location{
		{ID: 1, Ident: "NORTH10", Position: geo.Destination(origin, 0, 10), Elevation: 100},
		{ID: 2, Ident: "NORTH30", Position: geo.Destination(origin, 10, 30), Elevation: 200},
		{ID: 3, Ident: "EAST5", Position: geo.Destination(origin, 90, 5), Elevation: 300},
		{ID: 4, Ident: "NE40", Position: geo.Destination(origin, 44, 40), Elevation: 400},
	}
}

func TestStaticLookup_FindNearest(t *testing.T) {
	lookup, err := NewStaticLookup(testLocations())
	if err != nil {
		t.Fatalf("Failed to create lookup: %v", err)
	}

	testCases := []struct {
		name        string
		heading     float64
		maxDistance float64
		wantID      int64 // 0 means none
	}{
		{"nearest ahead", 0, 100, 1},
		{"nearest within cone only", 90, 100, 3},
		{"east location outside cone heading north", 0, 6, 0},
		{"distance limit excludes all", 0, 9, 0},
		{"cone edge included", 89, 100, 3},
		{"behind", 180, 100, 0},
		{"wraps across north", 330, 15, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			loc, err := lookup.FindNearest(context.Background(), origin, tc.heading, tc.maxDistance)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tc.wantID == 0 {
				if loc != nil {
					t.Errorf("Expected no location, got %s", loc)
				}
				return
			}
			if loc == nil {
				t.Fatalf("Expected location %d, got none", tc.wantID)
			}
			if loc.ID != tc.wantID {
				t.Errorf("Expected location %d, got %d (%s)", tc.wantID, loc.ID, loc)
			}
		})
	}
}

func TestStaticLookup_ReturnsCopy(t *testing.T) {
	lookup, err := NewStaticLookup(testLocations())
	if err != nil {
		t.Fatalf("Failed to create lookup: %v", err)
	}

	loc, _ := lookup.FindNearest(context.Background(), origin, 0, 100)
	loc.Ident = "CHANGED"

	again, _ := lookup.FindNearest(context.Background(), origin, 0, 100)
	if again.Ident != "NORTH10" {
		t.Errorf("Expected lookup state to be unchanged, got %s", again.Ident)
	}
}

func TestNewStaticLookup_Validation(t *testing.T) {
	if _, err := NewStaticLookup([]Location{{Ident: "TOOLONGID"}}); err == nil {
		t.Error("Expected error for long ident")
	}
	if _, err := NewStaticLookup([]Location{{Ident: "BAD", Position: geo.Position{Latitude: 91}}}); err == nil {
		t.Error("Expected error for out of range position")
	}

	l, err := NewStaticLookup([]Location{{Ident: "A"}, {Ident: "B"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if l.Len() != 2 || l.locations[1].ID != 2 {
		t.Errorf("Expected generated IDs, got %+v", l.locations)
	}
}

func TestLocation_Valid(t *testing.T) {
	var nilLoc *Location
	if nilLoc.Valid() {
		t.Error("Expected nil location to be invalid")
	}
	if (&Location{ID: InvalidID}).Valid() {
		t.Error("Expected InvalidID location to be invalid")
	}
	if !(&Location{ID: 7}).Valid() {
		t.Error("Expected location to be valid")
	}
}

func TestLatitudeBand(t *testing.T) {
	lo, hi := LatitudeBand(geo.Position{Latitude: 89.5}, 60)
	if hi != 90 {
		t.Errorf("Expected band clamped at 90, got %f", hi)
	}
	if lo > 88.6 || lo < 88.4 {
		t.Errorf("Expected lower bound about 88.5, got %f", lo)
	}
}

type countingLookup struct {
	calls int
	fail  int
	loc   *Location
}

func (c *countingLookup) FindNearest(_ context.Context, _ geo.Position, _, _ float64) (*Location, error) {
	c.calls++
	if c.calls <= c.fail {
		return nil, errors.New("database is locked")
	}
	return c.loc, nil
}

func TestThrottled(t *testing.T) {
	loc := testLocations()[0]
	next := &countingLookup{loc: &loc}
	lookup := Throttled(next, rate.NewLimiter(rate.Every(time.Hour), 1))

	first, err := lookup.FindNearest(context.Background(), origin, 0, 100)
	if err != nil || first == nil || first.ID != 1 {
		t.Fatalf("Expected first query to pass through, got %v %v", first, err)
	}

	cached, err := lookup.FindNearest(context.Background(), origin, 0, 100)
	if err != nil || cached == nil || cached.ID != 1 {
		t.Fatalf("Expected cached answer, got %v %v", cached, err)
	}
	if next.calls != 1 {
		t.Errorf("Expected one call to the wrapped lookup, got %d", next.calls)
	}

	// The cached answer is not eligible for a query facing away from it.
	if got, _ := lookup.FindNearest(context.Background(), origin, 180, 100); got != nil {
		t.Errorf("Expected no answer for ineligible cached location, got %s", got)
	}
}

func TestWithRetry(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
	loc := testLocations()[2]

	t.Run("recovers", func(t *testing.T) {
		next := &countingLookup{fail: 2, loc: &loc}
		got, err := WithRetry(next, cfg).FindNearest(context.Background(), origin, 90, 100)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got.ID != loc.ID || next.calls != 3 {
			t.Errorf("Expected success on third call, got %v after %d calls", got, next.calls)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		next := &countingLookup{fail: 10, loc: &loc}
		_, err := WithRetry(next, cfg).FindNearest(context.Background(), origin, 90, 100)
		if err == nil {
			t.Fatal("Expected error")
		}
		if next.calls != 3 {
			t.Errorf("Expected 3 calls, got %d", next.calls)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		next := &countingLookup{fail: 10, loc: &loc}
		_, err := WithRetry(next, cfg).FindNearest(ctx, origin, 90, 100)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestParseLocations(t *testing.T) {
	locations, err := ParseLocations([]LocationSpec{
		{Ident: "YSSY", Latitude: "33-56-46.00S", Longitude: "151-10-38.00E", Elevation: 21},
		{Ident: "KSEA", Latitude: "47.4502", Longitude: "-122.3088"},
	})
	if err != nil {
		t.Fatalf("ParseLocations: %v", err)
	}
	if len(locations) != 2 {
		t.Fatalf("Expected 2 locations, got %d", len(locations))
	}
	if locations[0].Position.Latitude >= 0 || locations[0].Position.Longitude <= 151 {
		t.Errorf("Unexpected position %s", locations[0].Position)
	}
	if locations[0].Valid() {
		t.Error("Expected parsed locations to have no ID")
	}

	_, err = ParseLocations([]LocationSpec{{Ident: "BAD", Latitude: "north", Longitude: "0"}})
	if !errors.Is(err, geo.ErrInvalidCoordinate) {
		t.Errorf("Expected ErrInvalidCoordinate, got %v", err)
	}
}
