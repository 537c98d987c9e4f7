package app

import (
	"context"
	"flag"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/glide-recovery/internal/director"
	"github.com/roman-kulish/glide-recovery/internal/flight"
	"github.com/roman-kulish/glide-recovery/internal/geo"
	"github.com/roman-kulish/glide-recovery/internal/recovery"
	"github.com/roman-kulish/glide-recovery/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var base = time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

// testLegs flies east at 0.01 degree per record, one leg per mode.
func testLegs(modes ...director.Mode) []flight.Leg {
	var legs []flight.Leg
	i := 0
	for _, m := range modes {
		leg := flight.Leg{Mode: m}
		for j := 0; j < 10; j++ {
			leg.Records = append(leg.Records, flight.Record{
				Timestamp: base.Add(time.Duration(i) * time.Second),
				Position:  geo.Position{Latitude: 47, Longitude: -122 + float64(i)*0.01},
				Altitude:  9000 - float64(i)*10,
				Mode:      m,
			})
			i++
		}
		leg.Start = leg.Records[0].Timestamp
		leg.End = leg.Records[len(leg.Records)-1].Timestamp
		legs = append(legs, leg)
	}
	return legs
}

func TestTrackData(t *testing.T) {
	track := NewTrackData(nil)
	if !track.Empty() {
		t.Fatal("Expected empty track")
	}

	for _, leg := range testLegs(director.ModeSeek, director.ModeTrack, director.ModeCircle) {
		track.Update(&leg)
	}

	if track.Records != 30 || len(track.Legs) != 3 {
		t.Fatalf("Expected 30 records in 3 legs, got %d in %d", track.Records, len(track.Legs))
	}
	if !track.TimestampStart.Equal(base) || !track.TimestampEnd.Equal(base.Add(29*time.Second)) {
		t.Errorf("Unexpected time range %s - %s", track.TimestampStart, track.TimestampEnd)
	}
	if track.MinLongitude != -122 || math.Abs(track.MaxLongitude-(-121.71)) > 1e-9 {
		t.Errorf("Unexpected longitude bounds %f - %f", track.MinLongitude, track.MaxLongitude)
	}
	if track.AltitudeLost() != 290 {
		t.Errorf("Expected 290 ft lost, got %f", track.AltitudeLost())
	}

	want, _ := geo.DistanceAndBearing(geo.Position{Latitude: 47, Longitude: -122}, geo.Position{Latitude: 47, Longitude: -121.71})
	if math.Abs(track.Distance-want) > 0.01 {
		t.Errorf("Expected about %f nm flown, got %f", want, track.Distance)
	}

	times := track.ModeTime()
	if times[director.ModeTrack] != 9*time.Second {
		t.Errorf("Expected 9s in track mode, got %s", times[director.ModeTrack])
	}
}

func TestTrackData_AddSites(t *testing.T) {
	track := NewTrackData(nil)
	for _, leg := range testLegs(director.ModeSeek) {
		track.Update(&leg)
	}

	locations := []recovery.Location{
		{ID: 1, Ident: "NEAR", Position: geo.Position{Latitude: 47.05, Longitude: -121.95}},
		{ID: 2, Ident: "EDGE", Position: geo.Position{Latitude: 47.07, Longitude: -122}},
		{ID: 3, Ident: "FAR", Position: geo.Position{Latitude: 48, Longitude: -121.95}},
	}

	if n := track.AddSites(locations, 5); n != 2 {
		t.Fatalf("Expected 2 sites within 5 nm, got %d", n)
	}
	if track.MaxLatitude != 47.07 {
		t.Errorf("Expected bounds extended to the site, got %f", track.MaxLatitude)
	}
}

func TestProjection(t *testing.T) {
	track := NewTrackData(nil)
	for _, leg := range testLegs(director.ModeSeek, director.ModeTrack) {
		track.Update(&leg)
	}

	proj := NewProjection(track, 1000)
	if proj.Width != 1000 {
		t.Errorf("Expected the east-west track to fill the width, got %d", proj.Width)
	}
	// A straight east-west track gets the minimum north-south span.
	if proj.Height < 1 || proj.Height >= proj.Width {
		t.Errorf("Unexpected height %d", proj.Height)
	}

	x, _ := proj.Point(geo.Position{Latitude: 47, Longitude: -122})
	if math.Abs(x) > 1e-9 {
		t.Errorf("Expected the first record on the left edge, got %f", x)
	}
	x, _ = proj.Point(geo.Position{Latitude: 47, Longitude: track.MaxLongitude})
	if math.Abs(x-1000) > 1e-6 {
		t.Errorf("Expected the last record on the right edge, got %f", x)
	}

	_, yNorth := proj.Point(geo.Position{Latitude: 47.004, Longitude: -122})
	_, ySouth := proj.Point(geo.Position{Latitude: 46.996, Longitude: -122})
	if yNorth >= ySouth {
		t.Errorf("Expected north above south, got %f and %f", yNorth, ySouth)
	}

	if nm := proj.NMPerPixel() * float64(proj.Width); math.Abs(nm-track.Distance) > 0.1 {
		t.Errorf("Expected the plot width to cover %f nm, got %f", track.Distance, nm)
	}
}

func TestModeColor(t *testing.T) {
	seek, trk, circle := ModeColor(director.ModeSeek, 1), ModeColor(director.ModeTrack, 1), ModeColor(director.ModeCircle, 1)
	if seek == trk || trk == circle || seek == circle {
		t.Error("Expected distinct colors per mode")
	}
	if ModeColor(director.Mode(9), 1) != unknownMode {
		t.Error("Expected fallback color for unknown mode")
	}
	if ModeColor(director.ModeTrack, 0) == ModeColor(director.ModeTrack, 1) {
		t.Error("Expected altitude shading")
	}
}

func TestCalculateNiceDistanceStep(t *testing.T) {
	testCases := []struct {
		target, want float64
	}{
		{0.05, 0.1},
		{0.3, 0.5},
		{1, 1},
		{7.3, 10},
		{5000, 500},
	}

	for _, tc := range testCases {
		if got := calculateNiceDistanceStep(tc.target); got != tc.want {
			t.Errorf("calculateNiceDistanceStep(%f): expected %f, got %f", tc.target, tc.want, got)
		}
	}
}

func TestRender(t *testing.T) {
	track := NewTrackData(&flight.Session{ID: 1, StartTime: base, Source: "glidesim"})
	for _, leg := range testLegs(director.ModeSeek, director.ModeTrack, director.ModeCircle) {
		track.Update(&leg)
	}
	track.AddSites([]recovery.Location{{ID: 1, Ident: "SITE", Position: geo.Position{Latitude: 47.02, Longitude: -121.8}}}, 5)

	renderer, err := NewTrackRenderer(RenderConfig{Size: 400, Location: time.UTC})
	if err != nil {
		t.Fatalf("NewTrackRenderer: %v", err)
	}

	img, err := renderer.Render(track)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	proj := NewProjection(track, 400)
	want := image.Rect(0, 0,
		proj.Width+defaultLeftBorder+defaultRightBorder,
		proj.Height+defaultTopBorder+defaultBottomBorder)
	if img.Bounds() != want {
		t.Errorf("Expected bounds %v, got %v", want, img.Bounds())
	}

	// The middle of the track leg must be painted in the track color family.
	x, y := proj.Point(geo.Position{Latitude: 47, Longitude: -122 + 15*0.01})
	c := img.RGBAAt(defaultLeftBorder+int(math.Round(x)), defaultTopBorder+int(math.Round(y)))
	if c.R == 0xff && c.G == 0xff && c.B == 0xff {
		t.Error("Expected the track to be drawn")
	}
	if c.B <= c.R {
		t.Errorf("Expected a blue track segment, got %+v", c)
	}
}

func TestRender_Empty(t *testing.T) {
	renderer, err := NewTrackRenderer(RenderConfig{})
	if err != nil {
		t.Fatalf("NewTrackRenderer: %v", err)
	}
	if _, err = renderer.Render(NewTrackData(nil)); err == nil {
		t.Error("Expected error for empty track")
	}
}

func TestParseConfig(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"minimal", []string{"-db", "flights.db", "-o", "out"}, false},
		{"time range", []string{"-db", "flights.db", "-o", "out", "-tz", "UTC", "-start", "2026-05-02 10:00:00", "-end", "2026-05-02 11:00:00"}, false},
		{"inverted time range", []string{"-db", "flights.db", "-o", "out", "-start", "2026-05-02 11:00:00", "-end", "2026-05-02 10:00:00"}, true},
		{"bad time", []string{"-db", "flights.db", "-o", "out", "-start", "noon"}, true},
		{"bad time zone", []string{"-db", "flights.db", "-o", "out", "-tz", "Mars/Olympus"}, true},
		{"no db", []string{"-o", "out"}, true},
		{"no output", []string{"-db", "flights.db"}, true},
		{"bad format", []string{"-db", "flights.db", "-o", "out", "-f", "gif"}, true},
		{"tiny", []string{"-db", "flights.db", "-o", "out", "-size", "10"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := flag.NewFlagSet("trackplot", flag.ContinueOnError)
			fs.SetOutput(io.Discard)

			c, err := ParseConfig(fs, tc.args)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Expected error %v, got %v", tc.wantErr, err)
			}
			if err == nil && c.OutputFile != "out.png" {
				t.Errorf("Expected out.png, got %s", c.OutputFile)
			}
		})
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "flights.db")

	store := storage.NewSqliteStore(dbPath)
	if _, err := store.InsertRecoveryLocations(ctx, []recovery.Location{
		{Ident: "SITE", Position: geo.Position{Latitude: 47.02, Longitude: -121.8}},
	}); err != nil {
		t.Fatalf("InsertRecoveryLocations: %v", err)
	}
	sessionID, err := store.CreateSession(ctx, "glidesim", nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	var records []flight.Record
	for _, leg := range testLegs(director.ModeSeek, director.ModeTrack) {
		records = append(records, leg.Records...)
	}
	if err = store.StoreRecords(ctx, sessionID, records); err != nil {
		t.Fatalf("StoreRecords: %v", err)
	}
	if err = store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	config := NewConfig()
	config.DBPath = dbPath
	config.SessionID = sessionID
	config.Size = 300
	config.TimeZone = time.UTC
	config.OutputFile = filepath.Join(dir, "track.png")

	if err = Run(ctx, config, discard); err != nil {
		t.Fatalf("Run: %v", err)
	}

	f, err := os.Open(config.OutputFile)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 300+defaultLeftBorder+defaultRightBorder {
		t.Errorf("Unexpected image width %d", img.Bounds().Dx())
	}

	// Outside the recorded range.
	start := base.Add(time.Hour)
	config.StartTime = &start
	if err = Run(ctx, config, discard); err == nil {
		t.Error("Expected error for an empty time range")
	}
}

func TestRun_MissingDatabase(t *testing.T) {
	config := NewConfig()
	config.DBPath = filepath.Join(t.TempDir(), "missing.db")
	config.OutputFile = filepath.Join(t.TempDir(), "track.png")

	if err := Run(context.Background(), config, discard); err == nil {
		t.Error("Expected error for missing database")
	}
}
