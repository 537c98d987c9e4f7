package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roman-kulish/glide-recovery/internal/config"
	"github.com/roman-kulish/glide-recovery/internal/director"
	"github.com/roman-kulish/glide-recovery/internal/flight"
	"github.com/roman-kulish/glide-recovery/internal/geo"
	"github.com/roman-kulish/glide-recovery/internal/metrics"
	"github.com/roman-kulish/glide-recovery/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "director.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
settings:
  logLevel: debug
director:
  seekLeg: 90s
  circleMargin: 0.5
navigation:
  type: udp
  listen: ":6000"
recovery:
  type: static
  rateLimit: 2
  retry:
    maxRetries: 3
    initialDelay: 10ms
    maxDelay: 100ms
    multiplier: 2
  locations:
    - ident: KSEA
      latitude: 47-27-00.00N
      longitude: 122-18-31.70W
      elevation: 433
recorder:
  enabled: true
  path: flights.db
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Settings.LogLevel != slog.LevelDebug {
		t.Errorf("Expected debug log level, got %s", cfg.Settings.LogLevel)
	}
	if cfg.Director.SeekLeg.Std() != 90*time.Second || cfg.Director.CircleMargin != 0.5 {
		t.Errorf("Unexpected director config: %+v", cfg.Director)
	}
	// Unset tunables keep their defaults.
	if cfg.Director.BankLimit != director.DefaultConfig().BankLimit {
		t.Errorf("Expected default bank limit, got %f", cfg.Director.BankLimit)
	}
	if cfg.Tick.Period.Std() != 100*time.Millisecond {
		t.Errorf("Expected default tick period, got %s", cfg.Tick.Period)
	}
	if cfg.Recovery.Retry == nil || cfg.Recovery.Retry.InitialDelay != 10*time.Millisecond {
		t.Errorf("Unexpected retry config: %+v", cfg.Recovery.Retry)
	}
	if cfg.Recorder.MaxBatchSize != maxBatchSize {
		t.Errorf("Expected default batch size, got %d", cfg.Recorder.MaxBatchSize)
	}

	locations, err := cfg.Recovery.StaticLocations()
	if err != nil {
		t.Fatalf("StaticLocations: %v", err)
	}
	if len(locations) != 1 || locations[0].Ident != "KSEA" {
		t.Fatalf("Unexpected locations: %+v", locations)
	}
	if lat := locations[0].Position.Latitude; math.Abs(lat-47.45) > 1e-12 {
		t.Errorf("Expected latitude 47.45, got %f", lat)
	}
	if lon := locations[0].Position.Longitude; lon > -122.3 || lon < -122.31 {
		t.Errorf("Unexpected longitude %f", lon)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"unknown navigation", "navigation:\n  type: carrier-pigeon\n"},
		{"nmea without device", "navigation:\n  type: nmea\n"},
		{"static without locations", "recovery:\n  type: static\n"},
		{"postgres without dsn", "recovery:\n  type: postgres\n"},
		{"negative rate limit", "recovery:\n  rateLimit: -1\n"},
		{"zero tick", "tick:\n  period: 0s\n"},
		{"bad director", "director:\n  bankLimit: 95\n"},
		{"recorder without path", "recorder:\n  enabled: true\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			if err == nil {
				t.Fatal("Expected error")
			}
			var cfgErr *config.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("Expected ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestRecorder(t *testing.T) {
	store := storage.NewSqliteStore(filepath.Join(t.TempDir(), "flights.db"))
	defer store.Close()

	ctx := context.Background()
	sessionID, err := store.CreateSession(ctx, "test", nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	rec := NewRecorder(store, sessionID, discard, WithMaxBatchSize(7), WithFlushInterval(time.Hour))

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		mode := director.ModeSeek
		if i >= 12 {
			mode = director.ModeTrack
		}
		if !rec.Record(flight.Record{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Position:  geo.Position{Latitude: 47, Longitude: -122},
			Mode:      mode,
		}) {
			t.Fatalf("Record %d dropped", i)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- rec.Run(runCtx) }()

	cancel()
	if err = <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	r, err := store.ReadSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	defer r.Close()

	var n, legs int
	for r.Next(ctx) {
		legs++
		n += len(r.Current().Records)
	}
	if err = r.Error(); err != nil {
		t.Fatalf("Reader error: %v", err)
	}
	if n != 20 || legs != 2 {
		t.Errorf("Expected 20 records in 2 legs, got %d in %d", n, legs)
	}
}

func TestRecorder_Backlog(t *testing.T) {
	rec := NewRecorder(nil, 1, discard)
	for i := 0; i < recordsBacklog; i++ {
		if !rec.Record(flight.Record{}) {
			t.Fatalf("Record %d dropped before the backlog filled", i)
		}
	}
	if rec.Record(flight.Record{}) {
		t.Error("Expected record to be dropped when the backlog is full")
	}
}

type fakeAuthority struct {
	enabled atomic.Bool
}

func (f *fakeAuthority) Enable()  { f.enabled.Store(true) }
func (f *fakeAuthority) Disable() { f.enabled.Store(false) }

func TestStatusServer(t *testing.T) {
	var status atomic.Pointer[director.Status]
	control := &fakeAuthority{}
	srv := &statusServer{status: &status, control: control, metrics: metrics.New(), logger: discard}
	router := srv.router()

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	if rec := do("GET", "/status"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before the first status, got %d", rec.Code)
	}

	status.Store(&director.Status{Mode: director.ModeCircle, ProjectedDist: 3.5})
	rec := do("GET", "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var got struct {
		Mode          string  `json:"mode"`
		ProjectedDist float64 `json:"projectedDistance"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Mode != "circle" || got.ProjectedDist != 3.5 {
		t.Errorf("Unexpected status: %+v", got)
	}

	if rec = do("POST", "/enable"); rec.Code != http.StatusNoContent || !control.enabled.Load() {
		t.Errorf("Expected enable to arm, got %d", rec.Code)
	}
	if rec = do("POST", "/disable"); rec.Code != http.StatusNoContent || control.enabled.Load() {
		t.Errorf("Expected disable to disarm, got %d", rec.Code)
	}
	if rec = do("GET", "/enable"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /enable, got %d", rec.Code)
	}
	if rec = do("GET", "/metrics"); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from /metrics, got %d", rec.Code)
	}
}
