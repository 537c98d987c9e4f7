package flight

import (
	"testing"
	"time"

	"github.com/roman-kulish/glide-recovery/internal/director"
	"github.com/roman-kulish/glide-recovery/internal/geo"
	"github.com/roman-kulish/glide-recovery/internal/recovery"
)

func TestNewRecord(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("without recovery location", func(t *testing.T) {
		r := NewRecord(director.Status{Timestamp: ts, Mode: director.ModeSeek, RecoveryDistance: 12})
		if r.RecoveryID != nil {
			t.Errorf("Expected no recovery id, got %d", *r.RecoveryID)
		}
		if r.RecoveryDistance != 0 {
			t.Errorf("Expected zero recovery distance, got %f", r.RecoveryDistance)
		}
		if !r.Timestamp.Equal(ts) || r.Mode != director.ModeSeek {
			t.Errorf("Unexpected record: %+v", r)
		}
	})

	t.Run("with recovery location", func(t *testing.T) {
		loc := &recovery.Location{ID: 42, Ident: "KSEA", Position: geo.Position{Latitude: 47.45, Longitude: -122.31}}
		r := NewRecord(director.Status{
			Timestamp:        ts,
			Mode:             director.ModeTrack,
			Recovery:         loc,
			RecoveryDistance: 7.5,
			Rudder:           -0.25,
		})
		if r.RecoveryID == nil || *r.RecoveryID != 42 {
			t.Fatalf("Expected recovery id 42, got %v", r.RecoveryID)
		}
		if r.RecoveryDistance != 7.5 || r.Rudder != -0.25 {
			t.Errorf("Unexpected record: %+v", r)
		}

		loc.ID = 1
		if *r.RecoveryID != 42 {
			t.Error("Expected record to own its recovery id")
		}
	})
}

func TestLeg_Duration(t *testing.T) {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	l := Leg{Start: start, End: start.Add(90 * time.Second)}
	if l.Duration() != 90*time.Second {
		t.Errorf("Expected 90s, got %s", l.Duration())
	}
}
