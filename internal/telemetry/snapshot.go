package telemetry

import (
	"sync"
	"time"
)

// Snapshot holds the latest merged navigation sample for a background
// acquisition loop and serves it to the director without blocking. Fields once
// seen stay available until they are overwritten.
type Snapshot struct {
	mu      sync.RWMutex
	latest  *Sample
	updated time.Time

	maxAge time.Duration
	now    func() time.Time
}

// NewSnapshot creates an empty snapshot. Samples older than maxAge are not
// served; zero disables the staleness check.
func NewSnapshot(maxAge time.Duration) *Snapshot {
	return &Snapshot{maxAge: maxAge, now: time.Now}
}

// SetClock replaces the clock used for timestamps and staleness checks.
func (s *Snapshot) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.now = now
}

// Update merges a partial sample into the snapshot.
func (s *Snapshot) Update(partial *Sample) {
	if partial == nil || partial.Empty() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	merged := partial.Merge(s.latest)
	if partial.Timestamp.IsZero() {
		merged.Timestamp = now
	}

	s.latest = merged
	s.updated = now
}

// Sample returns a copy of the latest sample.
func (s *Snapshot) Sample() (*Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nil, false
	}
	if s.maxAge > 0 && s.now().Sub(s.updated) > s.maxAge {
		return nil, false
	}

	return s.latest.Clone(), true
}
