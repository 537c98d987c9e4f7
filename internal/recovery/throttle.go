package recovery

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/roman-kulish/glide-recovery/internal/geo"
)

// ThrottledLookup limits the rate of queries reaching a slow lookup. When the
// limiter denies a query the last answer is returned if it is still eligible
// for the new query.
type ThrottledLookup struct {
	next    Lookup
	limiter *rate.Limiter

	mu   sync.Mutex
	last *Location
}

// Throttled wraps next with a token bucket limiter.
func Throttled(next Lookup, limiter *rate.Limiter) *ThrottledLookup {
	return &ThrottledLookup{next: next, limiter: limiter}
}

// FindNearest implements Lookup.
func (t *ThrottledLookup) FindNearest(ctx context.Context, pos geo.Position, heading, maxDistance float64) (*Location, error) {
	if !t.limiter.Allow() {
		t.mu.Lock()
		defer t.mu.Unlock()

		if t.last == nil {
			return nil, nil
		}
		if _, ok := Eligible(pos, heading, maxDistance, t.last); !ok {
			return nil, nil
		}

		found := *t.last
		return &found, nil
	}

	loc, err := t.next.FindNearest(ctx, pos, heading, maxDistance)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.last = loc
	t.mu.Unlock()

	return loc, nil
}
