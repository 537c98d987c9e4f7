package recovery

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/roman-kulish/glide-recovery/internal/geo"
)

// RetryConfig configures retry behavior with exponential backoff.
type RetryConfig struct {
	MaxRetries   int           `yaml:"maxRetries"`   // Maximum number of retry attempts
	InitialDelay time.Duration `yaml:"initialDelay"` // Delay before the first retry
	MaxDelay     time.Duration `yaml:"maxDelay"`     // Upper bound for a single delay
	Multiplier   float64       `yaml:"multiplier"`   // Backoff multiplier
}

// DefaultRetryConfig keeps the total retry time well under one refresh tick.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
		Multiplier:   2.0,
	}
}

// RetryLookup retries failed queries of the wrapped lookup.
type RetryLookup struct {
	next Lookup
	cfg  RetryConfig
}

// WithRetry wraps next with exponential backoff retries.
func WithRetry(next Lookup, cfg RetryConfig) *RetryLookup {
	return &RetryLookup{next: next, cfg: cfg}
}

// FindNearest implements Lookup.
func (r *RetryLookup) FindNearest(ctx context.Context, pos geo.Position, heading, maxDistance float64) (*Location, error) {
	var lastErr error
	delay := r.cfg.InitialDelay

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		loc, err := r.next.FindNearest(ctx, pos, heading, maxDistance)
		if err == nil {
			return loc, nil
		}
		lastErr = err

		if attempt == r.cfg.MaxRetries {
			break
		}

		// delay = min(InitialDelay * Multiplier^attempt, MaxDelay)
		next := time.Duration(float64(r.cfg.InitialDelay) * math.Pow(r.cfg.Multiplier, float64(attempt+1)))
		delay = min(next, r.cfg.MaxDelay)
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", r.cfg.MaxRetries, lastErr)
}
