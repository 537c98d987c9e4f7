package tick

import (
	"context"
	"errors"
	"math"
	"time"
)

// Func is called once per tick with the elapsed time since the previous tick
// in milliseconds.
type Func func(ctx context.Context, elapsedMs uint32)

// Source drives a periodic refresh.
type Source interface {
	// Run calls fn once per tick until ctx is cancelled or the source is
	// exhausted.
	Run(ctx context.Context, fn Func) error
}

// ErrInvalidPeriod is returned for non-positive tick periods.
var ErrInvalidPeriod = errors.New("tick period must be positive")

// Milliseconds converts a duration to whole milliseconds, rounding to the
// nearest value. Negative durations yield zero.
func Milliseconds(d time.Duration) uint32 {
	ms := math.Max(d.Seconds(), 0)*1000 + 0.5
	if ms >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ms)
}

// Interval ticks on the wall clock. Elapsed time is measured with the
// monotonic clock, so a late tick reports the real gap.
type Interval struct {
	period time.Duration
	now    func() time.Time
}

// NewInterval creates a wall-clock tick source.
func NewInterval(period time.Duration) (*Interval, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return &Interval{period: period, now: time.Now}, nil
}

func (t *Interval) Run(ctx context.Context, fn Func) error {
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	last := t.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := t.now()
			fn(ctx, Milliseconds(now.Sub(last)))
			last = now
		}
	}
}

// Fixed steps a constant elapsed value a fixed number of times without
// sleeping. It drives simulations faster than real time.
type Fixed struct {
	step  time.Duration
	count int
}

// NewFixed creates a tick source that runs count steps of step each. A
// negative count runs until the context is cancelled.
func NewFixed(step time.Duration, count int) (*Fixed, error) {
	if step <= 0 {
		return nil, ErrInvalidPeriod
	}
	return &Fixed{step: step, count: count}, nil
}

func (t *Fixed) Run(ctx context.Context, fn Func) error {
	elapsed := Milliseconds(t.step)
	for i := 0; t.count < 0 || i < t.count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(ctx, elapsed)
	}
	return nil
}
