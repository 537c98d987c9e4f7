package averaging

import (
	"errors"
	"fmt"
)

// ErrInvalidCapacity is returned when a buffer is created with a capacity below one.
var ErrInvalidCapacity = errors.New("invalid buffer capacity")

// Buffer is a fixed-capacity circular buffer producing the running mean of the
// last N pushed samples. It is owned by a single writer and is not safe for
// concurrent use.
type Buffer struct {
	values  []float64
	next    int // Slot overwritten by the next push
	samples int // Number of filled slots, capped at capacity
	total   float64
}

// NewBuffer creates a new averaging buffer holding up to capacity samples.
// Returns ErrInvalidCapacity if capacity is less than one.
func NewBuffer(capacity int) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Buffer{values: make([]float64, capacity)}, nil
}

// Push overwrites the oldest slot with v and returns the new running average.
func (b *Buffer) Push(v float64) float64 {
	b.total -= b.values[b.next]
	b.total += v
	b.values[b.next] = v
	b.next = (b.next + 1) % len(b.values)
	b.samples = min(len(b.values), b.samples+1)
	return b.total / float64(b.samples)
}

// Average returns the mean of the retained samples, or 0 when nothing has been pushed.
func (b *Buffer) Average() float64 {
	if b.samples == 0 {
		return 0
	}
	return b.total / float64(b.samples)
}

// Len returns the number of retained samples.
func (b *Buffer) Len() int {
	return b.samples
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.values)
}

// Reset zeroes all state.
func (b *Buffer) Reset() {
	clear(b.values)
	b.next = 0
	b.samples = 0
	b.total = 0
}

// Clone returns an independent copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	c := *b
	c.values = append([]float64(nil), b.values...)
	return &c
}
