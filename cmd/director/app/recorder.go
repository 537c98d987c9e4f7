package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roman-kulish/glide-recovery/internal/flight"
	"github.com/roman-kulish/glide-recovery/internal/storage"
)

const (
	maxBatchSize   = 100
	recordsBacklog = 1024
)

// WithMaxBatchSize sets the maximum number of records to store within a
// single database transaction.
func WithMaxBatchSize(size int) func(*Recorder) {
	return func(r *Recorder) {
		if size > 0 {
			r.maxBatchSize = size
		}
	}
}

// WithFlushInterval sets how often buffered records are written.
func WithFlushInterval(d time.Duration) func(*Recorder) {
	return func(r *Recorder) {
		if d > 0 {
			r.flushEvery = d
		}
	}
}

// Recorder stores director records off the refresh path. Records are queued
// on a buffered channel and written in batches; when the queue is full new
// records are dropped rather than delaying the refresh cycle.
type Recorder struct {
	store     storage.FlightStore
	sessionID int64
	logger    *slog.Logger

	records      chan flight.Record
	maxBatchSize int
	flushEvery   time.Duration
}

// NewRecorder creates a new Recorder writing to sessionID
func NewRecorder(store storage.FlightStore, sessionID int64, logger *slog.Logger, options ...func(*Recorder)) *Recorder {
	r := Recorder{
		store:        store,
		sessionID:    sessionID,
		logger:       logger,
		records:      make(chan flight.Record, recordsBacklog),
		maxBatchSize: maxBatchSize,
		flushEvery:   time.Second,
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Record queues a record without blocking. It reports false when the record
// was dropped.
func (r *Recorder) Record(rec flight.Record) bool {
	select {
	case r.records <- rec:
		return true
	default:
		return false
	}
}

// Run writes queued records until ctx is cancelled, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.flushEvery)
	defer ticker.Stop()

	// Writes must outlive the cancelled run context.
	writeCtx := context.WithoutCancel(ctx)

	batch := make([]flight.Record, 0, r.maxBatchSize)

	for {
		select {
		case <-ctx.Done():
		drain:
			for {
				select {
				case rec := <-r.records:
					batch = append(batch, rec)
				default:
					break drain
				}
			}
			return r.flush(writeCtx, batch)

		case rec := <-r.records:
			batch = append(batch, rec)
			if len(batch) < r.maxBatchSize {
				continue
			}

		case <-ticker.C:
		}

		if err := r.flush(writeCtx, batch); err != nil {
			r.logger.Error(err.Error())
		}
		batch = batch[:0]
	}
}

func (r *Recorder) flush(ctx context.Context, batch []flight.Record) error {
	for chunk := range slices.Chunk(batch, r.maxBatchSize) {
		if err := r.store.StoreRecords(ctx, r.sessionID, chunk); err != nil {
			return fmt.Errorf("storing records: %w", err)
		}
	}
	return nil
}
