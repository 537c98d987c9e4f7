package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/roman-kulish/glide-recovery/internal/flight"
)

// ErrNoData indicates either that no records exist for the given parameters,
// or that all available legs have been read from the reader.
var ErrNoData = fmt.Errorf("no data available")

// LegReader provides an iterator-based interface for reading a recorded
// flight one leg at a time, with optional time filtering.
type LegReader interface {
	// Session returns metadata about the recorded flight this reader is accessing.
	Session() *flight.Session

	// Next advances the iterator and returns true if there is another leg
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current leg in the iteration.
	// If called after Next() returns false, the behavior is undefined.
	Current() *flight.Leg

	// Error returns any error that occurred during iteration.
	// If Next() returns false, Error() should be checked to distinguish between
	// end of data and an error condition.
	Error() error

	// Close releases any resources associated with the reader.
	// After Close is called, the reader should not be used.
	Close() error
}

// ReaderOption configures a LegReader with specific filtering criteria.
type ReaderOption func(*SqliteLegReader)

// WithStartTime excludes records with timestamps before t.
func WithStartTime(t time.Time) ReaderOption {
	return func(r *SqliteLegReader) {
		t = t.UTC()
		r.startTime = &t
	}
}

// WithEndTime excludes records with timestamps after t.
func WithEndTime(t time.Time) ReaderOption {
	return func(r *SqliteLegReader) {
		t = t.UTC()
		r.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *SqliteLegReader) {
		WithStartTime(startTime)(r)
		WithEndTime(endTime)(r)
	}
}

func newSqliteLegReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SqliteLegReader, error) {
	lr := &SqliteLegReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(lr)
	}
	if err := lr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return lr, nil
}

// SqliteLegReader implements LegReader for SQLite database backend.
type SqliteLegReader struct {
	db *sql.DB

	sessionID int64
	session   *flight.Session

	startTime *time.Time // Optional start of time range filter
	endTime   *time.Time // Optional end of time range filter

	currentLeg       *flight.Leg
	nextRecord       flight.Record // First record of the next leg
	nextRecordExists bool
	rows             *sql.Rows
	err              error
}

func (lr *SqliteLegReader) init(ctx context.Context) error {
	if lr.db == nil {
		return errors.New("database connection required")
	}
	if lr.sessionID <= 0 {
		return errors.New("session ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: lr.loadSession},
		{msg: "initializing filters", fn: lr.initFilters},
		{msg: "initializing query", fn: lr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (lr *SqliteLegReader) loadSession(ctx context.Context) (err error) {
	lr.session, err = querySession(ctx, lr.db, lr.sessionID)
	return
}

func (lr *SqliteLegReader) initFilters(ctx context.Context) (err error) {
	if lr.startTime != nil && lr.endTime != nil {
		if lr.startTime.After(*lr.endTime) {
			return fmt.Errorf("start time %s is after end time %s", lr.startTime, lr.endTime)
		}
		return nil
	}

	stmt, err := lr.db.PrepareContext(ctx, selectTimeRangeSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var startTime, endTime sqliteTime
	if err = stmt.QueryRowContext(ctx, lr.sessionID).Scan(&startTime, &endTime); err != nil {
		return fmt.Errorf("scanning time range: %w", err)
	}
	if !startTime.Valid || !endTime.Valid {
		return ErrNoData
	}

	if lr.startTime == nil {
		lr.startTime = &startTime.Time
	}
	if lr.endTime == nil {
		lr.endTime = &endTime.Time
	}
	return nil
}

func (lr *SqliteLegReader) initQuery(ctx context.Context) (err error) {
	stmt, err := lr.db.PrepareContext(ctx, selectRecordsSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if lr.rows, err = stmt.QueryContext(ctx, lr.sessionID, *lr.startTime, *lr.endTime); err != nil {
		return err
	}
	return nil
}

func (lr *SqliteLegReader) scanRecord() (flight.Record, error) {
	var data recordData

	err := lr.rows.Scan(
		&data.Timestamp,
		&data.Latitude,
		&data.Longitude,
		&data.Altitude,
		&data.GroundTrack,
		&data.GroundSpeed,
		&data.VerticalSpeed,
		&data.Mode,
		&data.ProjectedDistance,
		&data.TargetHeading,
		&data.RecoveryID,
		&data.RecoveryDistance,
		&data.RateOfTurn,
		&data.TargetRateOfTurn,
		&data.Rudder,
	)
	if err != nil {
		return flight.Record{}, fmt.Errorf("scanning record: %w", err)
	}

	return fromRecordData(&data)
}

func newLeg(r flight.Record) *flight.Leg {
	return &flight.Leg{
		Mode:    r.Mode,
		Start:   r.Timestamp,
		End:     r.Timestamp,
		Records: []flight.Record{r},
	}
}

func (lr *SqliteLegReader) Session() *flight.Session {
	return lr.session
}

func (lr *SqliteLegReader) Next(ctx context.Context) bool {
	if lr.err != nil || lr.rows == nil {
		return false
	}

	lr.currentLeg = nil
	if lr.nextRecordExists {
		lr.currentLeg = newLeg(lr.nextRecord)
		lr.nextRecordExists = false
	}

	for {
		select {
		case <-ctx.Done():
			lr.err = ctx.Err()
			return false
		default:
		}

		if !lr.rows.Next() {
			if lr.currentLeg != nil {
				lr.err = ErrNoData
				return true
			}
			return false
		}

		record, err := lr.scanRecord()
		if err != nil {
			lr.err = err
			return false
		}

		if lr.currentLeg == nil {
			lr.currentLeg = newLeg(record)
			continue
		}

		// Mode change completes the current leg
		if record.Mode != lr.currentLeg.Mode {
			lr.nextRecord = record
			lr.nextRecordExists = true
			return true
		}

		lr.currentLeg.Records = append(lr.currentLeg.Records, record)
		lr.currentLeg.End = record.Timestamp
	}
}

func (lr *SqliteLegReader) Current() *flight.Leg {
	return lr.currentLeg
}

func (lr *SqliteLegReader) Error() error {
	if lr.err != nil && !errors.Is(lr.err, ErrNoData) {
		return lr.err
	}
	if lr.rows != nil {
		return lr.rows.Err()
	}
	return nil
}

func (lr *SqliteLegReader) Close() error {
	if lr.rows != nil {
		err := lr.rows.Close()
		lr.currentLeg = nil
		lr.nextRecordExists = false
		lr.rows = nil
		return err
	}
	return nil
}
