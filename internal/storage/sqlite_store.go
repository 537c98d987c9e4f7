package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/roman-kulish/glide-recovery/internal/flight"
	"github.com/roman-kulish/glide-recovery/internal/geo"
	"github.com/roman-kulish/glide-recovery/internal/recovery"
)

// recordsPerStatement bounds a multi-row insert well below the SQLite
// host parameter limit.
const recordsPerStatement = 500

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error

	now func() time.Time
}

var _ FlightStore = (*SqliteStore)(nil)

// NewSqliteStore creates a new store backed by the SQLite database at dbPath.
// Connections are opened lazily. The schema is created with the first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath, now: time.Now}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// FindNearest implements recovery.Lookup. Candidates are prefiltered by
// latitude band in SQL and then checked against the search cone.
func (s *SqliteStore) FindNearest(ctx context.Context, pos geo.Position, heading, maxDistance float64) (loc *recovery.Location, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	minLat, maxLat := recovery.LatitudeBand(pos, maxDistance)

	rows, err := db.QueryContext(ctx, selectRecoveryBandSQL, minLat, maxLat)
	if err != nil {
		return nil, fmt.Errorf("querying recovery locations: %w", err)
	}
	defer closeWithError(rows, &err)

	candidates, err := scanLocations(rows)
	if err != nil {
		return nil, err
	}

	return recovery.Nearest(pos, heading, maxDistance, candidates), nil
}

func (s *SqliteStore) InsertRecoveryLocations(ctx context.Context, locations []recovery.Location) (n int, err error) {
	for i := range locations {
		if err = locations[i].Validate(); err != nil {
			return 0, fmt.Errorf("location %d: %w", i, err)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		return 0, fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, insertRecoverySQL)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for _, loc := range locations {
		if _, err = stmt.ExecContext(ctx, loc.Ident, loc.Position.Latitude, loc.Position.Longitude, loc.Elevation); err != nil {
			return 0, fmt.Errorf("inserting recovery location %q: %w", loc.Ident, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return len(locations), nil
}

func (s *SqliteStore) RecoveryLocations(ctx context.Context) (locations []recovery.Location, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectRecoverySQL)
	if err != nil {
		return nil, fmt.Errorf("querying recovery locations: %w", err)
	}
	defer closeWithError(rows, &err)

	return scanLocations(rows)
}

func scanLocations(rows *sql.Rows) ([]recovery.Location, error) {
	var locations []recovery.Location

	for rows.Next() {
		var loc recovery.Location
		if err := rows.Scan(&loc.ID, &loc.Ident, &loc.Position.Latitude, &loc.Position.Longitude, &loc.Elevation); err != nil {
			return nil, fmt.Errorf("scanning recovery location: %w", err)
		}
		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recovery locations: %w", err)
	}
	return locations, nil
}

func (s *SqliteStore) CreateSession(ctx context.Context, source string, config any) (sessionID int64, err error) {
	configData, err := toConfigData(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, s.now().UTC(), source, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *flight.Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}
	return querySession(ctx, db, id)
}

func querySession(ctx context.Context, db *sql.DB, id int64) (session *flight.Session, err error) {
	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var sess flight.Session
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, id).Scan(&sess.ID, &sess.StartTime, &sess.Source, &config); err != nil {
		err = fmt.Errorf("scanning session: %w", err)
		return
	}
	if config.Valid {
		sess.Config = &config.String
	}

	return &sess, nil
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*flight.Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess flight.Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.Source, &config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, &sess)
	}
	err = rows.Err()
	return
}

// ReadSession creates a new LegReader that yields the records of a recorded
// flight grouped into legs of consecutive records flown in the same mode.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - sessionID: Unique identifier of the session to read from
//   - opts: Optional time filters (WithStartTime, WithEndTime, WithTimeRange)
//
// The returned reader must be closed after use to release database resources.
// Each reader instance should only be used from a single goroutine.
func (s *SqliteStore) ReadSession(ctx context.Context, sessionID int64, opts ...ReaderOption) (*SqliteLegReader, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteLegReader(ctx, db, sessionID, opts...)
}

func (s *SqliteStore) StoreRecords(ctx context.Context, sessionID int64, records []flight.Record) (err error) {
	if len(records) == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	for chunk := range slices.Chunk(records, recordsPerStatement) {
		values := make([]any, 0, len(chunk)*insertRecordColumns)

		var sb strings.Builder
		sb.WriteString(insertRecordSQL)

		for i := range chunk {
			data := toRecordData(sessionID, &chunk[i])
			values = append(values,
				data.SessionID,
				data.Timestamp,
				data.Latitude,
				data.Longitude,
				data.Altitude,
				data.GroundTrack,
				data.GroundSpeed,
				data.VerticalSpeed,
				data.Mode,
				data.ProjectedDistance,
				data.TargetHeading,
				data.RecoveryID,
				data.RecoveryDistance,
				data.RateOfTurn,
				data.TargetRateOfTurn,
				data.Rudder,
			)

			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(insertRecordPlaceholder)
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting records: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
