package storage

import (
	"context"

	"github.com/roman-kulish/glide-recovery/internal/flight"
	"github.com/roman-kulish/glide-recovery/internal/recovery"
)

// Store provides an interface for managing recovery locations and recorded
// flights. Any Store can be handed to the director as its recovery lookup.
// All operations that write to the database should be considered atomic.
type Store interface {
	recovery.Lookup

	// InsertRecoveryLocations validates and stores recovery locations in a
	// single transaction. Location IDs are assigned by the database.
	//
	// Returns:
	//   - n: Number of locations stored
	//   - error: If validation or storage fails, nothing is stored
	InsertRecoveryLocations(ctx context.Context, locations []recovery.Location) (n int, err error)

	// RecoveryLocations returns all stored recovery locations ordered by ID.
	RecoveryLocations(ctx context.Context) ([]recovery.Location, error)

	// Close releases all database connections and resources.
	// After Close is called, the store instance cannot be reused.
	// It is safe to call Close multiple times.
	Close() error
}

// FlightStore additionally records flights flown by the director.
type FlightStore interface {
	Store

	// CreateSession starts a new recorded flight and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - source: Navigation source (e.g., "udp", "nmea", "glidesim")
	//   - config: Optional director configuration. Can be string, []byte, or JSON-serializable object
	//
	// Returns:
	//   - sessionID: Unique identifier for the created session
	//   - error: If session creation fails or context is cancelled
	CreateSession(ctx context.Context, source string, config any) (sessionID int64, err error)

	// Session retrieves a recorded flight by its ID.
	Session(ctx context.Context, id int64) (*flight.Session, error)

	// Sessions returns all recorded flights ordered by start time.
	Sessions(ctx context.Context) ([]*flight.Session, error)

	// StoreRecords saves a batch of director records for a session.
	// The whole batch is stored in a single atomic transaction.
	StoreRecords(ctx context.Context, sessionID int64, records []flight.Record) error
}
