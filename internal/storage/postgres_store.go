package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/roman-kulish/glide-recovery/internal/geo"
	"github.com/roman-kulish/glide-recovery/internal/recovery"
)

// DefaultConnMaxLifetime applies when PostgresConfig.ConnMaxLifetime is unset.
const DefaultConnMaxLifetime = time.Hour

// PostgresConfig holds the PostgreSQL connection settings.
type PostgresConfig struct {
	DSN             string         `yaml:"dsn"` // e.g. "host=localhost dbname=recovery sslmode=disable"
	MaxOpenConns    int            `yaml:"maxOpenConns"`
	MaxIdleConns    int            `yaml:"maxIdleConns"`
	ConnMaxLifetime *time.Duration `yaml:"connMaxLifetime"`
}

func (c PostgresConfig) connMaxLifetime() time.Duration {
	if c.ConnMaxLifetime != nil {
		return *c.ConnMaxLifetime
	}
	return DefaultConnMaxLifetime
}

// configurePool applies the pool limits. Zero limits keep the driver defaults.
func configurePool(db *sql.DB, cfg PostgresConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.connMaxLifetime())
}

// PostgresStore keeps recovery locations in a shared PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgresStore connects to PostgreSQL and verifies the connection.
func OpenPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	configurePool(db, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// InitSchema creates the recovery table if it does not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, initPostgresSchemaSQL); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// FindNearest implements recovery.Lookup.
func (s *PostgresStore) FindNearest(ctx context.Context, pos geo.Position, heading, maxDistance float64) (loc *recovery.Location, err error) {
	minLat, maxLat := recovery.LatitudeBand(pos, maxDistance)

	rows, err := s.db.QueryContext(ctx, selectRecoveryBandPostgresSQL, minLat, maxLat)
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

func (s *PostgresStore) InsertRecoveryLocations(ctx context.Context, locations []recovery.Location) (n int, err error) {
	for i := range locations {
		if err = locations[i].Validate(); err != nil {
			return 0, fmt.Errorf("location %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, insertRecoveryPostgresSQL)
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

func (s *PostgresStore) RecoveryLocations(ctx context.Context) (locations []recovery.Location, err error) {
	rows, err := s.db.QueryContext(ctx, selectRecoverySQL)
	if err != nil {
		return nil, fmt.Errorf("querying recovery locations: %w", err)
	}
	defer closeWithError(rows, &err)

	return scanLocations(rows)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
