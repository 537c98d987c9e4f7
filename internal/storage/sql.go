package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

//go:embed indexes.sql
var initIndexesSQL string

//go:embed schema_postgres.sql
var initPostgresSchemaSQL string

const (
	insertRecoverySQL = `
INSERT INTO recovery (ident,
                      latitude,
                      longitude,
                      elevation)
VALUES (?, ?, ?, ?)`

	selectRecoveryBandSQL = `
SELECT id,
       ident,
       latitude,
       longitude,
       elevation
FROM recovery
WHERE latitude BETWEEN ? AND ?`

	selectRecoverySQL = `
SELECT id,
       ident,
       latitude,
       longitude,
       elevation
FROM recovery
ORDER BY id`

	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      source,
                      config)
VALUES (?, ?, ?)`

	selectSessionSQL = `
SELECT id,
       start_time,
       source,
       config
FROM sessions
WHERE id = ?`

	selectSessionsSQL = `
SELECT id,
       start_time,
       source,
       config
FROM sessions
ORDER BY start_time`

	insertRecordSQL = `
INSERT INTO records (session_id,
                     timestamp,
                     latitude,
                     longitude,
                     altitude,
                     ground_track,
                     ground_speed,
                     vertical_speed,
                     mode,
                     projected_distance,
                     target_heading,
                     recovery_id,
                     recovery_distance,
                     rate_of_turn,
                     target_rate_of_turn,
                     rudder)
VALUES `

	insertRecordPlaceholder = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	insertRecordColumns     = 16

	selectTimeRangeSQL = `
SELECT MIN(timestamp),
       MAX(timestamp)
FROM records
WHERE session_id = ?`

	selectRecordsSQL = `
SELECT timestamp,
       latitude,
       longitude,
       altitude,
       ground_track,
       ground_speed,
       vertical_speed,
       mode,
       projected_distance,
       target_heading,
       recovery_id,
       recovery_distance,
       rate_of_turn,
       target_rate_of_turn,
       rudder
FROM records
WHERE session_id = ?
  AND timestamp BETWEEN ? AND ?
ORDER BY timestamp, id`

	// PostgreSQL flavour of the recovery queries.
	insertRecoveryPostgresSQL = `
INSERT INTO recovery (ident, latitude, longitude, elevation)
VALUES ($1, $2, $3, $4)`

	selectRecoveryBandPostgresSQL = `
SELECT id, ident, latitude, longitude, elevation
FROM recovery
WHERE latitude BETWEEN $1 AND $2`
)
