package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roman-kulish/glide-recovery/internal/director"
	"github.com/roman-kulish/glide-recovery/internal/flight"
	"github.com/roman-kulish/glide-recovery/internal/geo"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && *err == nil && cErr != sql.ErrTxDone {
		*err = cErr
	}
}

// toConfigData serializes an optional session config: strings and byte
// slices are stored as is, anything else as JSON.
func toConfigData(config any) (sql.NullString, error) {
	var configData sql.NullString

	switch v := config.(type) {
	case nil:
	case string:
		configData.Valid = true
		configData.String = v

	case []byte:
		configData.Valid = true
		configData.String = string(v)

	default:
		p, err := json.Marshal(config)
		if err != nil {
			return configData, fmt.Errorf("marshaling config: %w", err)
		}

		configData.Valid = true
		configData.String = string(p)
	}

	return configData, nil
}

func toRecordData(sessionID int64, r *flight.Record) *recordData {
	var recoveryID sql.NullInt64
	if r.RecoveryID != nil {
		recoveryID.Int64 = *r.RecoveryID
		recoveryID.Valid = true
	}

	return &recordData{
		SessionID:         sessionID,
		Timestamp:         r.Timestamp.UTC(),
		Latitude:          r.Position.Latitude,
		Longitude:         r.Position.Longitude,
		Altitude:          r.Altitude,
		GroundTrack:       r.GroundTrack,
		GroundSpeed:       r.GroundSpeed,
		VerticalSpeed:     r.VerticalSpeed,
		Mode:              r.Mode.String(),
		ProjectedDistance: r.ProjectedDistance,
		TargetHeading:     r.TargetHeading,
		RecoveryID:        recoveryID,
		RecoveryDistance:  r.RecoveryDistance,
		RateOfTurn:        r.RateOfTurn,
		TargetRateOfTurn:  r.TargetRateOfTurn,
		Rudder:            r.Rudder,
	}
}

func fromRecordData(d *recordData) (flight.Record, error) {
	mode, err := director.ParseMode(d.Mode)
	if err != nil {
		return flight.Record{}, fmt.Errorf("parsing mode: %w", err)
	}

	r := flight.Record{
		Timestamp:         d.Timestamp,
		Position:          geo.Position{Latitude: d.Latitude, Longitude: d.Longitude},
		Altitude:          d.Altitude,
		GroundTrack:       d.GroundTrack,
		GroundSpeed:       d.GroundSpeed,
		VerticalSpeed:     d.VerticalSpeed,
		Mode:              mode,
		ProjectedDistance: d.ProjectedDistance,
		TargetHeading:     d.TargetHeading,
		RecoveryDistance:  d.RecoveryDistance,
		RateOfTurn:        d.RateOfTurn,
		TargetRateOfTurn:  d.TargetRateOfTurn,
		Rudder:            d.Rudder,
	}

	if d.RecoveryID.Valid {
		id := d.RecoveryID.Int64
		r.RecoveryID = &id
	}

	return r, nil
}
