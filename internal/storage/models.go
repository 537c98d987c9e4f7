package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

type recordData struct {
	SessionID         int64
	Timestamp         time.Time
	Latitude          float64
	Longitude         float64
	Altitude          float64
	GroundTrack       float64
	GroundSpeed       float64
	VerticalSpeed     float64
	Mode              string
	ProjectedDistance float64
	TargetHeading     float64
	RecoveryID        sql.NullInt64
	RecoveryDistance  float64
	RateOfTurn        float64
	TargetRateOfTurn  float64
	Rudder            float64
}

// sqliteTime scans DATETIME values. Aggregates such as MIN(timestamp) lose the
// declared column type, so the driver hands them over as text.
type sqliteTime struct {
	Time  time.Time
	Valid bool
}

func (t *sqliteTime) Scan(value any) error {
	var s string

	switch v := value.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v, true
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("unsupported datetime type %T", value)
	}

	s = strings.TrimSuffix(s, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time, t.Valid = parsed, true
			return nil
		}
	}

	return fmt.Errorf("unsupported datetime format %q", s)
}
