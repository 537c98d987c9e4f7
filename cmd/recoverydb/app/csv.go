package app

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roman-kulish/glide-recovery/internal/recovery"
)

// ReadLocations parses recovery locations from CSV rows of
// ident,latitude,longitude[,elevation]. Coordinates are decimal degrees or
// DMS with a hemisphere suffix. An optional header row starting with "ident"
// and lines starting with '#' are skipped.
func ReadLocations(r io.Reader) ([]recovery.Location, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var locations []recovery.Location
	for first := true; ; first = false {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}

		if first && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "ident") {
			continue
		}

		line, _ := cr.FieldPos(0)
		loc, err := parseLocation(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		locations = append(locations, loc)
	}

	return locations, nil
}

func parseLocation(row []string) (recovery.Location, error) {
	if len(row) < 3 || len(row) > 4 {
		return recovery.Location{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(row))
	}

	spec := recovery.LocationSpec{
		Ident:     strings.ToUpper(strings.TrimSpace(row[0])),
		Latitude:  row[1],
		Longitude: row[2],
	}
	if spec.Ident == "" {
		return recovery.Location{}, errors.New("empty ident")
	}

	if len(row) == 4 && strings.TrimSpace(row[3]) != "" {
		var err error
		if spec.Elevation, err = strconv.ParseFloat(strings.TrimSpace(row[3]), 64); err != nil {
			return recovery.Location{}, fmt.Errorf("elevation: %w", err)
		}
	}

	loc, err := spec.Location()
	if err != nil {
		return recovery.Location{}, err
	}
	return loc, loc.Validate()
}
