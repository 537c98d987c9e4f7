package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCoordinate is returned when a coordinate string cannot be parsed.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// ParseCoordinate parses either a decimal degree value ("-33.9461") or a
// degrees-minutes-seconds value with a single separator between the parts and
// an optional hemisphere suffix ("33-56-46.00S", "151 10 38.00E"). S and W
// hemispheres yield negative values.
func ParseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidCoordinate)
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}

	sign := 1.0
	switch s[len(s)-1] {
	case 'S', 's', 'W', 'w':
		sign = -1
		s = s[:len(s)-1]
	case 'N', 'n', 'E', 'e':
		s = s[:len(s)-1]
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == ':' || r == ' ' || r == '\''
	})
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}

	var value float64
	scale := 1.0
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidCoordinate, s, err)
		}
		if v < 0 || (i > 0 && v >= 60) {
			return 0, fmt.Errorf("%w: %q: component out of range", ErrInvalidCoordinate, s)
		}
		value += v / scale
		scale *= 60
	}

	return sign * value, nil
}
