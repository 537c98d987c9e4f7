package director

import (
	"fmt"
	"strings"
)

// Mode is the director guidance mode.
type Mode int

const (
	// ModeSeek flies a box search pattern while no recovery location is reachable.
	ModeSeek Mode = iota
	// ModeTrack homes on the recovery location along a cross-track corrected course.
	ModeTrack
	// ModeCircle orbits above the recovery location.
	ModeCircle
)

var modeNames = [...]string{
	ModeSeek:   "seek",
	ModeTrack:  "track",
	ModeCircle: "circle",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
