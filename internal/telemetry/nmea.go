package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const feetPerMeter = 3.280839895

var (
	// ErrUnsupportedSentence is returned for well-formed sentences that carry no navigation data we use
	ErrUnsupportedSentence = errors.New("unsupported NMEA sentence")

	// ErrChecksum is returned when the sentence checksum does not match its payload
	ErrChecksum = errors.New("NMEA checksum mismatch")
)

// ParseSentence parses one NMEA 0183 sentence into a partial Sample. GGA
// provides position and altitude, VTG provides ground track and ground speed
// and RMC provides position, ground track and ground speed. Sentences reporting
// no fix or an invalid status yield a sample with no fields set.
func ParseSentence(line string) (*Sample, error) {
	line = strings.TrimSpace(line)
	if len(line) < 7 || line[0] != '$' {
		return nil, fmt.Errorf("invalid NMEA sentence: %q", line)
	}

	payload := line[1:]
	if star := strings.IndexByte(payload, '*'); star >= 0 {
		want, err := strconv.ParseUint(payload[star+1:], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid NMEA checksum %q: %w", payload[star+1:], err)
		}

		payload = payload[:star]

		var sum byte
		for i := 0; i < len(payload); i++ {
			sum ^= payload[i]
		}
		if sum != byte(want) {
			return nil, fmt.Errorf("%w: got %02X, want %02X", ErrChecksum, sum, want)
		}
	}

	fields := strings.Split(payload, ",")
	if strings.HasPrefix(fields[0], "P") {
		return nil, fmt.Errorf("%w: proprietary %s", ErrUnsupportedSentence, fields[0])
	}
	if len(fields[0]) != 5 {
		return nil, fmt.Errorf("invalid NMEA address field: %q", fields[0])
	}

	switch fields[0][2:] {
	case "GGA":
		return parseGGA(fields)
	case "VTG":
		return parseVTG(fields)
	case "RMC":
		return parseRMC(fields)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSentence, fields[0])
	}
}

// $GPGGA,hhmmss.ss,llll.ll,a,yyyyy.yy,a,q,nn,h.h,a.a,M,g.g,M,t.t,iiii
func parseGGA(fields []string) (*Sample, error) {
	if len(fields) < 11 {
		return nil, fmt.Errorf("invalid GGA sentence: not enough fields")
	}

	var s Sample
	if fields[6] == "" || fields[6] == "0" {
		return &s, nil // no fix
	}

	lat, lon, err := parseLatLon(fields[2], fields[3], fields[4], fields[5])
	if err != nil {
		return nil, fmt.Errorf("invalid GGA position: %w", err)
	}
	s.Latitude, s.Longitude = Float(lat), Float(lon)

	if fields[9] != "" {
		alt, err := strconv.ParseFloat(fields[9], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid GGA altitude: %w", err)
		}
		if fields[10] != "F" {
			alt *= feetPerMeter
		}
		s.Altitude = Float(alt)
	}

	return &s, nil
}

// $GPVTG,ttt.t,T,mmm.m,M,sss.s,N,kkk.k,K[,m]
func parseVTG(fields []string) (*Sample, error) {
	if len(fields) < 8 {
		return nil, fmt.Errorf("invalid VTG sentence: not enough fields")
	}

	var s Sample
	if len(fields) > 9 && fields[9] == "N" {
		return &s, nil // mode indicator: data not valid
	}

	if fields[1] != "" {
		track, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid VTG track: %w", err)
		}
		s.GroundTrack = Float(track)
	}

	if fields[5] != "" {
		gs, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid VTG ground speed: %w", err)
		}
		s.GroundSpeed = Float(gs)
	}

	return &s, nil
}

// $GPRMC,hhmmss.ss,A,llll.ll,a,yyyyy.yy,a,s.s,t.t,ddmmyy,v.v,a
func parseRMC(fields []string) (*Sample, error) {
	if len(fields) < 10 {
		return nil, fmt.Errorf("invalid RMC sentence: not enough fields")
	}

	var s Sample
	if fields[2] != "A" {
		return &s, nil // void
	}

	lat, lon, err := parseLatLon(fields[3], fields[4], fields[5], fields[6])
	if err != nil {
		return nil, fmt.Errorf("invalid RMC position: %w", err)
	}
	s.Latitude, s.Longitude = Float(lat), Float(lon)

	if fields[7] != "" {
		gs, err := strconv.ParseFloat(fields[7], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RMC ground speed: %w", err)
		}
		s.GroundSpeed = Float(gs)
	}

	if fields[8] != "" {
		track, err := strconv.ParseFloat(fields[8], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RMC track: %w", err)
		}
		s.GroundTrack = Float(track)
	}

	return &s, nil
}

func parseLatLon(lat, ns, lon, ew string) (float64, float64, error) {
	la, err := parseDegreesMinutes(lat, 90)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	switch ns {
	case "N":
	case "S":
		la = -la
	default:
		return 0, 0, fmt.Errorf("latitude hemisphere: %q", ns)
	}

	lo, err := parseDegreesMinutes(lon, 180)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	switch ew {
	case "E":
	case "W":
		lo = -lo
	default:
		return 0, 0, fmt.Errorf("longitude hemisphere: %q", ew)
	}

	return la, lo, nil
}

// parseDegreesMinutes converts [D]DDMM.MMMM into decimal degrees.
func parseDegreesMinutes(v string, limit float64) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("negative value %q", v)
	}

	deg := float64(int(f / 100))
	minutes := f - deg*100
	if minutes >= 60 {
		return 0, fmt.Errorf("minutes out of range in %q", v)
	}

	dd := deg + minutes/60
	if dd > limit {
		return 0, fmt.Errorf("value out of range: %q", v)
	}

	return dd, nil
}
