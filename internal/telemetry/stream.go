package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"
)

const (
	// ParseErrorsThreshold defines the number of consecutive parse errors allowed
	ParseErrorsThreshold = 5
)

var (
	// ErrTooManyParseErrors is returned when the number of consecutive parse errors exceeds the threshold
	ErrTooManyParseErrors = errors.New("too many consecutive parse errors")

	// ErrBrokenPipe is returned when there's an error reading from the stream
	ErrBrokenPipe = errors.New("broken pipe")
)

// WithLogger sets the logger for the stream source
func WithLogger(logger *slog.Logger) func(s *StreamSource) {
	return func(s *StreamSource) {
		s.logger = logger
	}
}

// WithParseErrorsThreshold sets the threshold for consecutive parse errors
func WithParseErrorsThreshold(threshold uint8) func(s *StreamSource) {
	return func(s *StreamSource) {
		s.parseErrorsThreshold = threshold
	}
}

// WithMaxAge stops serving samples that have not been refreshed within d
func WithMaxAge(d time.Duration) func(s *StreamSource) {
	return func(s *StreamSource) {
		s.Snapshot.maxAge = d
	}
}

// StreamSource reads NMEA 0183 sentences from a stream, such as a GPS serial
// device or the stdout of an external process, and keeps the latest merged
// navigation sample.
type StreamSource struct {
	*Snapshot

	parseErrorsThreshold uint8
	logger               *slog.Logger
}

// NewStreamSource creates a new StreamSource with a discard logger
func NewStreamSource(options ...func(s *StreamSource)) *StreamSource {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	s := StreamSource{
		Snapshot:             NewSnapshot(0),
		parseErrorsThreshold: ParseErrorsThreshold,
		logger:               logger,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Consume reads sentences from r until EOF, context cancellation, a read
// error, or too many consecutive parse errors. Unsupported sentences are
// skipped and do not count as parse errors. Consume returns nil on EOF.
func (s *StreamSource) Consume(ctx context.Context, r io.Reader) error {
	var parseErrors uint8

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sample, err := ParseSentence(line)
		if errors.Is(err, ErrUnsupportedSentence) {
			continue
		}
		if err != nil {
			parseErrors++
			s.logger.Warn(fmt.Sprintf("error parsing sentence: %s", err.Error()), slog.String("line", line))

			if parseErrors >= s.parseErrorsThreshold {
				return ErrTooManyParseErrors
			}

			continue
		}

		parseErrors = 0 // reset counter
		s.Update(sample)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		return fmt.Errorf("%w: error reading stream: %w", ErrBrokenPipe, err)
	}

	return nil
}
