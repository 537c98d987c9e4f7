package transport

import (
	"io"
	"log/slog"
	"time"
)

const (
	// DefaultReadBuffer is large enough for any navigation datagram.
	DefaultReadBuffer = 2048

	// DefaultMaxAge is how long the last navigation datagram stays valid.
	DefaultMaxAge = 2 * time.Second
)

type options struct {
	logger     *slog.Logger
	readBuffer int
	maxAge     time.Duration
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
		readBuffer: DefaultReadBuffer,
		maxAge:     DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a UDPSource or UDPSink.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithReadBuffer sets the datagram read buffer size.
func WithReadBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readBuffer = n
		}
	}
}

// WithMaxAge sets how long a received sample is served. Zero disables the
// staleness check.
func WithMaxAge(d time.Duration) Option {
	return func(o *options) {
		o.maxAge = d
	}
}
