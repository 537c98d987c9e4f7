package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/roman-kulish/glide-recovery/internal/telemetry"
)

// UDPSource receives navigation datagrams and serves the latest merged sample.
// It implements telemetry.Provider.
type UDPSource struct {
	*telemetry.Snapshot

	conn       *net.UDPConn
	readBuffer int
	logger     *slog.Logger

	lastSeq  uint32
	received bool
	dropped  atomic.Uint64
}

var _ telemetry.Provider = (*UDPSource)(nil)

// ListenUDP binds a navigation source to addr, e.g. ":5600".
func ListenUDP(addr string, opts ...Option) (*UDPSource, error) {
	o := newOptions(opts)

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	return &UDPSource{
		Snapshot:   telemetry.NewSnapshot(o.maxAge),
		conn:       conn,
		readBuffer: o.readBuffer,
		logger:     o.logger,
	}, nil
}

// Addr returns the bound local address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Dropped returns the number of datagrams discarded as malformed or out of order.
func (s *UDPSource) Dropped() uint64 {
	return s.dropped.Load()
}

// Run reads datagrams until ctx is cancelled or the socket fails. The socket
// is closed when Run returns.
func (s *UDPSource) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close()
	})
	defer func() {
		stop()
		_ = s.conn.Close()
	}()

	buf := make([]byte, s.readBuffer)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("reading datagram: %w", err)
		}

		var p NavigationPacket
		if err = Unmarshal(buf[:n], &p); err != nil {
			s.dropped.Add(1)
			s.logger.Debug("malformed navigation datagram", slog.String("from", from.String()), slog.Any("error", err))
			continue
		}

		if s.received && !seqAfter(p.Seq, s.lastSeq) {
			s.dropped.Add(1)
			continue
		}
		s.lastSeq, s.received = p.Seq, true

		s.Update(p.Sample())
	}
}

// Close closes the socket.
func (s *UDPSource) Close() error {
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
