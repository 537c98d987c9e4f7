package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"sync"
	"sync/atomic"
)

// UDPSink sends rudder commands to the servo controller. It implements the
// director's Actuator: deflections are only transmitted while armed.
type UDPSink struct {
	mu      sync.Mutex
	conn    *net.UDPConn
	seq     uint32
	failing bool

	armed  atomic.Bool
	logger *slog.Logger
}

// DialUDP creates a rudder sink sending to addr.
func DialUDP(addr string, opts ...Option) (*UDPSink, error) {
	o := newOptions(opts)

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	return &UDPSink{conn: conn, logger: o.logger}, nil
}

// SetRudder transmits a deflection clamped to [-1, 1]. It is a no-op while
// the sink is disarmed.
func (s *UDPSink) SetRudder(deflection float64) {
	if !s.armed.Load() {
		return
	}
	s.send(math.Max(-1, math.Min(1, deflection)), true)
}

// Enable arms the sink and centers the rudder.
func (s *UDPSink) Enable() {
	if s.armed.CompareAndSwap(false, true) {
		s.send(0, true)
	}
}

// Disable centers the rudder and releases authority.
func (s *UDPSink) Disable() {
	if s.armed.CompareAndSwap(true, false) {
		s.send(0, false)
	}
}

// Armed reports whether rudder commands are transmitted.
func (s *UDPSink) Armed() bool {
	return s.armed.Load()
}

func (s *UDPSink) send(deflection float64, armed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	p, err := Marshal(&RudderPacket{Seq: s.seq, Deflection: deflection, Armed: armed})
	if err == nil {
		_, err = s.conn.Write(p)
	}

	// Log transitions only, the sink is called every cycle.
	switch {
	case err != nil && !s.failing:
		s.failing = true
		s.logger.Warn("rudder command failed", slog.Any("error", err))
	case err == nil && s.failing:
		s.failing = false
		s.logger.Info("rudder commands restored")
	}
}

// Close disarms the sink and closes the socket.
func (s *UDPSink) Close() error {
	s.Disable()

	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
