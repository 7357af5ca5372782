package reliudp

import (
	"context"
	"errors"
	"net"

	"reliudp/internal/clock"
	"reliudp/internal/conn"
	"reliudp/internal/discovery"
	"reliudp/internal/mux"
)

// Handle identifies one peer Connection a Socket has opened or accepted.
// It carries no exported fields; a host only ever stores one returned by
// Open or a Connected event and passes it back to Send/Close/Stats.
type Handle = mux.Handle

// DatagramIO is the non-blocking UDP send/receive primitive a host
// supplies. internal/udpio.UDPIO is the reference implementation over a
// real net.UDPConn; internal/testtransport.IO is a scripted double for
// tests.
type DatagramIO = mux.DatagramIO

// Clock is the time source every Poll call samples once. internal/clock.Real
// wraps time.Now for production use; internal/clock.Manual drives
// deterministic tests.
type Clock = clock.Clock

// Stats is a read-only diagnostic snapshot of one Connection.
type Stats = conn.Stats

// Socket is the host-facing handle on one peer-to-peer UDP reliability
// engine instance. It owns no socket of its own — io is the caller's
// responsibility — and does its protocol work only inside the caller's
// Poll calls. The only goroutine it starts is go-cache's janitor for the
// handshake throttle (see the package doc).
type Socket struct {
	m *mux.Multiplexer
}

// NewSocket returns a Socket driving io with cfg's tunables, using clk as
// its time source.
func NewSocket(cfg Config, clk Clock, io DatagramIO) *Socket {
	return &Socket{m: mux.New(cfg.toMux(), clk, io)}
}

// Open begins a handshake with addr and returns a handle to the new
// Connection immediately, in the Opening state. The caller learns the
// handshake completed by observing a Connected event for this handle from
// a later Poll call.
func (s *Socket) Open(addr net.Addr) Handle {
	return s.m.Open(addr)
}

// OpenHost resolves name (a bare hostname, or already a literal IP) against
// the DNS server named by resolverAddr, then behaves exactly like Open with
// the resolved address and port. Unlike Open, resolution is fallible and can
// block on a network round trip, so it takes a context and returns an error.
func (s *Socket) OpenHost(ctx context.Context, resolverAddr, name string, port int) (Handle, error) {
	addr, err := discovery.NewResolver(resolverAddr).ResolveAddr(ctx, name, port)
	if err != nil {
		return Handle{}, err
	}
	return s.Open(addr), nil
}

// Send fragments data and queues it for delivery to the Connection named
// by h, opting into retransmission and at-most-once delivery if reliable
// is set. Returns ErrUnknownHandle if h no longer names a live Connection,
// or ErrMTUExceeded if data exceeds Config.MaxMessageLength.
func (s *Socket) Send(h Handle, data []byte, reliable bool) error {
	return translateErr(s.m.Send(h, data, reliable))
}

// Close begins a graceful teardown of the Connection named by h: a
// best-effort Disconnect notice is queued, and the Connection reaches
// StateDead (reported as a Disconnected(ReasonLocalClosed) event) once
// that notice is flushed. Returns ErrUnknownHandle if h no longer names a
// live Connection.
func (s *Socket) Close(h Handle) error {
	return translateErr(s.m.Close(h))
}

// Stats reports the Connection named by h's diagnostic snapshot. ok is
// false if h no longer names a live Connection.
func (s *Socket) Stats(h Handle) (Stats, bool) {
	return s.m.Stats(h)
}

// Poll drains every inbound datagram queued on io, advances every
// Connection's timers, flushes outbound datagrams, and returns the
// ordered event stream produced this pass. A host is expected to call
// Poll frequently (e.g. in a select loop alongside whatever else it
// waits on) — nothing here wakes the host up on its own.
func (s *Socket) Poll() []Event {
	raw := s.m.Poll()
	events := make([]Event, len(raw))
	for i, e := range raw {
		events[i] = Event{
			Handle:   e.Handle,
			Kind:     e.Kind,
			Message:  e.Message,
			Reliable: e.Reliable,
			Reason:   e.Reason,
		}
	}
	return events
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mux.ErrUnknownHandle):
		return ErrUnknownHandle
	case errors.Is(err, conn.ErrMessageTooLong):
		return ErrMTUExceeded
	default:
		return err
	}
}
