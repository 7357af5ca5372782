// Package mux implements spec.md §4.7: the Socket Multiplexer that owns
// the (simulated or real) UDP socket, demultiplexes inbound datagrams to
// per-remote-address Connections by source address, and drives every
// Connection's Tick/Outbound once per poll() call.
//
// Grounded on therealutkarshpriyadarshi-network/pkg/udp/socket.go's
// Demultiplexer (a map-of-endpoint-to-handler routing incoming packets,
// here keyed by remote address instead of local port since this
// multiplexer owns exactly one local socket and fans out by peer) and on
// the teacher's SessionManager (internal/server/session.go) for the
// go-cache-backed auxiliary bookkeeping pattern, repurposed here as a
// handshake-flood throttle rather than a session store.
package mux

import (
	"net"
	"time"

	"reliudp/internal/clock"
	"reliudp/internal/conn"
	"reliudp/internal/wire"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

type entry struct {
	addr       net.Addr
	generation uint64
	c          *conn.Connection
}

// Multiplexer is the single-threaded owner of one DatagramIO and every
// Connection it has opened or accepted. All of its methods are intended to
// be called from one goroutine — the host's poll loop — per spec.md §5.
type Multiplexer struct {
	cfg   Config
	clk   clock.Clock
	io    DatagramIO
	byAddr map[string]*entry

	nextGeneration uint64

	throttle *cache.Cache
}

// New returns a Multiplexer driving io, with cfg's per-connection defaults
// and mux-level policy, using clk as its time source (spec.md §5: "All
// time is sourced from a monotonic clock injected ... at the start of
// poll()").
func New(cfg Config, clk clock.Clock, io DatagramIO) *Multiplexer {
	window := cfg.HandshakeThrottleWindow
	if window <= 0 {
		window = time.Second
	}
	return &Multiplexer{
		cfg:      cfg,
		clk:      clk,
		io:       io,
		byAddr:   make(map[string]*entry),
		throttle: cache.New(window, 2*window),
	}
}

// Open creates a Connection to addr in the Opening state and returns its
// handle. The caller must still Poll for the Connected event once the
// handshake completes.
func (m *Multiplexer) Open(addr net.Addr) Handle {
	now := m.clk.Now()
	m.nextGeneration++
	gen := m.nextGeneration
	ent := &entry{addr: addr, generation: gen, c: conn.New(m.cfg.Conn, now, true)}
	m.byAddr[addr.String()] = ent
	return Handle{addr: addr.String(), generation: gen}
}

// Send routes data to the Connection named by h, fragmenting and queuing
// it for the next Poll's outbound flush. Returns ErrUnknownHandle if h no
// longer names a live Connection.
func (m *Multiplexer) Send(h Handle, data []byte, reliable bool) error {
	ent, ok := m.lookup(h)
	if !ok {
		return ErrUnknownHandle
	}
	return ent.c.Send(m.clk.Now(), data, reliable)
}

// Close transitions the Connection named by h to Disconnecting. Returns
// ErrUnknownHandle if h no longer names a live Connection.
func (m *Multiplexer) Close(h Handle) error {
	ent, ok := m.lookup(h)
	if !ok {
		return ErrUnknownHandle
	}
	ent.c.Close()
	return nil
}

// Stats reports the Connection named by h's diagnostic snapshot.
func (m *Multiplexer) Stats(h Handle) (conn.Stats, bool) {
	ent, ok := m.lookup(h)
	if !ok {
		return conn.Stats{}, false
	}
	return ent.c.Stats(), true
}

func (m *Multiplexer) lookup(h Handle) (*entry, bool) {
	ent, ok := m.byAddr[h.addr]
	if !ok || ent.generation != h.generation {
		return nil, false
	}
	return ent, true
}

// Poll drains every inbound datagram currently queued, dispatches it to
// the right Connection (creating one for a fresh matching handshake),
// ticks every Connection's timers, flushes outbound datagrams, and
// garbage-collects any Connection that reached StateDead this pass. It
// returns the ordered event stream for the host (spec.md §4.7).
func (m *Multiplexer) Poll() []Event {
	now := m.clk.Now()
	var events []Event

	for {
		raw, addr, ok := m.io.PollRecv()
		if !ok {
			break
		}
		pkt, err := wire.Decode(raw)
		if err != nil {
			log.Debug().Str("remote", addr.String()).Err(err).Msg("dropping malformed datagram")
			continue
		}

		key := addr.String()
		ent, exists := m.byAddr[key]
		if !exists {
			if pkt.Handshake == nil || pkt.Handshake.ProtocolID != m.cfg.Conn.ProtocolID {
				continue
			}
			if !m.allowHandshake(key) {
				log.Warn().Str("remote", key).Msg("handshake throttled")
				continue
			}
			if m.cfg.AcceptFunc != nil && !m.cfg.AcceptFunc(addr) {
				continue
			}
			m.nextGeneration++
			ent = &entry{addr: addr, generation: m.nextGeneration, c: conn.New(m.cfg.Conn, now, false)}
			m.byAddr[key] = ent
			log.Info().Str("remote", key).Msg("connection accepted")
			events = append(events, Event{Handle: Handle{addr: key, generation: ent.generation}, Kind: conn.EventConnected})
			continue
		}

		for _, e := range ent.c.HandleInbound(now, pkt) {
			events = append(events, m.wrap(ent, key, e))
		}
	}

	for key, ent := range m.byAddr {
		for _, e := range ent.c.Tick(now) {
			events = append(events, m.wrap(ent, key, e))
		}

		packets, err := ent.c.Outbound(now)
		if err != nil {
			log.Error().Str("remote", key).Err(err).Msg("failed to encode outbound packet")
		}
		for _, p := range packets {
			if err := m.io.SendTo(p, ent.addr); err != nil {
				log.Warn().Str("remote", key).Err(err).Msg("send failed")
			}
		}

		if ent.c.State() == conn.StateDead {
			delete(m.byAddr, key)
		}
	}

	return events
}

func (m *Multiplexer) wrap(ent *entry, key string, e conn.Event) Event {
	switch e.Kind {
	case conn.EventConnected:
		log.Info().Str("remote", key).Msg("connection established")
	case conn.EventDisconnected:
		log.Info().Str("remote", key).Str("reason", e.Reason.String()).Msg("connection disconnected")
	}
	return Event{
		Handle:   Handle{addr: key, generation: ent.generation},
		Kind:     e.Kind,
		Message:  e.Message,
		Reliable: e.Reliable,
		Reason:   e.Reason,
	}
}

// allowHandshake enforces MaxHandshakesPerWindow per source address key,
// backed by go-cache's self-expiring map (not part of any Connection's hot
// state — see SPEC_FULL.md §B on why completed_recent deliberately does
// not use this same mechanism).
func (m *Multiplexer) allowHandshake(key string) bool {
	if m.cfg.MaxHandshakesPerWindow <= 0 {
		return true
	}
	if v, found := m.throttle.Get(key); found {
		count := v.(int)
		if count >= m.cfg.MaxHandshakesPerWindow {
			return false
		}
		m.throttle.Set(key, count+1, cache.DefaultExpiration)
		return true
	}
	m.throttle.Set(key, 1, cache.DefaultExpiration)
	return true
}
