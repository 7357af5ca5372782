// Package conn implements spec.md §4.6: the per-peer Connection state
// machine, wiring together the Fragmenter, Reassembler, Reliability
// Engine, and RTT/Heartbeat estimator that a single connection owns.
//
// Grounded on the state-tag-plus-explicit-transitions shape of
// therealutkarshpriyadarshi-network/pkg/tcp/state.go (a TCP state machine
// driven by an external event loop rather than its own goroutine), and on
// spec.md §9's design note that a Connection must never hold a back
// pointer to its owning Multiplexer — every method here takes the clock
// sample as an argument and returns events/outbound bytes for the caller
// to route, rather than calling back into anything.
package conn

import (
	"errors"

	"github.com/rs/zerolog/log"

	"reliudp/internal/fragment"
	"reliudp/internal/reassembly"
	"reliudp/internal/reliability"
	"reliudp/internal/rtt"
	"reliudp/internal/wire"

	"time"
)

// ErrMessageTooLong is returned by Send when the caller's message exceeds
// Config.MaxMessageLength.
var ErrMessageTooLong = errors.New("conn: message exceeds max_message_length")

// Connection is one peer-to-peer protocol state machine (spec.md's
// GLOSSARY: "the per-peer protocol state machine"). It never touches a
// socket directly: HandleInbound consumes already-decoded packets, and
// Outbound returns already-encoded datagrams for the caller to send.
type Connection struct {
	cfg   Config
	state State

	openedAt    time.Time
	lastInbound time.Time

	everSentHandshake bool
	lastHandshakeSent time.Time
	pendingHandshake  bool

	fragmenter  *fragment.Fragmenter
	reassembler *reassembly.Reassembler
	reliability *reliability.Engine
	rttEst      *rtt.Estimator
	heartbeats  *rtt.Heartbeats

	pendingBlobs []wire.Blob

	disconnectQueued  bool
	disconnectFlushed bool

	retransmitCount int
}

// New returns a Connection that opened at now. initiator is true for the
// side that called open() locally (starts Opening and resends handshakes);
// false for the side a Multiplexer creates on receipt of an inbound
// handshake (starts Established and owes the peer exactly one handshake
// reply).
func New(cfg Config, now time.Time, initiator bool) *Connection {
	c := &Connection{
		cfg:         cfg,
		openedAt:    now,
		lastInbound: now,
		fragmenter:  fragment.New(),
		reassembler: reassembly.New(reassembly.Config{MaxMessageLength: cfg.MaxMessageLength}),
		reliability: reliability.New(),
		rttEst: rtt.New(rtt.Config{
			MinRTO:     cfg.MinRTO,
			MaxRTO:     cfg.MaxRTO,
			InitialRTO: cfg.InitialRTO,
		}),
	}
	if initiator {
		c.state = StateOpening
		c.heartbeats = rtt.NewHeartbeats(now, cfg.HeartbeatInterval)
	} else {
		c.state = StateEstablished
		c.pendingHandshake = true
		c.heartbeats = rtt.NewHeartbeats(now, cfg.HeartbeatInterval)
	}
	return c
}

// State reports the Connection's current position in the state machine.
func (c *Connection) State() State { return c.state }

// Stats is a read-only snapshot for a host's diagnostics (SPEC_FULL.md §C.4).
type Stats struct {
	State           State
	SmoothedRTT     time.Duration
	RTO             time.Duration
	InFlightRanges  int
	PendingFragments int
	RetransmitCount int
}

func (c *Connection) Stats() Stats {
	return Stats{
		State:            c.state,
		SmoothedRTT:      c.rttEst.Smoothed(),
		RTO:              c.rttEst.RTO(),
		InFlightRanges:   c.reliability.InFlightCount(),
		PendingFragments: c.reassembler.PendingCount(),
		RetransmitCount:  c.retransmitCount,
	}
}

func (c *Connection) queue(b wire.Blob) { c.pendingBlobs = append(c.pendingBlobs, b) }

// transitionEstablished moves an Opening connection to Established and
// starts its heartbeat clock from now, per spec.md §4.6's "begin
// heartbeats" action.
func (c *Connection) transitionEstablished(now time.Time) {
	if c.state != StateOpening {
		return
	}
	c.state = StateEstablished
	c.heartbeats = rtt.NewHeartbeats(now, c.cfg.HeartbeatInterval)
}

// HandleInbound processes one already-decoded packet received from this
// Connection's peer at time now. Malformed bytes never reach here — the
// caller (Multiplexer) drops those before lookup ever occurs; ProtocolViolation
// from the Reassembler is handled here by dropping just that blob, per
// spec.md §7's "drop packet, do NOT tear down (defensive)".
func (c *Connection) HandleInbound(now time.Time, pkt *wire.Packet) []Event {
	if c.state == StateDead {
		return nil
	}
	c.lastInbound = now

	var events []Event

	if pkt.Handshake != nil {
		if pkt.Handshake.ProtocolID != c.cfg.ProtocolID {
			return nil
		}
		if c.state == StateOpening {
			c.transitionEstablished(now)
			events = append(events, Event{Kind: EventConnected})
		}
		return events
	}

	for _, blob := range pkt.Blobs {
		switch b := blob.(type) {
		case *wire.MessageFragment:
			if c.state == StateOpening {
				c.transitionEstablished(now)
				events = append(events, Event{Kind: EventConnected})
			}
			res, err := c.reassembler.Ingest(now, b)
			if err != nil {
				continue
			}
			if b.Reliable {
				c.reliability.QueueAck(b.FragID, b.Offset, b.FragmentLength)
			}
			if res.Message != nil {
				if res.Reliable {
					expiry := now.Add(time.Duration(c.cfg.CompletedRetainFactor) * c.rttEst.RTO())
					c.reassembler.MarkRetain(b.FragID, expiry)
				}
				events = append(events, Event{Kind: EventMessage, Message: res.Message, Reliable: res.Reliable})
			}

		case *wire.Heartbeat:
			if c.state == StateOpening {
				c.transitionEstablished(now)
				events = append(events, Event{Kind: EventConnected})
			}
			c.queue(rtt.RespondTo(b))

		case *wire.HeartbeatResponse:
			sample := c.heartbeats.Sample(now, b)
			c.rttEst.OnSample(sample)

		case *wire.Ack:
			log.Debug().Uint32("frag_id", b.FragID).Uint32("offset", b.Offset).
				Uint32("length", b.Length).Msg("ack processed")
			c.reliability.OnAck(b)

		case *wire.Disconnect:
			c.state = StateDead
			events = append(events, Event{Kind: EventDisconnected, Reason: ReasonRemoteClosed})
		}
	}
	return events
}

// Tick drives every timer owned by this Connection for one poll() pass:
// handshake resend/timeout, liveness, retransmission, heartbeat emission,
// ack flush, and reassembly sweep — all compared against the single clock
// sample now (spec.md §9).
func (c *Connection) Tick(now time.Time) []Event {
	var events []Event

	switch c.state {
	case StateOpening:
		if now.Sub(c.openedAt) >= c.cfg.HandshakeTimeout {
			c.state = StateDead
			return append(events, Event{Kind: EventDisconnected, Reason: ReasonHandshakeTimeout})
		}
		if !c.everSentHandshake || now.Sub(c.lastHandshakeSent) >= c.cfg.HandshakeInterval {
			c.pendingHandshake = true
			c.lastHandshakeSent = now
			c.everSentHandshake = true
		}

	case StateEstablished:
		if now.Sub(c.lastInbound) > c.cfg.LivenessTimeout {
			c.state = StateDead
			return append(events, Event{Kind: EventDisconnected, Reason: ReasonTimeout})
		}
		c.tickTraffic(now)

	case StateDisconnecting:
		if c.disconnectFlushed {
			c.state = StateDead
			return append(events, Event{Kind: EventDisconnected, Reason: ReasonLocalClosed})
		}

	case StateDead:
		return nil
	}

	c.reassembler.Sweep(now)
	return events
}

// tickTraffic runs the Established-state timers: retransmission, heartbeat
// emission, and ack flush.
func (c *Connection) tickTraffic(now time.Time) {
	due := c.reliability.RetransmitDue(now, c.rttEst.RTO())
	for _, f := range due {
		c.retransmitCount++
		log.Debug().Uint32("frag_id", f.FragID).Uint32("offset", f.Offset).
			Uint32("length", f.FragmentLength).Msg("retransmitting fragment")
		c.queue(f)
	}

	sentOtherTraffic := len(c.pendingBlobs) > 0
	if hb := c.heartbeats.MaybeEmit(now, sentOtherTraffic); hb != nil {
		c.queue(hb)
	}

	if c.reliability.HasPendingAcks() {
		for _, ack := range c.reliability.FlushAcks() {
			c.queue(ack)
		}
	}
}

// Send fragments message and queues it for the next Outbound flush,
// tracking it in the Reliability Engine if reliable is set.
func (c *Connection) Send(now time.Time, message []byte, reliable bool) error {
	if uint32(len(message)) > c.cfg.MaxMessageLength {
		return ErrMessageTooLong
	}
	_, frags := c.fragmenter.Send(message, reliable, c.cfg.MTU)
	for _, f := range frags {
		if reliable {
			c.reliability.Track(now, f)
		}
		c.queue(f)
	}
	return nil
}

// Close transitions an Opening or Established connection to Disconnecting,
// queuing a best-effort Disconnect blob (spec.md §4.6, §5: "a local
// close() is immediate at the state-machine level ... the Disconnect blob
// is best-effort").
func (c *Connection) Close() {
	if c.state != StateOpening && c.state != StateEstablished {
		return
	}
	c.state = StateDisconnecting
	c.disconnectQueued = true
	c.queue(&wire.Disconnect{})
}

// Outbound builds and returns every datagram this Connection needs to send
// right now: at most one handshake packet, plus zero or more data packets
// covering whatever fragments/acks/heartbeats/disconnect are queued,
// packed to respect MTU.
func (c *Connection) Outbound(now time.Time) ([][]byte, error) {
	var packets [][]byte

	if c.pendingHandshake {
		packets = append(packets, wire.EncodeHandshake(c.cfg.ProtocolID))
		c.pendingHandshake = false
	}

	if len(c.pendingBlobs) > 0 {
		for _, batch := range packBlobs(c.pendingBlobs, c.cfg.MTU) {
			raw, err := wire.EncodeData(batch, c.cfg.MTU)
			if err != nil {
				return packets, err
			}
			packets = append(packets, raw)
		}
		c.pendingBlobs = nil
	}

	if c.disconnectQueued {
		c.disconnectFlushed = true
	}

	return packets, nil
}

// packBlobs greedily groups blobs into batches that each fit one packet of
// size mtu, in order, so Outbound never hands wire.EncodeData more than it
// can hold.
func packBlobs(blobs []wire.Blob, mtu int) [][]wire.Blob {
	const lengthPrefixLen = 2
	var batches [][]wire.Blob
	var current []wire.Blob
	used := 0

	for _, b := range blobs {
		raw, err := b.MarshalBinary()
		size := lengthPrefixLen + len(raw)
		if err == nil && len(current) > 0 && used+size > mtu {
			batches = append(batches, current)
			current = nil
			used = 0
		}
		current = append(current, b)
		used += size
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
