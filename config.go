package reliudp

import (
	"net"
	"time"

	"reliudp/internal/conn"
	"reliudp/internal/mux"
)

// Config bundles every tunable spec.md §6 names, plus the accept-hook and
// handshake-throttle additions every Socket needs regardless of how a
// single Connection behaves.
type Config struct {
	// ProtocolID guards against cross-version traffic: a handshake whose
	// claimed id does not match is silently ignored, never torn down.
	ProtocolID uint64
	// MTU bounds every packet this Socket ever builds.
	MTU int
	// HeartbeatInterval is how often an idle Established connection emits
	// a heartbeat, to keep RTT estimation warm and the peer's liveness
	// clock satisfied.
	HeartbeatInterval time.Duration
	// LivenessTimeout tears an Established connection down with
	// ReasonTimeout once this long passes with no inbound packet at all.
	LivenessTimeout time.Duration
	// HandshakeInterval is how often an Opening connection resends its
	// handshake while awaiting a reply.
	HandshakeInterval time.Duration
	// HandshakeTimeout tears an Opening connection down with
	// ReasonHandshakeTimeout once this long passes with no reply.
	HandshakeTimeout time.Duration
	MinRTO           time.Duration
	MaxRTO           time.Duration
	InitialRTO       time.Duration
	// CompletedRetainFactor is how many multiples of the current RTO a
	// completed reliable message's duplicate-suppression entry is kept
	// for, to absorb a retransmit racing its own final ack.
	CompletedRetainFactor int
	// MaxMessageLength bounds any single logical message this Socket will
	// reassemble, guarding against a peer claiming an unbounded
	// total_length before any buffer is allocated.
	MaxMessageLength uint32

	// AcceptFunc, if set, is consulted before a new inbound handshake is
	// allowed to create a Connection. A nil AcceptFunc accepts every
	// protocol-id-matching handshake.
	AcceptFunc func(remote net.Addr) bool
	// MaxHandshakesPerWindow rate-limits repeated handshake attempts from
	// one source address within HandshakeThrottleWindow; zero disables
	// the throttle.
	MaxHandshakesPerWindow  int
	HandshakeThrottleWindow time.Duration
}

// DefaultConfig returns spec.md §6's suggested defaults: 1200-byte MTU,
// 100ms heartbeat interval, 5s liveness timeout, 100ms handshake interval,
// 5s handshake timeout, 50ms/1s RTO bounds, 200ms initial RTO, retain
// factor 4, 16MiB max message length.
func DefaultConfig() Config {
	d := mux.DefaultConfig()
	return Config{
		MTU:                     d.Conn.MTU,
		HeartbeatInterval:       d.Conn.HeartbeatInterval,
		LivenessTimeout:         d.Conn.LivenessTimeout,
		HandshakeInterval:       d.Conn.HandshakeInterval,
		HandshakeTimeout:        d.Conn.HandshakeTimeout,
		MinRTO:                  d.Conn.MinRTO,
		MaxRTO:                  d.Conn.MaxRTO,
		InitialRTO:              d.Conn.InitialRTO,
		CompletedRetainFactor:   d.Conn.CompletedRetainFactor,
		MaxMessageLength:        d.Conn.MaxMessageLength,
		AcceptFunc:              d.AcceptFunc,
		MaxHandshakesPerWindow:  d.MaxHandshakesPerWindow,
		HandshakeThrottleWindow: d.HandshakeThrottleWindow,
	}
}

func (c Config) toMux() mux.Config {
	return mux.Config{
		Conn: conn.Config{
			ProtocolID:            c.ProtocolID,
			MTU:                   c.MTU,
			HeartbeatInterval:     c.HeartbeatInterval,
			LivenessTimeout:       c.LivenessTimeout,
			HandshakeInterval:     c.HandshakeInterval,
			HandshakeTimeout:      c.HandshakeTimeout,
			MinRTO:                c.MinRTO,
			MaxRTO:                c.MaxRTO,
			InitialRTO:            c.InitialRTO,
			CompletedRetainFactor: c.CompletedRetainFactor,
			MaxMessageLength:      c.MaxMessageLength,
		},
		AcceptFunc:              c.AcceptFunc,
		MaxHandshakesPerWindow:  c.MaxHandshakesPerWindow,
		HandshakeThrottleWindow: c.HandshakeThrottleWindow,
	}
}
