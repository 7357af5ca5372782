package mux

import (
	"net"
	"time"

	"reliudp/internal/conn"
)

// Config bundles a Multiplexer's tunables: the per-connection Config every
// Connection it creates inherits, plus the mux-level additions from
// SPEC_FULL.md §C (accept hook, handshake throttle).
type Config struct {
	Conn conn.Config

	// AcceptFunc, if set, is consulted before creating a Connection for an
	// inbound handshake from an address with no existing Connection. A nil
	// AcceptFunc means canonical immediate-accept-if-protocol-matches
	// (SPEC_FULL.md §C.1).
	AcceptFunc func(remote net.Addr) bool

	// MaxHandshakesPerWindow rate-limits repeated handshake attempts from
	// one source address within HandshakeThrottleWindow, zero disables the
	// throttle (SPEC_FULL.md §C.2).
	MaxHandshakesPerWindow int
	HandshakeThrottleWindow time.Duration
}

// DefaultConfig returns a Config wrapping conn.DefaultConfig with a modest
// handshake-flood throttle and no accept hook.
func DefaultConfig() Config {
	return Config{
		Conn:                    conn.DefaultConfig(),
		MaxHandshakesPerWindow:  20,
		HandshakeThrottleWindow: time.Second,
	}
}
