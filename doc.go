// Package reliudp implements a connectionless, peer-to-peer UDP reliability
// transport: message-level framing over raw datagrams, fragmentation and
// reassembly of messages larger than one packet, per-message opt-in
// reliability (retransmission and at-most-once delivery) layered on top of
// an otherwise best-effort link, and connection lifecycle management
// (handshake, liveness, graceful teardown).
//
// The package owns no socket. A host supplies a DatagramIO (typically
// internal/udpio.UDPIO, backed by a real net.UDPConn) and a Clock
// (internal/clock.Real in production, internal/clock.Manual in tests), and
// drives the whole engine by calling Socket.Poll from its own event loop.
// Every connection timer (handshake, liveness, retransmission, heartbeat,
// reassembly expiry) is compared against a single clock sample taken at
// the start of each Poll call. The one exception is the per-address
// handshake throttle: its go-cache table expires entries by wall-clock
// time, and go-cache starts a janitor goroutine for it when the Socket is
// created.
package reliudp
