package reliudp

import "reliudp/internal/conn"

// EventKind tags what kind of event Poll returned.
type EventKind = conn.EventKind

const (
	EventConnected    = conn.EventConnected
	EventMessage      = conn.EventMessage
	EventDisconnected = conn.EventDisconnected
)

// DisconnectReason explains why a Disconnected event was produced.
type DisconnectReason = conn.DisconnectReason

const (
	ReasonNone             = conn.ReasonNone
	ReasonTimeout          = conn.ReasonTimeout
	ReasonHandshakeTimeout = conn.ReasonHandshakeTimeout
	ReasonRemoteClosed     = conn.ReasonRemoteClosed
	ReasonLocalClosed      = conn.ReasonLocalClosed
)

// Event is one entry in the ordered stream Poll returns (spec.md §4.7):
// Connected(handle), Message(handle, bytes, reliable), or
// Disconnected(handle, reason).
type Event struct {
	Handle   Handle
	Kind     EventKind
	Message  []byte
	Reliable bool
	Reason   DisconnectReason
}
