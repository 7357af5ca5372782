package mux

import "reliudp/internal/conn"

// Event is one entry in the ordered stream Poll returns: a conn.Event
// annotated with the Handle of the Connection it came from (spec.md
// §4.7: "poll() ... Returns ordered events: Connected(handle),
// Message(handle, bytes), Disconnected(handle, reason)").
type Event struct {
	Handle   Handle
	Kind     conn.EventKind
	Message  []byte
	Reliable bool
	Reason   conn.DisconnectReason
}
