package reliudp

import "errors"

// The wire-level members of this taxonomy (ErrMalformed,
// ErrProtocolViolation) are never returned from the public API — per
// spec.md §7, malformed or protocol-violating input from a known peer is
// handled entirely inside Poll (dropped; malformed datagrams are logged at
// Debug) and never surfaces to the caller. They are declared here so a
// host can still name them, e.g. when matching log output. Apart from the
// resolution errors OpenHost passes through, only ErrUnknownHandle and
// ErrMTUExceeded are ever returned by Socket's methods.
var (
	ErrMalformed         = errors.New("reliudp: malformed packet")
	ErrProtocolViolation = errors.New("reliudp: protocol violation")
	ErrMTUExceeded       = errors.New("reliudp: message exceeds configured mtu/max_message_length")
	ErrUnknownHandle     = errors.New("reliudp: unknown handle")
)
