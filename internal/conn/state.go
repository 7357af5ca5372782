package conn

// State is the Connection's position in spec.md §4.6's state machine.
type State int

const (
	// StateOpening is the period after a local open() before a handshake
	// has been exchanged with the peer.
	StateOpening State = iota
	// StateEstablished is the steady state: heartbeats running, application
	// traffic flowing.
	StateEstablished
	// StateDisconnecting is entered by a local close(); a Disconnect blob
	// is queued and the connection dies once it flushes.
	StateDisconnecting
	// StateDead is terminal; the owning Multiplexer discards the
	// Connection on the poll() pass that observes it.
	StateDead
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "Opening"
	case StateEstablished:
		return "Established"
	case StateDisconnecting:
		return "Disconnecting"
	case StateDead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// DisconnectReason names why a Connection reached StateDead, carried on
// its terminal Disconnected event (spec.md §7).
type DisconnectReason int

const (
	ReasonNone DisconnectReason = iota
	// ReasonTimeout is reported when no inbound packet arrived within
	// LivenessTimeout of an Established connection.
	ReasonTimeout
	// ReasonHandshakeTimeout is reported when an Opening connection never
	// heard back within HandshakeTimeout.
	ReasonHandshakeTimeout
	// ReasonRemoteClosed is reported on receipt of a Disconnect blob.
	ReasonRemoteClosed
	// ReasonLocalClosed is reported once a local Close()'s Disconnect blob
	// has been flushed.
	ReasonLocalClosed
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonTimeout:
		return "Timeout"
	case ReasonHandshakeTimeout:
		return "HandshakeTimeout"
	case ReasonRemoteClosed:
		return "RemoteClosed"
	case ReasonLocalClosed:
		return "LocalClosed"
	default:
		return "None"
	}
}
