// Package fragment implements the outbound half of spec.md §4.2: splitting
// an application message into MTU-sized MessageFragment blobs and
// assigning each outbound message a monotonically increasing fragmentation
// id, generalized from the teacher's internal/protocol.FragmentPacket
// (which used a random id and a bare [id|total|seq] header) to the
// monotonic-id, byte-range-addressed fragment the spec requires.
package fragment

import "reliudp/internal/wire"

// blobOverheadBytes is the non-payload portion of a MessageFragment blob
// once marshaled: 1 tag byte + the fixed fragment header fields.
const blobOverheadBytes = 1 + 4 + 1 + 4 + 4 + 4

// packetOverheadBytes is the u16 length prefix wrapping each blob inside a
// data packet.
const packetOverheadBytes = 2

// Fragmenter assigns fragmentation ids and splits outbound messages into
// fragments that fit the configured MTU. One Fragmenter exists per
// connection, per direction (spec.md Data Model: "Connection ... owns ...
// outbound Fragmenter state (next fragmentation id ...)").
type Fragmenter struct {
	nextID uint32
}

// New returns a Fragmenter starting its fragmentation-id sequence at 0.
func New() *Fragmenter {
	return &Fragmenter{}
}

// MaxPayload returns the largest fragment payload (in bytes) that fits a
// single MessageFragment blob inside a packet bounded by mtu.
func MaxPayload(mtu int) int {
	n := mtu - packetOverheadBytes - blobOverheadBytes
	if n < 0 {
		return 0
	}
	return n
}

// Send splits message into one or more MessageFragment blobs addressed at
// the next fragmentation id, honoring the spec's invariant that a
// zero-length message is encoded as exactly one fragment covering [0,0).
// mtu bounds each resulting blob's total marshaled size (including framing
// overhead) to fit one packet.
func (f *Fragmenter) Send(message []byte, reliable bool, mtu int) (fragID uint32, frags []*wire.MessageFragment) {
	fragID = f.nextID
	f.nextID++

	maxPayload := MaxPayload(mtu)
	total := uint32(len(message))

	if len(message) == 0 {
		return fragID, []*wire.MessageFragment{{
			FragID:         fragID,
			Reliable:       reliable,
			TotalLength:    0,
			Offset:         0,
			FragmentLength: 0,
			Payload:        nil,
		}}
	}

	if maxPayload <= 0 {
		// Caller configured an MTU too small to carry any payload; return
		// no fragments rather than looping forever.
		return fragID, nil
	}

	for offset := 0; offset < len(message); offset += maxPayload {
		end := offset + maxPayload
		if end > len(message) {
			end = len(message)
		}
		chunk := message[offset:end]
		payload := append([]byte(nil), chunk...)
		frags = append(frags, &wire.MessageFragment{
			FragID:         fragID,
			Reliable:       reliable,
			TotalLength:    total,
			Offset:         uint32(offset),
			FragmentLength: uint32(len(payload)),
			Payload:        payload,
		})
	}
	return fragID, frags
}
