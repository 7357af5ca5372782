// Package wire implements the bit-exact packet/blob codec of spec.md §4.1
// and §6: a handshake packet is two zero bytes followed by an 8-byte
// protocol id; a data packet is one or more (u16 length)(blob) items
// concatenated until the datagram ends.
package wire

import "encoding/binary"

// handshakeLen is the fixed size of a handshake packet: 2 zero bytes + 8
// byte protocol id.
const handshakeLen = 10

// lengthPrefixLen is the size of the u16 length field preceding each blob
// in a data packet.
const lengthPrefixLen = 2

// EncodeHandshake produces the 10-byte handshake packet for protocolID.
func EncodeHandshake(protocolID uint64) []byte {
	buf := make([]byte, handshakeLen)
	// buf[0:2] left zero: the handshake sentinel.
	binary.BigEndian.PutUint64(buf[2:], protocolID)
	return buf
}

// EncodeData concatenates len16(blob)||blob for each blob, in order,
// failing with ErrMTUExceeded if the result would exceed mtu and with
// ErrZeroLengthBlob if any blob marshals to zero bytes (which would be
// indistinguishable from the handshake sentinel as the first blob).
func EncodeData(blobs []Blob, mtu int) ([]byte, error) {
	out := make([]byte, 0, mtu)
	for _, b := range blobs {
		raw, err := b.MarshalBinary()
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, ErrZeroLengthBlob
		}
		if len(raw) > 0xFFFF {
			return nil, ErrMTUExceeded
		}
		if len(out)+lengthPrefixLen+len(raw) > mtu {
			return nil, ErrMTUExceeded
		}
		lenBuf := make([]byte, lengthPrefixLen)
		binary.BigEndian.PutUint16(lenBuf, uint16(len(raw)))
		out = append(out, lenBuf...)
		out = append(out, raw...)
	}
	return out, nil
}

// Packet is the result of decoding a datagram: exactly one of Handshake or
// Blobs is populated.
type Packet struct {
	Handshake *Handshake
	Blobs     []Blob
}

// Handshake carries the peer's claimed protocol id.
type Handshake struct {
	ProtocolID uint64
}

// Decode classifies and parses a raw datagram. Per spec.md §4.1: if the
// first two bytes are zero and exactly 8 bytes follow, it's a Handshake;
// otherwise it's iterated as length-prefixed blobs until the buffer is
// exhausted. Any inconsistency (length overrun, bad blob body) reports
// ErrMalformed and the whole datagram is dropped by the caller.
func Decode(raw []byte) (*Packet, error) {
	if len(raw) >= 2 && raw[0] == 0 && raw[1] == 0 {
		if len(raw) != handshakeLen {
			return nil, ErrMalformed
		}
		return &Packet{Handshake: &Handshake{ProtocolID: binary.BigEndian.Uint64(raw[2:])}}, nil
	}

	var blobs []Blob
	pos := 0
	for pos < len(raw) {
		if pos+lengthPrefixLen > len(raw) {
			return nil, ErrMalformed
		}
		blobLen := int(binary.BigEndian.Uint16(raw[pos : pos+lengthPrefixLen]))
		pos += lengthPrefixLen
		if blobLen == 0 || pos+blobLen > len(raw) {
			return nil, ErrMalformed
		}
		blob, err := DecodeBlob(raw[pos : pos+blobLen])
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, blob)
		pos += blobLen
	}
	return &Packet{Blobs: blobs}, nil
}
