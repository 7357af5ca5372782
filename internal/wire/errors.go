package wire

import "errors"

// ErrMalformed is returned when a datagram cannot be decoded at all: a
// declared length runs past the buffer, or a blob's tag is unrecognized.
var ErrMalformed = errors.New("wire: malformed packet")

// ErrMTUExceeded is returned by EncodeData when the caller asked for a packet
// bigger than the configured MTU. This is an engine bug, not a network
// condition: the fragmenter is responsible for never handing the codec
// more than fits.
var ErrMTUExceeded = errors.New("wire: mtu exceeded")

// ErrZeroLengthBlob is returned by EncodeData if asked to encode a blob
// whose marshaled length is zero. Spec: a data packet's first blob length
// must be >=1, since a leading two zero bytes is the handshake sentinel.
var ErrZeroLengthBlob = errors.New("wire: zero-length blob")
