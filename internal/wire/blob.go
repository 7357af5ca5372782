package wire

import "encoding/binary"

// Kind tags the five blob shapes a data packet can carry (spec.md §6).
type Kind uint8

const (
	KindMessageFragment   Kind = 0
	KindHeartbeat         Kind = 1
	KindHeartbeatResponse Kind = 2
	KindAck               Kind = 3
	KindDisconnect        Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindMessageFragment:
		return "MessageFragment"
	case KindHeartbeat:
		return "Heartbeat"
	case KindHeartbeatResponse:
		return "HeartbeatResponse"
	case KindAck:
		return "Ack"
	case KindDisconnect:
		return "Disconnect"
	default:
		return "Unknown"
	}
}

// Blob is any of the five tagged payloads a data packet carries. The tag
// byte is part of MarshalBinary's output and is what the length prefix
// covers along with the rest of the blob.
type Blob interface {
	Kind() Kind
	MarshalBinary() ([]byte, error)
}

// fragmentFixedLen is everything in a MessageFragment blob but the tag and
// the trailing payload bytes: frag_id(4) + reliable(1) + total_length(4) +
// offset(4) + fragment_length(4).
const fragmentFixedLen = 4 + 1 + 4 + 4 + 4

// MessageFragment carries one byte-range of a larger logical message.
type MessageFragment struct {
	FragID         uint32
	Reliable       bool
	TotalLength    uint32
	Offset         uint32
	FragmentLength uint32
	Payload        []byte
}

func (f *MessageFragment) Kind() Kind { return KindMessageFragment }

func (f *MessageFragment) MarshalBinary() ([]byte, error) {
	if int(f.FragmentLength) != len(f.Payload) {
		return nil, ErrMalformed
	}
	buf := make([]byte, 1+fragmentFixedLen+len(f.Payload))
	buf[0] = byte(KindMessageFragment)
	binary.BigEndian.PutUint32(buf[1:5], f.FragID)
	if f.Reliable {
		buf[5] = 1
	}
	binary.BigEndian.PutUint32(buf[6:10], f.TotalLength)
	binary.BigEndian.PutUint32(buf[10:14], f.Offset)
	binary.BigEndian.PutUint32(buf[14:18], f.FragmentLength)
	copy(buf[18:], f.Payload)
	return buf, nil
}

func decodeMessageFragment(body []byte) (*MessageFragment, error) {
	if len(body) < fragmentFixedLen {
		return nil, ErrMalformed
	}
	f := &MessageFragment{
		FragID:         binary.BigEndian.Uint32(body[0:4]),
		Reliable:       body[4] != 0,
		TotalLength:    binary.BigEndian.Uint32(body[5:9]),
		Offset:         binary.BigEndian.Uint32(body[9:13]),
		FragmentLength: binary.BigEndian.Uint32(body[13:17]),
	}
	rest := body[17:]
	if uint32(len(rest)) != f.FragmentLength {
		return nil, ErrMalformed
	}
	if f.Offset > f.TotalLength || f.FragmentLength > f.TotalLength-f.Offset {
		return nil, ErrMalformed
	}
	f.Payload = append([]byte(nil), rest...)
	return f, nil
}

// Heartbeat carries a sender-local monotonic timestamp.
type Heartbeat struct {
	Timestamp uint64
}

func (h *Heartbeat) Kind() Kind { return KindHeartbeat }

func (h *Heartbeat) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 1+8)
	buf[0] = byte(KindHeartbeat)
	binary.BigEndian.PutUint64(buf[1:], h.Timestamp)
	return buf, nil
}

func decodeHeartbeat(body []byte) (*Heartbeat, error) {
	if len(body) != 8 {
		return nil, ErrMalformed
	}
	return &Heartbeat{Timestamp: binary.BigEndian.Uint64(body)}, nil
}

// HeartbeatResponse echoes a Heartbeat's timestamp verbatim.
type HeartbeatResponse struct {
	Timestamp uint64
}

func (h *HeartbeatResponse) Kind() Kind { return KindHeartbeatResponse }

func (h *HeartbeatResponse) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 1+8)
	buf[0] = byte(KindHeartbeatResponse)
	binary.BigEndian.PutUint64(buf[1:], h.Timestamp)
	return buf, nil
}

func decodeHeartbeatResponse(body []byte) (*HeartbeatResponse, error) {
	if len(body) != 8 {
		return nil, ErrMalformed
	}
	return &HeartbeatResponse{Timestamp: binary.BigEndian.Uint64(body)}, nil
}

// Ack acknowledges a byte range of a reliable fragment stream.
type Ack struct {
	FragID uint32
	Offset uint32
	Length uint32
}

func (a *Ack) Kind() Kind { return KindAck }

func (a *Ack) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 1+12)
	buf[0] = byte(KindAck)
	binary.BigEndian.PutUint32(buf[1:5], a.FragID)
	binary.BigEndian.PutUint32(buf[5:9], a.Offset)
	binary.BigEndian.PutUint32(buf[9:13], a.Length)
	return buf, nil
}

func decodeAck(body []byte) (*Ack, error) {
	if len(body) != 12 {
		return nil, ErrMalformed
	}
	return &Ack{
		FragID: binary.BigEndian.Uint32(body[0:4]),
		Offset: binary.BigEndian.Uint32(body[4:8]),
		Length: binary.BigEndian.Uint32(body[8:12]),
	}, nil
}

// Disconnect is a courtesy notice of intentional teardown; it has no body.
type Disconnect struct{}

func (d *Disconnect) Kind() Kind { return KindDisconnect }

func (d *Disconnect) MarshalBinary() ([]byte, error) {
	return []byte{byte(KindDisconnect)}, nil
}

func decodeDisconnect(body []byte) (*Disconnect, error) {
	if len(body) != 0 {
		return nil, ErrMalformed
	}
	return &Disconnect{}, nil
}

// DecodeBlob parses one length-prefixed blob's content (tag + body, with
// the u16 length field already stripped off by the caller).
func DecodeBlob(raw []byte) (Blob, error) {
	if len(raw) == 0 {
		return nil, ErrMalformed
	}
	kind := Kind(raw[0])
	body := raw[1:]
	switch kind {
	case KindMessageFragment:
		return decodeMessageFragment(body)
	case KindHeartbeat:
		return decodeHeartbeat(body)
	case KindHeartbeatResponse:
		return decodeHeartbeatResponse(body)
	case KindAck:
		return decodeAck(body)
	case KindDisconnect:
		return decodeDisconnect(body)
	default:
		return nil, ErrMalformed
	}
}
