// Package udpio implements mux.DatagramIO over a real net.UDPConn. It is
// supporting infrastructure, not part of the CORE protocol engine: spec.md
// §1 explicitly leaves "the actual non-blocking UDP socket read/write
// primitive" out of scope, to be supplied by the host.
//
// Grounded on the teacher's internal/protocol.DnsPacketConn
// startRxEngine/startTxEngine split (a dedicated goroutine reading the
// real socket into a buffered channel, drained without blocking by the
// caller) — adapted here from "read raw UDP, decode DNS, decode tunneled
// packet" down to "read raw UDP" alone, since framing now happens one
// layer up in internal/wire, and from a pool of TX worker goroutines down
// to a single direct WriteTo call, since SendTo is already called from the
// single poll()-owning goroutine and needs no further fan-out.
package udpio

import (
	"net"

	"github.com/rs/zerolog/log"

	"reliudp/internal/mux"
)

var _ mux.DatagramIO = (*UDPIO)(nil)

const defaultRxQueueSize = 2048

type inboundDatagram struct {
	data []byte
	addr net.Addr
}

// UDPIO owns one bound net.UDPConn and a background goroutine draining it
// into a buffered channel, so PollRecv itself never blocks.
type UDPIO struct {
	conn *net.UDPConn
	rx   chan inboundDatagram
	done chan struct{}
}

// Listen binds a UDP socket at laddr (e.g. ":9000") and starts its
// receive engine.
func Listen(laddr string) (*UDPIO, error) {
	addr, err := net.ResolveUDPAddr("udp", laddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	u := &UDPIO{
		conn: conn,
		rx:   make(chan inboundDatagram, defaultRxQueueSize),
		done: make(chan struct{}),
	}
	go u.receiveEngine()
	return u, nil
}

// LocalAddr returns the bound local address.
func (u *UDPIO) LocalAddr() net.Addr { return u.conn.LocalAddr() }

// SendTo writes b to addr on the underlying socket.
func (u *UDPIO) SendTo(b []byte, addr net.Addr) error {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		resolved, err := net.ResolveUDPAddr("udp", addr.String())
		if err != nil {
			return err
		}
		udpAddr = resolved
	}
	_, err := u.conn.WriteToUDP(b, udpAddr)
	return err
}

// PollRecv returns the next already-received datagram without blocking;
// ok is false once the channel is drained for this pass, matching spec.md
// §5's "UDP reads are non-blocking and drain until the socket is empty".
func (u *UDPIO) PollRecv() ([]byte, net.Addr, bool) {
	select {
	case d := <-u.rx:
		return d.data, d.addr, true
	default:
		return nil, nil, false
	}
}

// Close stops the receive engine and closes the socket.
func (u *UDPIO) Close() error {
	close(u.done)
	return u.conn.Close()
}

func (u *UDPIO) receiveEngine() {
	buf := make([]byte, 65535)
	for {
		n, addr, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-u.done:
				return
			default:
				log.Debug().Err(err).Msg("udpio: read error, continuing")
				continue
			}
		}
		data := append([]byte(nil), buf[:n]...)
		select {
		case u.rx <- inboundDatagram{data: data, addr: addr}:
		default:
			log.Warn().Str("remote", addr.String()).Msg("udpio: rx queue full, dropping datagram")
		}
	}
}
