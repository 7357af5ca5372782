package mux

import "net"

// DatagramIO is the non-blocking UDP I/O primitive the Multiplexer drives.
// Implementations never block: PollRecv drains whatever is already queued
// and reports ok=false once nothing more is waiting, so a single Poll()
// pass can exhaust the socket without yielding mid-drain (spec.md §5:
// "UDP reads are non-blocking and drain until the socket is empty").
//
// internal/udpio implements this over net.UDPConn; internal/testtransport
// implements it as a scripted, seedable double for deterministic tests.
type DatagramIO interface {
	SendTo(b []byte, addr net.Addr) error
	PollRecv() (b []byte, addr net.Addr, ok bool)
}
